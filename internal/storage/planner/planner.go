package storage_planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/naryasomayaj/group-activity-planner/internal/model"
	storage_document "github.com/naryasomayaj/group-activity-planner/internal/storage/document"
)

const (
	CollectionUsers       = "Users"
	CollectionGroups      = "Groups"
	CollectionAccessCodes = "AccessCodes"
)

// Storage maps the planner aggregates onto documents.
type Storage struct {
	docs   *storage_document.Store
	logger *slog.Logger
}

func New(docs *storage_document.Store) *Storage {
	return &Storage{
		docs:   docs,
		logger: slog.Default(),
	}
}

func (s *Storage) User(ctx context.Context, userID string) (model.User, error) {
	doc, err := s.docs.Get(ctx, CollectionUsers, userID)
	if err != nil {
		return model.User{}, mapErr(err)
	}
	return decodeUser(userID, doc)
}

// Users skips ids without a document.
func (s *Storage) Users(ctx context.Context, userIDs []string) ([]model.User, error) {
	users := make([]model.User, 0, len(userIDs))
	for _, id := range userIDs {
		u, err := s.User(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Storage) SaveProfile(ctx context.Context, u model.User) error {
	values := map[string]any{
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"age":       u.Age,
		"interests": nonNil(u.Interests),
	}
	if u.Email != "" {
		values["email"] = u.Email
	}
	fields, err := storage_document.Fields(values)
	if err != nil {
		return err
	}
	return s.docs.Set(ctx, CollectionUsers, u.ID, fields, true)
}

// AddUserGroup creates the user document when the identity has none yet.
func (s *Storage) AddUserGroup(ctx context.Context, userID, groupID string) error {
	return s.docs.RunTransaction(ctx, func(ctx context.Context, tx *storage_document.Txn) error {
		err := tx.ArrayUnion(CollectionUsers, userID, "userGroups", groupID)
		if errors.Is(err, storage_document.ErrNotFound) {
			fields, err := storage_document.Fields(map[string]any{"userGroups": []string{groupID}})
			if err != nil {
				return err
			}
			tx.Set(CollectionUsers, userID, fields)
			return nil
		}
		return err
	})
}

func (s *Storage) Group(ctx context.Context, groupID string) (model.Group, error) {
	doc, err := s.docs.Get(ctx, CollectionGroups, groupID)
	if err != nil {
		return model.Group{}, mapErr(err)
	}
	return decodeGroup(groupID, doc)
}

func (s *Storage) CreateGroup(ctx context.Context, g model.Group) (string, error) {
	doc, err := storage_document.Encode(g)
	if err != nil {
		return "", err
	}
	return s.docs.Add(ctx, CollectionGroups, doc)
}

func (s *Storage) AddGroupMember(ctx context.Context, groupID, userID string) error {
	return mapErr(s.docs.ArrayUnion(ctx, CollectionGroups, groupID, "members", userID))
}

func (s *Storage) AccessCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := s.docs.Get(ctx, CollectionAccessCodes, code)
	if err != nil {
		if errors.Is(err, storage_document.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Storage) GroupIDByAccessCode(ctx context.Context, code string) (string, error) {
	doc, err := s.docs.Get(ctx, CollectionAccessCodes, code)
	if err != nil {
		return "", mapErr(err)
	}
	var ac model.AccessCode
	if err := doc.Decode(&ac); err != nil {
		return "", err
	}
	return ac.GroupID, nil
}

func (s *Storage) CreateAccessCode(ctx context.Context, ac model.AccessCode) error {
	doc, err := storage_document.Encode(ac)
	if err != nil {
		return err
	}
	return s.docs.Set(ctx, CollectionAccessCodes, ac.Code, doc, false)
}

// LeaveGroup runs plan against the current group and applies the result to
// the group, its access code and the user's group list in one transaction.
func (s *Storage) LeaveGroup(ctx context.Context, groupID, userID string, plan func(g model.Group) model.LeavePlan) error {
	return s.docs.RunTransaction(ctx, func(ctx context.Context, tx *storage_document.Txn) error {
		doc, err := tx.Get(CollectionGroups, groupID)
		switch {
		case errors.Is(err, storage_document.ErrNotFound):
			return removeUserGroup(tx, userID, groupID)
		case err != nil:
			return err
		}

		g, err := decodeGroup(groupID, doc)
		if err != nil {
			return err
		}

		p := plan(g)
		switch {
		case p.DeleteGroup:
			if err := deleteAccessCode(tx, g.AccessCode, groupID); err != nil {
				return err
			}
			tx.Delete(CollectionGroups, groupID)
		case !p.Unchanged:
			fields, err := storage_document.Fields(map[string]any{"members": nonNil(p.Members)})
			if err != nil {
				return err
			}
			if err := tx.Update(CollectionGroups, groupID, fields); err != nil {
				return err
			}
		}
		return removeUserGroup(tx, userID, groupID)
	})
}

// MutateEvents re-reads the group, lets fn change its events and writes the
// events back. Nothing is written when fn fails.
func (s *Storage) MutateEvents(ctx context.Context, groupID string, fn func(g *model.Group) error) (model.Group, error) {
	var out model.Group
	err := s.docs.RunTransaction(ctx, func(ctx context.Context, tx *storage_document.Txn) error {
		doc, err := tx.Get(CollectionGroups, groupID)
		if err != nil {
			return mapErr(err)
		}
		g, err := decodeGroup(groupID, doc)
		if err != nil {
			return err
		}
		if err := fn(&g); err != nil {
			return err
		}
		fields, err := storage_document.Fields(map[string]any{"events": nonNilEvents(g.Events)})
		if err != nil {
			return err
		}
		if err := tx.Update(CollectionGroups, groupID, fields); err != nil {
			return err
		}
		out = g
		return nil
	})
	if err != nil {
		return model.Group{}, err
	}
	return out, nil
}

// WatchGroup reports every observed state of the group; exists is false
// once the group is deleted.
func (s *Storage) WatchGroup(ctx context.Context, groupID string, fn func(g model.Group, exists bool)) (func(), error) {
	return s.docs.Subscribe(ctx, CollectionGroups, groupID, func(snap storage_document.Snapshot) {
		if !snap.Exists {
			fn(model.Group{ID: groupID}, false)
			return
		}
		g, err := decodeGroup(groupID, snap.Doc)
		if err != nil {
			s.logger.Error("failed to decode group snapshot",
				slog.String("group_id", groupID),
				slog.String("error", err.Error()))
			return
		}
		fn(g, true)
	})
}

func removeUserGroup(tx *storage_document.Txn, userID, groupID string) error {
	err := tx.ArrayRemove(CollectionUsers, userID, "userGroups", groupID)
	if errors.Is(err, storage_document.ErrNotFound) {
		return nil
	}
	return err
}

// deleteAccessCode leaves the mapping alone if it was reassigned to another group.
func deleteAccessCode(tx *storage_document.Txn, code, groupID string) error {
	if code == "" {
		return nil
	}
	doc, err := tx.Get(CollectionAccessCodes, code)
	if err != nil {
		if errors.Is(err, storage_document.ErrNotFound) {
			return nil
		}
		return err
	}
	var ac model.AccessCode
	if err := doc.Decode(&ac); err != nil {
		return err
	}
	if ac.GroupID == groupID {
		tx.Delete(CollectionAccessCodes, code)
	}
	return nil
}

func decodeUser(id string, doc storage_document.Doc) (model.User, error) {
	var u model.User
	if err := doc.Decode(&u); err != nil {
		return model.User{}, fmt.Errorf("failed to decode user %s: %w", id, err)
	}
	u.ID = id
	return u, nil
}

func decodeGroup(id string, doc storage_document.Doc) (model.Group, error) {
	var g model.Group
	if err := doc.Decode(&g); err != nil {
		return model.Group{}, fmt.Errorf("failed to decode group %s: %w", id, err)
	}
	g.ID = id
	return g, nil
}

func mapErr(err error) error {
	if errors.Is(err, storage_document.ErrNotFound) {
		return fmt.Errorf("%w: %w", model.ErrNotFound, err)
	}
	return err
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilEvents(events []model.Event) []model.Event {
	if events == nil {
		return []model.Event{}
	}
	return events
}
