package usecase_membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/naryasomayaj/group-activity-planner/internal/model"
)

var (
	ErrEmptyName     = fmt.Errorf("%w: group name is empty", model.ErrValidation)
	ErrEmptyCode     = fmt.Errorf("%w: access code is empty", model.ErrValidation)
	ErrCodeNotFound  = fmt.Errorf("%w: unknown access code", model.ErrNotFound)
	ErrGroupNotFound = fmt.Errorf("%w: group", model.ErrNotFound)
	ErrAlreadyMember = fmt.Errorf("%w: already a member of this group", model.ErrAlreadyInState)
	ErrNotMember     = fmt.Errorf("%w: not a member of this group", model.ErrPermissionDenied)
)

const (
	codeLen      = 6
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeAttempts = 5
)

type Repository interface {
	User(ctx context.Context, userID string) (model.User, error)
	Users(ctx context.Context, userIDs []string) ([]model.User, error)
	AddUserGroup(ctx context.Context, userID, groupID string) error

	Group(ctx context.Context, groupID string) (model.Group, error)
	CreateGroup(ctx context.Context, g model.Group) (string, error)
	AddGroupMember(ctx context.Context, groupID, userID string) error
	LeaveGroup(ctx context.Context, groupID, userID string, plan func(g model.Group) model.LeavePlan) error

	AccessCodeExists(ctx context.Context, code string) (bool, error)
	GroupIDByAccessCode(ctx context.Context, code string) (string, error)
	CreateAccessCode(ctx context.Context, ac model.AccessCode) error
}

type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
}

type Usecase struct {
	repo      Repository
	publisher Publisher
	logger    *slog.Logger

	now     func() time.Time
	newCode func() string
}

func New(
	repo Repository,
	publisher Publisher,
) *Usecase {
	return &Usecase{
		repo:      repo,
		publisher: publisher,
		logger:    slog.Default(),
		now:       time.Now,
		newCode:   randomCode,
	}
}

// CreateGroup writes the group, its access code and the creator's group list
// one after another. A failure midway is reported but not rolled back.
func (u *Usecase) CreateGroup(ctx context.Context, name string, callerID string) (model.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Group{}, ErrEmptyName
	}

	code, err := u.issueAccessCode(ctx)
	if err != nil {
		return model.Group{}, err
	}

	g := model.Group{
		Name:       name,
		AccessCode: code,
		CreatedAt:  u.now().UTC(),
		CreatedBy:  callerID,
		Members:    []string{callerID},
		Events:     []model.Event{},
	}

	g.ID, err = u.repo.CreateGroup(ctx, g)
	if err != nil {
		return model.Group{}, errors.Join(model.ErrStore, err)
	}

	if err := u.repo.CreateAccessCode(ctx, model.AccessCode{
		Code:      code,
		GroupID:   g.ID,
		CreatedAt: g.CreatedAt,
	}); err != nil {
		u.logger.Error("group created without access code",
			slog.String("group_id", g.ID),
			slog.String("code", code),
			slog.String("error", err.Error()))
		return model.Group{}, errors.Join(model.ErrStore, err)
	}

	if err := u.repo.AddUserGroup(ctx, callerID, g.ID); err != nil {
		u.logger.Error("group not linked to creator",
			slog.String("group_id", g.ID),
			slog.String("user_id", callerID),
			slog.String("error", err.Error()))
		return model.Group{}, errors.Join(model.ErrStore, err)
	}

	u.publish(ctx, model.SubjectGroupCreated, model.GroupCreatedEvent{GroupID: g.ID, CreatedBy: callerID})
	return g, nil
}

// Assuming that codes can conflict.
// Retrying, then falling back to a timestamp-derived code.
func (u *Usecase) issueAccessCode(ctx context.Context) (string, error) {
	for range codeAttempts {
		code := u.newCode()
		taken, err := u.repo.AccessCodeExists(ctx, code)
		if err != nil {
			return "", errors.Join(model.ErrStore, err)
		}
		if !taken {
			return code, nil
		}
	}

	code := fallbackCode(u.now())
	u.logger.Warn("access code attempts exhausted, using fallback", slog.String("code", code))
	return code, nil
}

func randomCode() string {
	var builder strings.Builder
	builder.Grow(codeLen)

	for range codeLen {
		builder.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
	}

	return builder.String()
}

// fallbackCode is the last six base-36 digits of the millisecond clock.
// Not unique under concurrent collisions.
func fallbackCode(t time.Time) string {
	s := strings.ToUpper(strconv.FormatInt(t.UnixMilli(), 36))
	if len(s) > codeLen {
		s = s[len(s)-codeLen:]
	}
	return s
}

// JoinGroup updates the caller's group list and the group's members as two
// independent writes.
func (u *Usecase) JoinGroup(ctx context.Context, code string, callerID string) (model.Group, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return model.Group{}, ErrEmptyCode
	}

	groupID, err := u.repo.GroupIDByAccessCode(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Group{}, ErrCodeNotFound
		}
		return model.Group{}, errors.Join(model.ErrStore, err)
	}

	user, err := u.repo.User(ctx, callerID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.Group{}, errors.Join(model.ErrStore, err)
	}
	if slices.Contains(user.UserGroups, groupID) {
		return model.Group{}, ErrAlreadyMember
	}

	if err := u.repo.AddUserGroup(ctx, callerID, groupID); err != nil {
		return model.Group{}, errors.Join(model.ErrStore, err)
	}
	if err := u.repo.AddGroupMember(ctx, groupID, callerID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Group{}, ErrGroupNotFound
		}
		return model.Group{}, errors.Join(model.ErrStore, err)
	}

	g, err := u.repo.Group(ctx, groupID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Group{}, ErrGroupNotFound
		}
		return model.Group{}, errors.Join(model.ErrStore, err)
	}
	return g, nil
}

// LeaveGroup removes the caller atomically; the last member out deletes the
// group together with its access code.
func (u *Usecase) LeaveGroup(ctx context.Context, groupID string, callerID string) error {
	var deleted bool
	err := u.repo.LeaveGroup(ctx, groupID, callerID, func(g model.Group) model.LeavePlan {
		plan := planLeave(g, callerID)
		deleted = plan.DeleteGroup
		return plan
	})
	if err != nil {
		return errors.Join(model.ErrStore, err)
	}

	if deleted {
		u.logger.Info("last member left, group deleted", slog.String("group_id", groupID))
		u.publish(ctx, model.SubjectGroupDeleted, model.GroupDeletedEvent{GroupID: groupID})
	}
	return nil
}

func planLeave(g model.Group, userID string) model.LeavePlan {
	if !g.IsMember(userID) {
		return model.LeavePlan{Unchanged: true}
	}

	remaining := slices.DeleteFunc(slices.Clone(g.Members), func(m string) bool { return m == userID })
	if len(remaining) == 0 {
		return model.LeavePlan{DeleteGroup: true}
	}
	return model.LeavePlan{Members: remaining}
}

func (u *Usecase) Group(ctx context.Context, groupID string, callerID string) (model.Group, error) {
	g, err := u.repo.Group(ctx, groupID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Group{}, ErrGroupNotFound
		}
		return model.Group{}, errors.Join(model.ErrStore, err)
	}
	if !g.IsMember(callerID) {
		return model.Group{}, ErrNotMember
	}
	return g, nil
}

// MyGroups skips ids in the caller's list whose group no longer exists.
func (u *Usecase) MyGroups(ctx context.Context, callerID string) ([]model.Group, error) {
	user, err := u.repo.User(ctx, callerID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return []model.Group{}, nil
		}
		return nil, errors.Join(model.ErrStore, err)
	}

	groups := make([]model.Group, 0, len(user.UserGroups))
	for _, id := range user.UserGroups {
		g, err := u.repo.Group(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return nil, errors.Join(model.ErrStore, err)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (u *Usecase) Members(ctx context.Context, groupID string, callerID string) ([]model.Member, error) {
	g, err := u.Group(ctx, groupID, callerID)
	if err != nil {
		return nil, err
	}

	users, err := u.repo.Users(ctx, g.Members)
	if err != nil {
		return nil, errors.Join(model.ErrStore, err)
	}
	byID := make(map[string]model.User, len(users))
	for _, usr := range users {
		byID[usr.ID] = usr
	}

	members := make([]model.Member, 0, len(g.Members))
	for _, id := range g.Members {
		usr, ok := byID[id]
		if !ok {
			usr = model.User{ID: id}
		}
		members = append(members, model.Member{ID: id, DisplayName: usr.DisplayName()})
	}
	return members, nil
}

func (u *Usecase) publish(ctx context.Context, subject string, data any) {
	if err := u.publisher.Publish(ctx, subject, data); err != nil {
		u.logger.Warn("failed to publish event",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
	}
}
