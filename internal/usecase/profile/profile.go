package usecase_profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/naryasomayaj/group-activity-planner/internal/model"
)

var ErrInvalidAge = fmt.Errorf("%w: age must be between 0 and 150", model.ErrValidation)

const maxAge = 150

type Repository interface {
	User(ctx context.Context, userID string) (model.User, error)
	SaveProfile(ctx context.Context, u model.User) error
}

type NameCache interface {
	Forget(ctx context.Context, userIDs ...string)
}

type Usecase struct {
	repo  Repository
	names NameCache
}

func New(repo Repository, names NameCache) *Usecase {
	return &Usecase{
		repo:  repo,
		names: names,
	}
}

type ProfileForm struct {
	Email     string
	FirstName string
	LastName  string
	Age       int
	Interests []string
}

// Profile returns an empty profile for identities that never saved one.
func (u *Usecase) Profile(ctx context.Context, callerID string) (model.User, error) {
	user, err := u.repo.User(ctx, callerID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{ID: callerID, Interests: []string{}}, nil
		}
		return model.User{}, errors.Join(model.ErrStore, err)
	}
	return user, nil
}

func (u *Usecase) UpdateProfile(ctx context.Context, callerID string, form ProfileForm) (model.User, error) {
	if form.Age < 0 || form.Age > maxAge {
		return model.User{}, ErrInvalidAge
	}

	if err := u.repo.SaveProfile(ctx, model.User{
		ID:        callerID,
		Email:     strings.TrimSpace(form.Email),
		FirstName: strings.TrimSpace(form.FirstName),
		LastName:  strings.TrimSpace(form.LastName),
		Age:       form.Age,
		Interests: model.CleanList(form.Interests),
	}); err != nil {
		return model.User{}, errors.Join(model.ErrStore, err)
	}
	u.names.Forget(ctx, callerID)

	return u.Profile(ctx, callerID)
}
