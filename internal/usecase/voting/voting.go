package usecase_voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/naryasomayaj/group-activity-planner/internal/model"
	"github.com/naryasomayaj/group-activity-planner/internal/service/activity"
)

var (
	ErrGroupNotFound  = fmt.Errorf("%w: group", model.ErrNotFound)
	ErrEventNotFound  = fmt.Errorf("%w: event", model.ErrNotFound)
	ErrNotMember      = fmt.Errorf("%w: not a member of this group", model.ErrPermissionDenied)
	ErrNotParticipant = fmt.Errorf("%w: only participants can vote", model.ErrPermissionDenied)
	ErrNotCreator     = fmt.Errorf("%w: only the event creator can do this", model.ErrPermissionDenied)
	ErrNoAIResult     = fmt.Errorf("%w: generate ideas first", model.ErrValidation)
	ErrInvalidChoice  = fmt.Errorf("%w: activity index must not be negative", model.ErrValidation)
	ErrNoActivities   = fmt.Errorf("%w: no activities to vote on", model.ErrParse)
	ErrVotingNotOpen  = fmt.Errorf("%w: voting is not open", model.ErrAlreadyInState)
	ErrVotingExists   = fmt.Errorf("%w: voting already started, reset it first", model.ErrAlreadyInState)
)

const unknownActivity = "Unknown"

type Repository interface {
	MutateEvents(ctx context.Context, groupID string, fn func(g *model.Group) error) (model.Group, error)
}

type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
}

type Usecase struct {
	repo      Repository
	publisher Publisher
	logger    *slog.Logger

	now  func() time.Time
	pick func(n int) int
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
		pick:      rand.IntN,
	}
}

func (u *Usecase) StartVoting(ctx context.Context, groupID, eventID string, callerID string) (model.VotingState, error) {
	ev, err := u.mutateEvent(ctx, groupID, eventID, callerID, func(ev *model.Event) error {
		if !ev.IsParticipant(callerID) {
			return ErrNotParticipant
		}
		if ev.AIResult == nil || ev.AIResult.Text == "" {
			return ErrNoAIResult
		}
		if ev.Voting != nil {
			return ErrVotingExists
		}

		activities, err := activity.Parse(ev.AIResult.Text)
		if err != nil {
			return err
		}
		if len(activities) == 0 {
			return ErrNoActivities
		}

		ev.Voting = &model.VotingState{
			IsOpen:    true,
			Votes:     map[string]int{},
			StartedAt: u.now().UTC(),
			StartedBy: callerID,
		}
		return nil
	})
	if err != nil {
		return model.VotingState{}, err
	}
	return *ev.Voting, nil
}

type VoteOutcome struct {
	Voting model.VotingState
	Closed bool
}

// CastVote records or replaces the caller's vote. The vote that completes
// participation also closes the voting in the same write.
func (u *Usecase) CastVote(ctx context.Context, groupID, eventID string, callerID string, activityIndex int) (VoteOutcome, error) {
	if activityIndex < 0 {
		return VoteOutcome{}, ErrInvalidChoice
	}

	var closed bool
	ev, err := u.mutateEvent(ctx, groupID, eventID, callerID, func(ev *model.Event) error {
		closed = false
		if !ev.IsParticipant(callerID) {
			return ErrNotParticipant
		}
		if ev.Voting == nil || !ev.Voting.IsOpen {
			return ErrVotingNotOpen
		}

		if ev.Voting.Votes == nil {
			ev.Voting.Votes = map[string]int{}
		}
		ev.Voting.Votes[callerID] = activityIndex

		if !quorumReached(ev) {
			return nil
		}
		if err := u.close(ev); err != nil {
			// The vote stands; voting stays open until the result parses.
			u.logger.Warn("quorum reached but voting not closed",
				slog.String("event_id", eventID),
				slog.String("error", err.Error()))
			return nil
		}
		closed = true
		return nil
	})
	if err != nil {
		return VoteOutcome{}, err
	}

	if closed {
		u.publishClosed(ctx, groupID, eventID, *ev.Voting.Winner)
	}
	return VoteOutcome{Voting: *ev.Voting, Closed: closed}, nil
}

// quorumReached counts only votes from current participants.
func quorumReached(ev *model.Event) bool {
	voted := 0
	for voter := range ev.Voting.Votes {
		if slices.Contains(ev.Participants, voter) {
			voted++
		}
	}
	return voted == len(ev.Participants)
}

// CloseVoting tallies the votes and picks the winner.
func (u *Usecase) CloseVoting(ctx context.Context, groupID, eventID string) (model.WinnerInfo, error) {
	return u.closeAs(ctx, groupID, eventID, "", false)
}

// CloseVotingByCreator is CloseVoting restricted to the event creator.
func (u *Usecase) CloseVotingByCreator(ctx context.Context, groupID, eventID string, callerID string) (model.WinnerInfo, error) {
	return u.closeAs(ctx, groupID, eventID, callerID, true)
}

func (u *Usecase) closeAs(ctx context.Context, groupID, eventID, callerID string, creatorOnly bool) (model.WinnerInfo, error) {
	ev, err := u.mutateEvent(ctx, groupID, eventID, callerID, func(ev *model.Event) error {
		if creatorOnly && !ev.IsCreator(callerID) {
			return ErrNotCreator
		}
		if ev.Voting == nil || !ev.Voting.IsOpen {
			return ErrVotingNotOpen
		}
		return u.close(ev)
	})
	if err != nil {
		return model.WinnerInfo{}, err
	}

	winner := *ev.Voting.Winner
	u.publishClosed(ctx, groupID, eventID, winner)
	return winner, nil
}

// ResetVoting discards the voting state so a new round can start.
func (u *Usecase) ResetVoting(ctx context.Context, groupID, eventID string, callerID string) error {
	_, err := u.mutateEvent(ctx, groupID, eventID, callerID, func(ev *model.Event) error {
		if !ev.IsCreator(callerID) {
			return ErrNotCreator
		}
		ev.Voting = nil
		return nil
	})
	return err
}

func (u *Usecase) close(ev *model.Event) error {
	var text string
	if ev.AIResult != nil {
		text = ev.AIResult.Text
	}
	activities, err := activity.Parse(text)
	if err != nil {
		return err
	}

	winner := selectWinner(ev.Voting.Votes, activities, u.pick)
	winner.ClosedAt = u.now().UTC()

	ev.Voting.IsOpen = false
	ev.Voting.Winner = &winner
	return nil
}

// selectWinner picks the most voted index. Ties are broken by pick over the
// tied indices in ascending order. With no votes the winner is index 0.
func selectWinner(votes map[string]int, activities []model.Activity, pick func(n int) int) model.WinnerInfo {
	counts := make(map[int]int)
	for _, idx := range votes {
		counts[idx]++
	}

	maxVotes := 0
	for _, c := range counts {
		maxVotes = max(maxVotes, c)
	}

	var tied []int
	for idx, c := range counts {
		if c == maxVotes {
			tied = append(tied, idx)
		}
	}
	slices.Sort(tied)

	winner := model.WinnerInfo{
		Title:     unknownActivity,
		VoteCount: maxVotes,
		WasTied:   len(tied) > 1,
	}
	if len(tied) > 0 {
		winner.Index = tied[pick(len(tied))]
	}
	if winner.Index >= 0 && winner.Index < len(activities) {
		a := activities[winner.Index]
		if a.Title != "" {
			winner.Title = a.Title
		}
		winner.Description = a.Description
	}
	return winner
}

// mutateEvent skips the membership check when callerID is empty.
func (u *Usecase) mutateEvent(ctx context.Context, groupID, eventID, callerID string, fn func(ev *model.Event) error) (model.Event, error) {
	var out model.Event
	_, err := u.repo.MutateEvents(ctx, groupID, func(g *model.Group) error {
		if callerID != "" && !g.IsMember(callerID) {
			return ErrNotMember
		}
		idx := g.EventIndex(eventID)
		if idx < 0 {
			return ErrEventNotFound
		}
		if err := fn(&g.Events[idx]); err != nil {
			return err
		}
		out = g.Events[idx]
		return nil
	})
	if err != nil {
		return model.Event{}, mapErr(err)
	}
	return out, nil
}

func (u *Usecase) publishClosed(ctx context.Context, groupID, eventID string, winner model.WinnerInfo) {
	u.logger.Info("voting closed",
		slog.String("event_id", eventID),
		slog.Int("winner_index", winner.Index),
		slog.Bool("was_tied", winner.WasTied))

	if err := u.publisher.Publish(ctx, model.SubjectVotingClosed, model.VotingClosedEvent{
		GroupID: groupID,
		EventID: eventID,
		Winner:  winner,
	}); err != nil {
		u.logger.Warn("failed to publish event", slog.String("error", err.Error()))
	}
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, ErrEventNotFound),
		errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrPermissionDenied),
		errors.Is(err, model.ErrAlreadyInState),
		errors.Is(err, model.ErrParse):
		return err
	case errors.Is(err, model.ErrNotFound):
		return ErrGroupNotFound
	default:
		return errors.Join(model.ErrStore, err)
	}
}
