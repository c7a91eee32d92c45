package model

import (
	"slices"
	"time"
)

type Event struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Location     string       `json:"location"`
	Date         string       `json:"date"`
	Budget       *float64     `json:"budget"`
	CreatedBy    string       `json:"createdBy"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    *time.Time   `json:"updatedAt,omitempty"`
	UpdatedBy    string       `json:"updatedBy,omitempty"`
	Participants []string     `json:"participants"`
	Preferences  Preferences  `json:"preferences"`
	AIResult     *AIResult    `json:"aiResult,omitempty"`
	Voting       *VotingState `json:"voting"`
}

type AIResult struct {
	Text      string    `json:"text"`
	Prompt    string    `json:"prompt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e *Event) IsParticipant(userID string) bool {
	return slices.Contains(e.Participants, userID)
}

// IsCreator treats events without a recorded creator as owned by everyone.
func (e *Event) IsCreator(userID string) bool {
	return e.CreatedBy == "" || e.CreatedBy == userID
}

// MinBudget is the lowest budget among the event and its preferences.
func (e *Event) MinBudget() *float64 {
	var lowest *float64
	consider := func(b *float64) {
		if b != nil && (lowest == nil || *b < *lowest) {
			v := *b
			lowest = &v
		}
	}
	consider(e.Budget)
	for _, p := range e.Preferences.All() {
		consider(p.Budget)
	}
	return lowest
}
