package model

import (
	"slices"
	"strings"
	"time"
)

type AccessCode struct {
	Code      string    `json:"-"`
	GroupID   string    `json:"groupId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Group struct {
	ID         string    `json:"-"`
	Name       string    `json:"name"`
	AccessCode string    `json:"accessCode"`
	CreatedAt  time.Time `json:"createdAt"`
	CreatedBy  string    `json:"createdBy"`
	Members    []string  `json:"members"`
	Events     []Event   `json:"events"`
}

func (g *Group) IsMember(userID string) bool {
	return slices.Contains(g.Members, userID)
}

// EventIndex returns -1 when the event is absent.
func (g *Group) EventIndex(eventID string) int {
	return slices.IndexFunc(g.Events, func(e Event) bool { return e.ID == eventID })
}

// LeavePlan is what a leave transaction applies to the group document.
type LeavePlan struct {
	Unchanged   bool
	Members     []string
	DeleteGroup bool
}

// CleanList trims every entry and drops the empty ones.
func CleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
