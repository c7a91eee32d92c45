package model

import "time"

type VotingState struct {
	IsOpen    bool           `json:"isOpen"`
	Votes     map[string]int `json:"votes"`
	StartedAt time.Time      `json:"startedAt"`
	StartedBy string         `json:"startedBy"`
	Winner    *WinnerInfo    `json:"winner,omitempty"`
}

type WinnerInfo struct {
	Index       int       `json:"index"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VoteCount   int       `json:"voteCount"`
	WasTied     bool      `json:"wasTied"`
	ClosedAt    time.Time `json:"closedAt"`
}

type Activity struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
