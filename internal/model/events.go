package model

const (
	SubjectGroupCreated   = "planner.group.created"
	SubjectGroupDeleted   = "planner.group.deleted"
	SubjectEventGenerated = "planner.event.generated"
	SubjectVotingClosed   = "planner.voting.closed"
)

type GroupCreatedEvent struct {
	GroupID   string `json:"group_id"`
	CreatedBy string `json:"created_by"`
}

type GroupDeletedEvent struct {
	GroupID string `json:"group_id"`
}

type EventGeneratedEvent struct {
	GroupID string `json:"group_id"`
	EventID string `json:"event_id"`
}

type VotingClosedEvent struct {
	GroupID string     `json:"group_id"`
	EventID string     `json:"event_id"`
	Winner  WinnerInfo `json:"winner"`
}
