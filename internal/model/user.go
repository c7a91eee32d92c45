package model

import "strings"

type User struct {
	ID         string   `json:"-"`
	Email      string   `json:"email,omitempty"`
	FirstName  string   `json:"firstName,omitempty"`
	LastName   string   `json:"lastName,omitempty"`
	Age        int      `json:"age,omitempty"`
	Interests  []string `json:"interests,omitempty"`
	UserGroups []string `json:"userGroups,omitempty"`
}

// DisplayName falls back from the full name to the email and then to the id.
func (u User) DisplayName() string {
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}
