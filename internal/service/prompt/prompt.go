package prompt

import (
	"strconv"
	"strings"

	"github.com/naryasomayaj/group-activity-planner/internal/model"
)

const placeholder = "—"

const instructions = `Please propose 3–5 concrete, feasible activity ideas that fit the budgets and vibes above.
Only suggest activities that actually exist in or near the event location.
Return your ideas as JSON formatted like so:
{
  "activities": [
    {
      "title": "Activity 1 Title",
      "description": "Activity 1 description"
    },
    {
      "title": "Activity 2 Title",
      "description": "Activity 2 description"
    }
  ]
}`

type NameLookup interface {
	DisplayName(userID string) string
}

// Build renders the generation prompt for an event. The output depends only
// on its arguments.
func Build(event model.Event, groupName string, names NameLookup) string {
	var b strings.Builder

	b.WriteString("You are an assistant that suggests group activity ideas.\n")
	b.WriteString("Group: " + orDefault(groupName, "(unnamed group)") + "\n")
	b.WriteString("Event name: " + orDefault(event.Name, placeholder) + "\n")
	b.WriteString("Location: " + orDefault(event.Location, placeholder) + "\n")
	b.WriteString("\nParticipant preferences (per user):\n")

	if event.Preferences.Len() == 0 {
		b.WriteString("  (none yet)\n")
	}
	for userID, p := range event.Preferences.All() {
		b.WriteString("  - ")
		b.WriteString(names.DisplayName(userID))
		b.WriteString(": budget=" + formatBudget(p.Budget))
		b.WriteString(", vibes=" + joinOrDefault(p.Vibes))
		b.WriteString(", interests=" + joinOrDefault(p.Interests))
		b.WriteString("\n")
	}

	b.WriteString(instructions)
	return b.String()
}

func formatBudget(budget *float64) string {
	if budget == nil {
		return placeholder
	}
	return strconv.FormatFloat(*budget, 'f', -1, 64)
}

func joinOrDefault(values []string) string {
	if len(values) == 0 {
		return placeholder
	}
	return strings.Join(values, ", ")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
