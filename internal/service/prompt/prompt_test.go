package prompt

import (
	"strings"
	"testing"

	"github.com/naryasomayaj/group-activity-planner/internal/model"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
)

type PromptUnitSuite struct {
	suite.Suite
}

type names map[string]string

func (n names) DisplayName(userID string) string {
	if v, ok := n[userID]; ok {
		return v
	}
	return userID
}

func budget(v float64) *float64 { return &v }

func (s *PromptUnitSuite) TestBuild(t provider.T) {
	t.Parallel()

	ev := model.Event{Name: "Friday", Location: "Austin"}
	ev.Preferences.Set("u2", model.Preference{
		Budget:    budget(45.5),
		Vibes:     []string{"chill", "outdoors"},
		Interests: []string{"hiking"},
	})
	ev.Preferences.Set("u1", model.Preference{})

	got := Build(ev, "Climbers", names{"u1": "Ada", "u2": "Bo"})

	expected := "You are an assistant that suggests group activity ideas.\n" +
		"Group: Climbers\n" +
		"Event name: Friday\n" +
		"Location: Austin\n" +
		"\nParticipant preferences (per user):\n" +
		"  - Bo: budget=45.5, vibes=chill, outdoors, interests=hiking\n" +
		"  - Ada: budget=—, vibes=—, interests=—\n" +
		instructions
	assert.Equal(t, expected, got)
}

func (s *PromptUnitSuite) TestBuildPlaceholders(t provider.T) {
	t.Parallel()

	got := Build(model.Event{}, "", names{})

	assert.Contains(t, got, "Group: (unnamed group)\n")
	assert.Contains(t, got, "Event name: —\n")
	assert.Contains(t, got, "Location: —\n")
	assert.Contains(t, got, "  (none yet)\n")
	assert.True(t, strings.HasSuffix(got, instructions))
}

func (s *PromptUnitSuite) TestBuildIsDeterministic(t provider.T) {
	t.Parallel()

	ev := model.Event{Name: "Picnic"}
	for _, id := range []string{"c", "a", "b"} {
		ev.Preferences.Set(id, model.Preference{Budget: budget(10)})
	}

	first := Build(ev, "G", names{})
	for range 10 {
		assert.Equal(t, first, Build(ev, "G", names{}))
	}
	assert.Less(t, strings.Index(first, "- c:"), strings.Index(first, "- a:"))
	assert.Less(t, strings.Index(first, "- a:"), strings.Index(first, "- b:"))
	assert.Contains(t, first, "budget=10,")
}

func TestUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(PromptUnitSuite))
}
