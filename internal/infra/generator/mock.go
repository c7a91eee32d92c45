package infra_generator

import "context"

const mockActivities = `{
  "activities": [
    {"title": "Picnic in the park", "description": "Bring snacks and a frisbee."},
    {"title": "Board game night", "description": "Pick a few cooperative games everyone knows."},
    {"title": "Food market crawl", "description": "Sample a few stalls and share plates."}
  ]
}`

// Mock answers every prompt with a fixed activity list. Used when no API key
// is configured.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Generate(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return mockActivities, nil
}
