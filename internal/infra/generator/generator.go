package infra_generator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/naryasomayaj/group-activity-planner/internal/config"
	"google.golang.org/genai"
)

type Generator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func MustEstablishConnection(cfg config.Generator) *Generator {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("failed to create generator client: %v", err)
	}
	return &Generator{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}
