package pipeline

import (
	"context"
	"fmt"
	"time"

	"draftdesk/internal/infra"
	"draftdesk/internal/providers/anthropic"
)

const generateMaxTokens = 4096

// Generator produces the final article text, rotating API keys away from
// exhausted or revoked credentials between attempts.
type Generator struct {
	factory     *anthropic.Factory
	maxAttempts int
	logger      infra.Logger
	sleep       func(time.Duration)
}

func NewGenerator(factory *anthropic.Factory, maxAttempts int, logger infra.Logger) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Generator{
		factory:     factory,
		maxAttempts: maxAttempts,
		logger:      logger,
		sleep:       time.Sleep,
	}
}

// Generate runs the prompt until a response arrives or attempts run out.
// Credential errors swap the key and retry immediately; anything else backs
// off attempt*1s before the next try.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	client, err := g.factory.Acquire()
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
			MaxTokens: generateMaxTokens,
			Content:   []anthropic.ContentBlock{anthropic.TextBlock(prompt)},
		})
		if err == nil {
			return resp.FirstText(), nil
		}
		lastErr = err
		g.logger.Warn().Err(err).Int("attempt", attempt).Msg("article generation attempt failed")

		credential := anthropic.IsAuthError(err) || anthropic.IsCreditError(err)
		if credential {
			g.factory.MarkError(client)
			next, acqErr := g.factory.Acquire()
			if acqErr != nil {
				return "", acqErr
			}
			client = next
		}
		if attempt >= g.maxAttempts {
			break
		}
		if !credential {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
			}
			g.sleep(time.Duration(attempt) * time.Second)
		}
	}
	return "", fmt.Errorf("article generation failed after %d attempts: %w", g.maxAttempts, lastErr)
}
