package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/resumedocumentflow/internal/gcp"
)

// Combiner merges the two OCR outputs and the extracted links into one raw
// JSON candidate. It is invoked only when the router said RECONCILE and
// both strategies succeeded.
type Combiner interface {
	Combine(ctx context.Context, primary, secondary string, links []string) (string, error)
}

// VertexCombiner drives the merge through a single JSON-mode model call
// with the fixed merge instruction. No retry: a failed reconciliation
// degrades to pass-through upstream instead of burning another call.
type VertexCombiner struct {
	model   *genai.GenerativeModel
	pool    *WorkerPool
	timeout time.Duration
	logger  *slog.Logger
}

func NewVertexCombiner(model *genai.GenerativeModel, pool *WorkerPool, timeout time.Duration, logger *slog.Logger) *VertexCombiner {
	return &VertexCombiner{model: model, pool: pool, timeout: timeout, logger: logger}
}

func (c *VertexCombiner) Combine(ctx context.Context, primary, secondary string, links []string) (string, error) {
	prompt := gcp.ReconcilerPrompt(primary, secondary, links)
	var out string
	err := c.pool.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return fmt.Errorf("reconciliation model: %w", err)
		}
		out = gcp.ResponseText(resp)
		if out == "" {
			return errors.New("reconciliation model returned an empty response")
		}
		if gcp.IsRefusal(out) {
			return errors.New("reconciliation model refused the merge")
		}
		return nil
	})
	return out, err
}
