package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/resumedocumentflow/internal/gcp"
)

// VisionStrategy is the secondary OCR path: single-page PDFs go to a
// vision model in batches, each asked for a best-effort schema-shaped JSON
// transcription. Batches fan out concurrently; outputs join in page order.
type VisionStrategy struct {
	model     *genai.GenerativeModel
	pool      *WorkerPool
	timeout   time.Duration
	retries   int
	batchSize int
	logger    *slog.Logger
}

func NewVisionStrategy(model *genai.GenerativeModel, pool *WorkerPool, timeout time.Duration, retries, batchSize int, logger *slog.Logger) *VisionStrategy {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &VisionStrategy{
		model:     model,
		pool:      pool,
		timeout:   timeout,
		retries:   retries,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (s *VisionStrategy) Source() Source { return SourceSecondary }

func (s *VisionStrategy) Extract(ctx context.Context, ps *PageSet) (string, error) {
	batches := (ps.PageCount + s.batchSize - 1) / s.batchSize
	outs := make([]string, batches)

	eg, gctx := errgroup.WithContext(ctx)
	for b := 0; b < batches; b++ {
		b := b
		start := b * s.batchSize
		end := min(start+s.batchSize, ps.PageCount)
		eg.Go(func() error {
			text, err := s.extractBatch(gctx, ps.Pages[start:end])
			if err != nil {
				return fmt.Errorf("pages %d-%d: %w", start+1, end, err)
			}
			outs[b] = text
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return "", fmt.Errorf("vision OCR: %w", err)
	}
	return strings.TrimSpace(strings.Join(outs, "\n")), nil
}

func (s *VisionStrategy) extractBatch(ctx context.Context, pages [][]byte) (string, error) {
	var text string
	err := callWithRetry(ctx, s.pool, s.timeout, s.retries, visionTransient, func(ctx context.Context) error {
		parts := make([]genai.Part, 0, len(pages)+1)
		for _, page := range pages {
			parts = append(parts, genai.Blob{MIMEType: "application/pdf", Data: page})
		}
		parts = append(parts, genai.Text(gcp.VisionUserPrompt))

		resp, err := s.model.GenerateContent(ctx, parts...)
		if err != nil {
			return fmt.Errorf("vision model: %w", err)
		}
		out := gcp.ResponseText(resp)
		if out == "" {
			return errors.New("vision model returned an empty response")
		}
		if gcp.IsRefusal(out) {
			s.logger.Warn("Vision model refused the document.", "response", snippet([]byte(out)))
			return errors.New("vision model refused the document")
		}
		text = out
		return nil
	})
	return text, err
}

// The Vertex client surfaces transport and quota problems as opaque
// errors, so everything short of cancellation gets the single retry.
func visionTransient(err error) bool {
	return !errors.Is(err, context.Canceled)
}
