package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DocIntelStrategy is the primary OCR path: a document-intelligence read
// model behind a begin-analyze/poll REST flow. It returns the service's
// layout-aware text content for the whole document.
type DocIntelStrategy struct {
	endpoint     string
	apiKey       string
	client       *http.Client
	pool         *WorkerPool
	timeout      time.Duration
	retries      int
	pollInterval time.Duration
	logger       *slog.Logger
}

// DocIntelConfig configures the primary OCR adapter. The credential comes
// from process configuration, never from code.
type DocIntelConfig struct {
	Endpoint     string
	APIKey       string
	Timeout      time.Duration
	Retries      int
	PollInterval time.Duration
}

func NewDocIntelStrategy(cfg DocIntelConfig, pool *WorkerPool, logger *slog.Logger) *DocIntelStrategy {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &DocIntelStrategy{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:       cfg.APIKey,
		client:       &http.Client{},
		pool:         pool,
		timeout:      cfg.Timeout,
		retries:      cfg.Retries,
		pollInterval: cfg.PollInterval,
		logger:       logger,
	}
}

func (s *DocIntelStrategy) Source() Source { return SourcePrimary }

func (s *DocIntelStrategy) Extract(ctx context.Context, ps *PageSet) (string, error) {
	var content string
	err := callWithRetry(ctx, s.pool, s.timeout, s.retries, isTransient, func(ctx context.Context) error {
		var err error
		content, err = s.analyze(ctx, ps.Raw)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("document intelligence: %w", err)
	}
	return content, nil
}

// analyzeResult mirrors the read model's operation document.
type analyzeResult struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		Content string `json:"content"`
	} `json:"analyzeResult"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// analyze submits the document and polls the returned operation until it
// reaches a terminal status.
func (s *DocIntelStrategy) analyze(ctx context.Context, pdf []byte) (string, error) {
	analyzeURL := s.endpoint + "/documentintelligence/documentModels/prebuilt-read:analyze?api-version=2024-11-30"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, analyzeURL, bytes.NewReader(pdf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Some gateways answer synchronously with the finished result.
		var result analyzeResult
		if err := json.Unmarshal(body, &result); err != nil {
			return "", fmt.Errorf("decoding analyze response: %w", err)
		}
		return result.AnalyzeResult.Content, nil
	case http.StatusAccepted:
		opLoc := resp.Header.Get("Operation-Location")
		if opLoc == "" {
			return "", errors.New("analyze accepted without an Operation-Location header")
		}
		return s.poll(ctx, opLoc)
	default:
		return "", &httpStatusError{status: resp.StatusCode, body: snippet(body)}
	}
}

func (s *DocIntelStrategy) poll(ctx context.Context, opLoc string) (string, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, opLoc, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", s.apiKey)
		resp, err := s.client.Do(req)
		if err != nil {
			return "", err
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", &httpStatusError{status: resp.StatusCode, body: snippet(body)}
		}

		var result analyzeResult
		if err := json.Unmarshal(body, &result); err != nil {
			return "", fmt.Errorf("decoding operation status: %w", err)
		}
		switch result.Status {
		case "succeeded":
			return result.AnalyzeResult.Content, nil
		case "failed":
			return "", fmt.Errorf("analysis failed: %s: %s", result.Error.Code, result.Error.Message)
		case "notStarted", "running":
			s.logger.Debug("Analysis still running.", "operation", opLoc)
		default:
			return "", fmt.Errorf("unexpected operation status %q", result.Status)
		}
	}
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.status, e.body)
}

// isTransient classifies adapter failures for the retry policy: network
// errors and per-attempt timeouts are retried, as are 429 and 5xx answers.
// Client errors (bad request, bad credentials) are terminal.
func isTransient(err error) bool {
	var se *httpStatusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

func snippet(body []byte) string {
	const max = 256
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "…"
	}
	return s
}
