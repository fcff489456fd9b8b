// Package parser implements the resume extraction pipeline: preprocessing,
// concurrent dual-strategy OCR, page-count routing, LLM reconciliation,
// JSON repair and schema validation.
package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/resumedocumentflow/internal/models"
	"github.com/Lllllllleong/resumedocumentflow/internal/schema"
)

// Config carries the pipeline tunables. It is supplied at construction;
// nothing in the pipeline reads ambient state.
type Config struct {
	MaxFileSizeBytes   int64
	PageCountThreshold int
	AdapterTimeout     time.Duration
	AdapterRetries     int
	VisionBatchSize    int
}

// ParseRequest is one upload: the raw stream, the caller's declared
// metadata, and the owning identity. It lives for a single pipeline run
// and is never persisted by the parser.
type ParseRequest struct {
	Body         io.Reader
	DeclaredSize int64
	DeclaredMIME string
	UserID       string
}

// Result is the validated document plus the run facts callers report and
// persist. Raw carries the verified upload bytes so the caller can archive
// them; the parser itself stores nothing.
type Result struct {
	Resume     *models.Resume
	Decision   MergeDecision
	Links      []string
	Reconciled bool
	Raw        []byte
}

// Parser coordinates one pipeline run per call. It is safe for concurrent
// use; runs share nothing but the worker pool inside the strategies.
type Parser struct {
	cfg       Config
	primary   Strategy
	secondary Strategy
	combiner  Combiner
	repairer  Repairer
	logger    *slog.Logger
}

func New(cfg Config, primary, secondary Strategy, combiner Combiner, repairer Repairer, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		cfg:       cfg,
		primary:   primary,
		secondary: secondary,
		combiner:  combiner,
		repairer:  repairer,
		logger:    logger,
	}
}

// Parse runs the full pipeline for one upload and returns the validated
// document or a typed error (ValidationError, ExtractionFailedError,
// UnparsableResultError, schema.ValidationError).
func (p *Parser) Parse(ctx context.Context, req ParseRequest) (*Result, error) {
	logger := p.logger.With("userId", req.UserID)

	// The declared type is client-supplied and only worth a note; sniffing
	// in Preprocess decides what the upload actually is.
	if req.DeclaredMIME != "" && req.DeclaredMIME != "application/pdf" {
		logger.Warn("Declared content type is not PDF; trusting content sniffing.", "declaredType", req.DeclaredMIME)
	}

	ps, err := Preprocess(req.Body, req.DeclaredSize, p.cfg.MaxFileSizeBytes)
	if err != nil {
		return nil, err
	}
	return p.process(ctx, logger, ps)
}

// process is the pipeline after preprocessing: fan out, join, route,
// combine, repair, validate.
func (p *Parser) process(ctx context.Context, logger *slog.Logger, ps *PageSet) (*Result, error) {
	decision := Decide(ps.PageCount, p.cfg.PageCountThreshold)
	logger = logger.With("pageCount", ps.PageCount)
	logger.Info("Starting resume extraction.", "decision", decision.Action, "threshold", decision.Threshold)

	// Link extraction and both OCR strategies have no data dependency on
	// each other; they run concurrently and join before the routing verdict
	// is applied. Strategy failures are captured per result, not raised, so
	// one slow branch never cancels its sibling.
	var (
		primaryRes   OcrResult
		secondaryRes OcrResult
		links        []string
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		links = ExtractLinks(ps.Raw)
		return nil
	})
	eg.Go(func() error {
		text, err := p.primary.Extract(gctx, ps)
		primaryRes = OcrResult{Source: SourcePrimary, Text: text, Err: err}
		return nil
	})
	eg.Go(func() error {
		text, err := p.secondary.Extract(gctx, ps)
		secondaryRes = OcrResult{Source: SourceSecondary, Text: text, Err: err}
		return nil
	})
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Debug("Fan-out joined.", "linkCount", len(links), "primaryOk", primaryRes.OK(), "secondaryOk", secondaryRes.OK())

	var raw string
	reconciled := false
	switch {
	case !primaryRes.OK() && !secondaryRes.OK():
		logger.Error("Both OCR strategies failed.", "primaryError", primaryRes.Err, "secondaryError", secondaryRes.Err)
		return nil, &ExtractionFailedError{PrimaryErr: primaryRes.Err, SecondaryErr: secondaryRes.Err}
	case !primaryRes.OK():
		logger.Warn("Primary OCR failed; vision output is authoritative.", "error", primaryRes.Err)
		raw = secondaryRes.Text
	case !secondaryRes.OK():
		logger.Warn("Vision OCR failed; structured-document output is authoritative.", "error", secondaryRes.Err)
		raw = primaryRes.Text
	case decision.Action == Reconcile:
		combined, err := p.combiner.Combine(ctx, primaryRes.Text, secondaryRes.Text, links)
		if err != nil {
			logger.Warn("Reconciliation failed; falling back to structured-document output.", "error", err)
			raw = primaryRes.Text
		} else {
			raw = combined
			reconciled = true
		}
	default:
		raw = primaryRes.Text
	}

	doc, err := parseWithRepair(ctx, logger, p.repairer, raw, links)
	if err != nil {
		return nil, err
	}

	doc = schema.Normalize(doc)
	if err := schema.Validate(doc); err != nil {
		logger.Error("Normalized document failed schema validation.", "error", err)
		return nil, err
	}

	resume, err := models.ResumeFromMap(doc)
	if err != nil {
		return nil, fmt.Errorf("decoding normalized document: %w", err)
	}

	logger.Info("Resume extraction complete.", "reconciled", reconciled)
	return &Result{
		Resume:     resume,
		Decision:   decision,
		Links:      links,
		Reconciled: reconciled,
		Raw:        ps.Raw,
	}, nil
}
