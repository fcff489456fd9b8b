package parser

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// fakeStrategy stands in for an OCR path; tests inject outputs or failures
// and observe whether the path was exercised.
type fakeStrategy struct {
	source Source
	text   string
	err    error
	calls  int
}

func (f *fakeStrategy) Source() Source { return f.source }

func (f *fakeStrategy) Extract(_ context.Context, _ *PageSet) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeCombiner struct {
	out          string
	err          error
	calls        int
	gotPrimary   string
	gotSecondary string
	gotLinkCount int
}

func (f *fakeCombiner) Combine(_ context.Context, primary, secondary string, links []string) (string, error) {
	f.calls++
	f.gotPrimary = primary
	f.gotSecondary = secondary
	f.gotLinkCount = len(links)
	return f.out, f.err
}

const minimalResume = `{"personal_information": {"name": "Marco", "surname": "Rossi"}}`

func pageSet(pages int) *PageSet {
	ps := &PageSet{
		Raw:       []byte("%PDF-1.7 /URI (https://github.com/example)"),
		PageCount: pages,
	}
	for i := 0; i < pages; i++ {
		ps.Pages = append(ps.Pages, []byte("%PDF-1.7 page"))
	}
	return ps
}

func newTestParser(threshold int, primary, secondary Strategy, combiner Combiner) *Parser {
	return New(Config{
		MaxFileSizeBytes:   10 << 20,
		PageCountThreshold: threshold,
	}, primary, secondary, combiner, &fakeRepairer{}, discardLogger())
}

func TestProcessReconciles(t *testing.T) {
	primary := &fakeStrategy{source: SourcePrimary, text: "layout text"}
	secondary := &fakeStrategy{source: SourceSecondary, text: minimalResume}
	combiner := &fakeCombiner{out: minimalResume}
	p := newTestParser(5, primary, secondary, combiner)

	res, err := p.process(context.Background(), discardLogger(), pageSet(2))
	if err != nil {
		t.Fatal(err)
	}
	if combiner.calls != 1 {
		t.Fatalf("combiner calls = %d, want 1", combiner.calls)
	}
	if combiner.gotPrimary != "layout text" || combiner.gotSecondary != minimalResume {
		t.Errorf("combiner received wrong inputs: %q / %q", combiner.gotPrimary, combiner.gotSecondary)
	}
	if combiner.gotLinkCount != 1 {
		t.Errorf("combiner received %d links, want 1", combiner.gotLinkCount)
	}
	if !res.Reconciled {
		t.Error("result not marked reconciled")
	}
	if got := *res.Resume.PersonalInformation.Name; got != "Marco" {
		t.Errorf("name = %q, want Marco", got)
	}
	if res.Decision.Action != Reconcile {
		t.Errorf("decision = %q, want RECONCILE", res.Decision.Action)
	}
}

func TestProcessPassthroughSkipsCombiner(t *testing.T) {
	primary := &fakeStrategy{source: SourcePrimary, text: minimalResume}
	secondary := &fakeStrategy{source: SourceSecondary, text: `{"interests": ["chess"]}`}
	combiner := &fakeCombiner{out: "must not be used"}
	p := newTestParser(5, primary, secondary, combiner)

	res, err := p.process(context.Background(), discardLogger(), pageSet(6))
	if err != nil {
		t.Fatal(err)
	}
	if combiner.calls != 0 {
		t.Fatalf("combiner invoked on the pass-through path")
	}
	if res.Reconciled {
		t.Error("pass-through result marked reconciled")
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("both strategies must still run: primary %d, secondary %d", primary.calls, secondary.calls)
	}
	if got := *res.Resume.PersonalInformation.Name; got != "Marco" {
		t.Errorf("name = %q, want Marco (primary authoritative)", got)
	}
}

func TestProcessPrimaryFailureSkipsCombiner(t *testing.T) {
	primary := &fakeStrategy{source: SourcePrimary, err: errors.New("service down")}
	secondary := &fakeStrategy{source: SourceSecondary, text: minimalResume}
	combiner := &fakeCombiner{out: "must not be used"}
	p := newTestParser(5, primary, secondary, combiner)

	res, err := p.process(context.Background(), discardLogger(), pageSet(2))
	if err != nil {
		t.Fatal(err)
	}
	if combiner.calls != 0 {
		t.Fatal("combiner invoked with a failed strategy")
	}
	if res.Reconciled {
		t.Error("degraded result marked reconciled")
	}
	if got := *res.Resume.PersonalInformation.Name; got != "Marco" {
		t.Errorf("survivor output not authoritative: name = %q", got)
	}
}

func TestProcessSecondaryFailureSkipsCombiner(t *testing.T) {
	primary := &fakeStrategy{source: SourcePrimary, text: minimalResume}
	secondary := &fakeStrategy{source: SourceSecondary, err: errors.New("model refused")}
	combiner := &fakeCombiner{out: "must not be used"}
	p := newTestParser(5, primary, secondary, combiner)

	res, err := p.process(context.Background(), discardLogger(), pageSet(2))
	if err != nil {
		t.Fatal(err)
	}
	if combiner.calls != 0 {
		t.Fatal("combiner invoked with a failed strategy")
	}
	if got := *res.Resume.PersonalInformation.Name; got != "Marco" {
		t.Errorf("survivor output not authoritative: name = %q", got)
	}
}

func TestProcessBothFail(t *testing.T) {
	primary := &fakeStrategy{source: SourcePrimary, err: errors.New("service down")}
	secondary := &fakeStrategy{source: SourceSecondary, err: errors.New("model refused")}
	combiner := &fakeCombiner{}
	p := newTestParser(5, primary, secondary, combiner)

	_, err := p.process(context.Background(), discardLogger(), pageSet(2))
	var extraction *ExtractionFailedError
	if !errors.As(err, &extraction) {
		t.Fatalf("err = %v, want ExtractionFailedError", err)
	}
	if extraction.PrimaryErr == nil || extraction.SecondaryErr == nil {
		t.Errorf("both causes must be carried: %+v", extraction)
	}
	if combiner.calls != 0 {
		t.Error("combiner invoked with no successful strategy")
	}
}

func TestProcessCombinerFailureDegrades(t *testing.T) {
	primary := &fakeStrategy{source: SourcePrimary, text: minimalResume}
	secondary := &fakeStrategy{source: SourceSecondary, text: `{"interests": ["chess"]}`}
	combiner := &fakeCombiner{err: errors.New("merge refused")}
	p := newTestParser(5, primary, secondary, combiner)

	res, err := p.process(context.Background(), discardLogger(), pageSet(2))
	if err != nil {
		t.Fatalf("combiner failure must degrade, not fail: %v", err)
	}
	if res.Reconciled {
		t.Error("degraded result marked reconciled")
	}
	if got := *res.Resume.PersonalInformation.Name; got != "Marco" {
		t.Errorf("expected primary output after degradation, name = %q", got)
	}
}

func TestProcessNormalizesBeforeValidation(t *testing.T) {
	// Booleans and numbers are what vision models actually return; they must
	// be coerced before the schema gate, not rejected by it.
	messy := `{"personal_information": {"name": "Marco", "phone": 123456}, "work_preferences": {"remote_work": true}, "unknown_key": "dropped"}`
	primary := &fakeStrategy{source: SourcePrimary, text: messy}
	secondary := &fakeStrategy{source: SourceSecondary, err: errors.New("down")}
	p := newTestParser(5, primary, secondary, &fakeCombiner{})

	res, err := p.process(context.Background(), discardLogger(), pageSet(1))
	if err != nil {
		t.Fatal(err)
	}
	if got := *res.Resume.PersonalInformation.Phone; got != "123456" {
		t.Errorf("phone = %q, want coerced string", got)
	}
	if got := *res.Resume.WorkPreferences.RemoteWork; got != "Yes" {
		t.Errorf("remote_work = %q, want Yes", got)
	}
}

func TestProcessUnparsableAfterRepair(t *testing.T) {
	primary := &fakeStrategy{source: SourcePrimary, text: "prose, not JSON"}
	secondary := &fakeStrategy{source: SourceSecondary, err: errors.New("down")}
	p := New(Config{PageCountThreshold: 5}, primary, secondary, &fakeCombiner{},
		&fakeRepairer{out: "still prose"}, discardLogger())

	_, err := p.process(context.Background(), discardLogger(), pageSet(1))
	var unparsable *UnparsableResultError
	if !errors.As(err, &unparsable) {
		t.Fatalf("err = %v, want UnparsableResultError", err)
	}
}

func TestProcessCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	primary := &fakeStrategy{source: SourcePrimary, text: minimalResume}
	secondary := &fakeStrategy{source: SourceSecondary, text: minimalResume}
	p := newTestParser(5, primary, secondary, &fakeCombiner{out: minimalResume})

	_, err := p.process(ctx, discardLogger(), pageSet(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestParseRejectsOversizedUpload(t *testing.T) {
	p := newTestParser(5, &fakeStrategy{source: SourcePrimary}, &fakeStrategy{source: SourceSecondary}, &fakeCombiner{})
	p.cfg.MaxFileSizeBytes = 16

	_, err := p.Parse(context.Background(), ParseRequest{
		Body:         strings.NewReader(strings.Repeat("x", 64)),
		DeclaredSize: 64,
		UserID:       "user-1",
	})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

// captureHandler records log messages so tests can assert on them.
type captureHandler struct {
	mu   *sync.Mutex
	msgs *[]string
}

func (h captureHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.msgs = append(*h.msgs, r.Message)
	return nil
}
func (h captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h captureHandler) WithGroup(string) slog.Handler      { return h }

func TestParseLogsDeclaredTypeMismatch(t *testing.T) {
	var mu sync.Mutex
	var msgs []string
	logger := slog.New(captureHandler{mu: &mu, msgs: &msgs})

	primary := &fakeStrategy{source: SourcePrimary, text: minimalResume}
	secondary := &fakeStrategy{source: SourceSecondary, text: minimalResume}
	p := New(Config{MaxFileSizeBytes: 1 << 20, PageCountThreshold: 5},
		primary, secondary, &fakeCombiner{out: minimalResume}, &fakeRepairer{}, logger)

	pdf := buildPDF(t, 1)
	res, err := p.Parse(context.Background(), ParseRequest{
		Body:         bytes.NewReader(pdf),
		DeclaredSize: int64(len(pdf)),
		DeclaredMIME: "application/octet-stream",
		UserID:       "user-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := *res.Resume.PersonalInformation.Name; got != "Marco" {
		t.Errorf("name = %q, want Marco", got)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, m := range msgs {
		if strings.Contains(m, "Declared content type") {
			return
		}
	}
	t.Error("declared-type mismatch was not logged")
}

func TestParseRejectsNonPDF(t *testing.T) {
	p := newTestParser(5, &fakeStrategy{source: SourcePrimary}, &fakeStrategy{source: SourceSecondary}, &fakeCombiner{})

	_, err := p.Parse(context.Background(), ParseRequest{
		Body:         strings.NewReader("plain text, definitely not a PDF"),
		DeclaredSize: 32,
		DeclaredMIME: "application/pdf",
		UserID:       "user-1",
	})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}
