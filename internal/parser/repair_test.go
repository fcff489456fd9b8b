package parser

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func mustParse(t *testing.T, s string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		t.Fatalf("repaired output does not parse: %v\n%s", err, s)
	}
	return doc
}

func TestRepairLocal(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{
			"unquoted key and trailing comma",
			`{"personal_information": {"name": "Marco", surname: "Rossi",}}`,
		},
		{
			"markdown fences",
			"```json\n{\"personal_information\": {\"name\": \"Marco\"}}\n```",
		},
		{
			"leading prose before the object",
			`Here is the resume: {"personal_information": {"name": "Marco"}}`,
		},
		{
			"unterminated string and unbalanced braces",
			`{"personal_information": {"name": "Marco`,
		},
		{
			"trailing comma in array",
			`{"interests": ["chess", "running",]}`,
		},
		{
			"bare word value",
			`{"personal_information": {"name": Marco}}`,
		},
		{
			"stray closing bracket",
			`{"interests": ["chess"]]}`,
		},
		{
			"literals survive",
			`{"a": null, "b": true, "c": false}`,
		},
		{
			"exponent number with trailing comma",
			`{"a": 1e5,}`,
		},
		{
			"signed exponent",
			`{"a": 1.2E+3, "b": 7e-2,}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RepairLocal(tt.in)
			mustParse(t, out)
		})
	}
}

func TestRepairLocalKeepsExponentNumbers(t *testing.T) {
	doc := mustParse(t, RepairLocal(`{"a": 1e5, "b": 1.2E+3,}`))
	if doc["a"] != 1e5 {
		t.Errorf("a = %v, want 100000", doc["a"])
	}
	if doc["b"] != 1.2e3 {
		t.Errorf("b = %v, want 1200", doc["b"])
	}
}

func TestRepairLocalPreservesContent(t *testing.T) {
	in := `{"personal_information": {"name": "Marco", surname: "Rossi",}}`
	doc := mustParse(t, RepairLocal(in))
	pi, _ := doc["personal_information"].(map[string]any)
	if pi["name"] != "Marco" || pi["surname"] != "Rossi" {
		t.Errorf("repair lost content: %v", pi)
	}
}

func TestRepairLocalValidInputUnchanged(t *testing.T) {
	in := `{"a": "b", "c": [1, 2], "d": {"e": null}}`
	out := RepairLocal(in)
	var want, got any
	if err := json.Unmarshal([]byte(in), &want); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("valid input broken by repair: %v\n%s", err, out)
	}
	wantJSON, _ := json.Marshal(want)
	gotJSON, _ := json.Marshal(got)
	if string(wantJSON) != string(gotJSON) {
		t.Errorf("repair changed valid JSON: got %s, want %s", gotJSON, wantJSON)
	}
}

type fakeRepairer struct {
	out   string
	err   error
	calls int
	last  string
}

func (f *fakeRepairer) RepairJSON(_ context.Context, raw string, _ []string) (string, error) {
	f.calls++
	f.last = raw
	return f.out, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestParseWithRepairDirect(t *testing.T) {
	rep := &fakeRepairer{}
	doc, err := parseWithRepair(context.Background(), discardLogger(), rep, `{"interests": ["chess"]}`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rep.calls != 0 {
		t.Errorf("model re-query used for valid JSON")
	}
	if _, ok := doc["interests"]; !ok {
		t.Errorf("parsed document missing content: %v", doc)
	}
}

func TestParseWithRepairLocalPass(t *testing.T) {
	rep := &fakeRepairer{}
	doc, err := parseWithRepair(context.Background(), discardLogger(), rep, `{"interests": ["chess",]}`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rep.calls != 0 {
		t.Errorf("model re-query used where the local pass suffices")
	}
	if _, ok := doc["interests"]; !ok {
		t.Errorf("parsed document missing content: %v", doc)
	}
}

func TestParseWithRepairReQuery(t *testing.T) {
	// Plain prose with no object start defeats the local pass.
	raw := "The resume describes Marco Rossi, a software engineer."
	rep := &fakeRepairer{out: `{"personal_information": {"name": "Marco"}}`}
	doc, err := parseWithRepair(context.Background(), discardLogger(), rep, raw, []string{"https://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if rep.calls != 1 {
		t.Errorf("re-query calls = %d, want 1", rep.calls)
	}
	if !strings.Contains(rep.last, "Marco Rossi") {
		t.Errorf("re-query did not receive the raw text")
	}
	if _, ok := doc["personal_information"]; !ok {
		t.Errorf("parsed document missing content: %v", doc)
	}
}

func TestParseWithRepairExhausted(t *testing.T) {
	raw := "still not JSON"
	rep := &fakeRepairer{out: "also not JSON"}
	_, err := parseWithRepair(context.Background(), discardLogger(), rep, raw, nil)
	var unparsable *UnparsableResultError
	if !errors.As(err, &unparsable) {
		t.Fatalf("err = %v, want UnparsableResultError", err)
	}
	if rep.calls != 1 {
		t.Errorf("re-query calls = %d, want exactly 1", rep.calls)
	}
}

func TestParseWithRepairModelError(t *testing.T) {
	rep := &fakeRepairer{err: errors.New("quota exhausted")}
	_, err := parseWithRepair(context.Background(), discardLogger(), rep, "not JSON", nil)
	var unparsable *UnparsableResultError
	if !errors.As(err, &unparsable) {
		t.Fatalf("err = %v, want UnparsableResultError", err)
	}
}
