package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/resumedocumentflow/internal/gcp"
)

// Repairer re-queries a language model once to turn near-JSON (or, on the
// pass-through path, plain OCR text) into valid JSON against the resume
// schema. The extracted links ride along so the pass-through path keeps
// them.
type Repairer interface {
	RepairJSON(ctx context.Context, raw string, links []string) (string, error)
}

// VertexRepairer is the single bounded re-query behind the local repair
// pass.
type VertexRepairer struct {
	model   *genai.GenerativeModel
	pool    *WorkerPool
	timeout time.Duration
	logger  *slog.Logger
}

func NewVertexRepairer(model *genai.GenerativeModel, pool *WorkerPool, timeout time.Duration, logger *slog.Logger) *VertexRepairer {
	return &VertexRepairer{model: model, pool: pool, timeout: timeout, logger: logger}
}

func (r *VertexRepairer) RepairJSON(ctx context.Context, raw string, links []string) (string, error) {
	prompt := gcp.RepairPrompt(raw, links)
	var out string
	err := r.pool.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		resp, err := r.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return fmt.Errorf("repair model: %w", err)
		}
		out = gcp.ResponseText(resp)
		if out == "" {
			return errors.New("repair model returned an empty response")
		}
		return nil
	})
	return out, err
}

// decodeObject parses a JSON object, tolerating trailing junk after the
// closing brace.
func decodeObject(s string) (map[string]any, error) {
	var doc map[string]any
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(s)))
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("document is null")
	}
	return doc, nil
}

// RepairLocal applies the bounded structural pass to near-valid JSON:
// markdown fences and leading prose are stripped, bare keys and bare
// string values are quoted, trailing commas are dropped, and unterminated
// strings, objects and arrays are closed. It is a best-effort transform;
// callers decide whether the result parses.
func RepairLocal(raw string) string {
	s := stripFences(strings.TrimSpace(raw))
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s
	}
	s = s[start:]

	var out []byte
	var stack []byte
	inStr := false
	esc := false
	lastSig := byte(0)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			out = append(out, c)
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
				lastSig = '"'
			}
			continue
		}
		switch {
		case c == '"':
			inStr = true
			out = append(out, c)
		case c == '{' || c == '[':
			stack = append(stack, c)
			out = append(out, c)
			lastSig = c
		case c == '}' || c == ']':
			out = dropTrailingComma(out)
			if len(stack) == 0 || stack[len(stack)-1] != opener(c) {
				continue // stray closer
			}
			stack = stack[:len(stack)-1]
			out = append(out, c)
			lastSig = c
		case isSpace(c):
			out = append(out, c)
		case isWordStart(c):
			if i > 0 && isDigit(s[i-1]) {
				// Exponent suffix of a number token, e.g. 1e5.
				out = append(out, c)
				lastSig = c
				continue
			}
			j := i
			for j < len(s) && isWordChar(s[j]) {
				j++
			}
			word := s[i:j]
			if keyPosition(stack, lastSig) || !isJSONLiteral(word) {
				out = append(out, '"')
				out = append(out, word...)
				out = append(out, '"')
			} else {
				out = append(out, word...)
			}
			lastSig = '"'
			i = j - 1
		default:
			out = append(out, c)
			lastSig = c
		}
	}

	if inStr {
		out = append(out, '"')
	}
	out = dropTrailingComma(out)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			out = append(out, '}')
		} else {
			out = append(out, ']')
		}
	}
	return string(out)
}

func stripFences(s string) string {
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// keyPosition reports whether a bare word at this point names an object
// key rather than a value.
func keyPosition(stack []byte, lastSig byte) bool {
	if len(stack) == 0 || stack[len(stack)-1] != '{' {
		return false
	}
	return lastSig == '{' || lastSig == ','
}

func dropTrailingComma(out []byte) []byte {
	i := len(out) - 1
	for i >= 0 && isSpace(out[i]) {
		i--
	}
	if i >= 0 && out[i] == ',' {
		return append(out[:i], out[i+1:]...)
	}
	return out
}

func opener(closer byte) byte {
	if closer == '}' {
		return '{'
	}
	return '['
}

func isJSONLiteral(word string) bool {
	return word == "true" || word == "false" || word == "null"
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordChar(c byte) bool {
	return isWordStart(c) || (c >= '0' && c <= '9')
}

// parseWithRepair turns raw model text into a document map: direct parse,
// then the local structural pass, then a single model re-query. Exhaustion
// surfaces UnparsableResult with the last text attempted.
func parseWithRepair(ctx context.Context, logger *slog.Logger, repairer Repairer, raw string, links []string) (map[string]any, error) {
	if doc, err := decodeObject(raw); err == nil {
		return doc, nil
	}
	if doc, err := decodeObject(RepairLocal(raw)); err == nil {
		logger.Warn("Combined output required local JSON repair.")
		return doc, nil
	}
	if repairer == nil {
		return nil, &UnparsableResultError{Raw: raw, Err: errors.New("no repairer configured")}
	}

	logger.Warn("Local JSON repair failed, re-querying the model once.")
	fixed, err := repairer.RepairJSON(ctx, raw, links)
	if err != nil {
		return nil, &UnparsableResultError{Raw: raw, Err: err}
	}
	if doc, err := decodeObject(fixed); err == nil {
		return doc, nil
	}
	doc, err := decodeObject(RepairLocal(fixed))
	if err != nil {
		return nil, &UnparsableResultError{Raw: fixed, Err: err}
	}
	return doc, nil
}
