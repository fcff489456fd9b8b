// Package schema owns the resume document shape: the embedded JSON schema,
// validation against it, and the field-inclusion normalization that runs
// before validation.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed resume.schema.json
var resumeSchemaJSON []byte

var resumeSchema = jsonschema.MustCompileString("resume.schema.json", string(resumeSchemaJSON))

// schemaDoc is the parsed schema document the normalizer walks. Parsed once
// at init; the file is embedded, so failure here is a build defect.
var schemaDoc = mustParseSchemaDoc()

func mustParseSchemaDoc() map[string]any {
	var doc map[string]any
	if err := json.Unmarshal(resumeSchemaJSON, &doc); err != nil {
		panic(fmt.Sprintf("schema: embedded resume.schema.json is invalid: %v", err))
	}
	return doc
}

// ValidationError reports a structurally valid JSON document that does not
// match the resume schema, naming the offending instance path.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	path := e.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("schema violation at %s: %s", path, e.Message)
}

// Validate checks a document against the resume schema. Run Normalize
// first; validation does not mutate.
func Validate(doc map[string]any) error {
	err := resumeSchema.Validate(any(doc))
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		leaf := deepestCause(ve)
		return &ValidationError{Path: leaf.InstanceLocation, Message: leaf.Message}
	}
	return err
}

func deepestCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
