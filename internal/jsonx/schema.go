package jsonx

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// verdictSchema is the strict contract every adjudication response must
// satisfy before its fields are trusted.
const verdictSchema = `{
	"type": "object",
	"required": ["verdict"],
	"properties": {
		"verdict": {"type": "string"},
		"confidence": {"type": "number"},
		"reasoning": {"type": "string"}
	}
}`

// verdictListSchema is the contract for batched verification responses.
const verdictListSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["index"],
		"properties": {
			"index": {"type": "integer"},
			"true_positive": {"type": "boolean"},
			"confidence": {"type": "number"},
			"reason": {"type": "string"}
		}
	}
}`

var (
	schemaOnce    sync.Once
	verdictSch    *jsonschema.Schema
	verdictLstSch *jsonschema.Schema
	schemaErr     error
)

func compileSchemas() {
	compile := func(name, text string) (*jsonschema.Schema, error) {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
		if err != nil {
			return nil, fmt.Errorf("jsonx: unmarshal %s: %w", name, err)
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(name, doc); err != nil {
			return nil, fmt.Errorf("jsonx: add %s: %w", name, err)
		}
		sch, err := c.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("jsonx: compile %s: %w", name, err)
		}
		return sch, nil
	}

	verdictSch, schemaErr = compile("verdict.json", verdictSchema)
	if schemaErr != nil {
		return
	}
	verdictLstSch, schemaErr = compile("verdict_list.json", verdictListSchema)
}

// ValidateVerdict checks a raw JSON object against the single-verdict schema.
func ValidateVerdict(raw string) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	return validate(verdictSch, raw)
}

// ValidateVerdictList checks a raw JSON array against the batch schema.
func ValidateVerdictList(raw string) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	return validate(verdictLstSch, raw)
}

func validate(sch *jsonschema.Schema, raw string) error {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return err
	}
	return sch.Validate(value)
}
