package assessment

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed assessment.schema.json
var schemaJSON string

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("assessment.schema.json", schemaJSON)
})

// Validate checks a against the published assessment schema.
func Validate(a Assessment) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile assessment schema: %w", err)
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode assessment: %w", err)
	}
	return schema.Validate(doc)
}
