package storage

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const checkpointSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["record_id", "book_key", "status"],
    "properties": {
      "record_id": {"type": "string", "minLength": 1},
      "book_key": {"type": "string", "minLength": 1},
      "status": {"enum": ["FOUND", "MISSING"]},
      "match_method": {"type": ["string", "null"]},
      "title": {"type": ["string", "null"]},
      "isbn": {"type": ["string", "null"]},
      "pages": {"type": ["string", "null"]},
      "authors": {"type": ["array", "null"], "items": {"type": "string"}},
      "subjects": {"type": ["array", "null"], "items": {"type": "string"}},
      "summary": {"type": ["string", "null"]},
      "publisher": {"type": ["string", "null"]},
      "year": {"type": ["integer", "null"]}
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(checkpointSchema)

// validate checks data against the checkpoint schema. Syntax errors surface
// here as well.
func validate(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		msgs = append(msgs, field+": "+desc.Description())
	}
	return fmt.Errorf("schema violation: %s", strings.Join(msgs, "; "))
}
