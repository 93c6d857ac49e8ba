package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema checks structured values against a JSON schema. A failed check is
// advisory: it is reported to the user but never blocks a save.
type Schema struct {
	path   string
	schema *jsonschema.Schema
}

// LoadSchema compiles the JSON schema at path.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(path, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(path)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{path: path, schema: schema}, nil
}

// Path returns the file the schema was loaded from.
func (s *Schema) Path() string {
	return s.path
}

// Check validates the payload of c. Plain text is never checked.
func (s *Schema) Check(c Classified) error {
	if s == nil || !c.Kind.Structured() {
		return nil
	}
	return s.CheckJSON(c.Payload())
}

// CheckJSON validates a JSON document. Numbers are decoded as json.Number so
// large integers are checked without precision loss.
func (s *Schema) CheckJSON(doc string) error {
	if s == nil {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return fmt.Errorf("decode instance: %w", err)
	}
	if err := s.schema.Validate(instance); err != nil {
		return err
	}
	return nil
}
