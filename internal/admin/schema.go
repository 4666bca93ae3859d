package admin

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	jsval "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ferro-labs/keyguard"
)

const recordSchemaURL = "keyguard://schemas/key-record.json"

// RecordSchema reflects KeyRecord into a JSON schema and compiles it once so
// admin request bodies can be validated before they reach the store.
type RecordSchema struct {
	raw      []byte
	compiled *jsval.Schema
}

// NewRecordSchema builds the schema for keyguard.KeyRecord.
func NewRecordSchema() (*RecordSchema, error) {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
		Anonymous:                  true,
	}
	schema := reflector.Reflect(&keyguard.KeyRecord{})
	schema.Title = "Key record"
	schema.Description = "Metadata stored for a single API key"

	raw, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal key record schema: %w", err)
	}

	compiler := jsval.NewCompiler()
	compiler.Draft = jsval.Draft2020
	compiler.AssertFormat = true
	if err := compiler.AddResource(recordSchemaURL, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add key record schema: %w", err)
	}
	compiled, err := compiler.Compile(recordSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile key record schema: %w", err)
	}
	return &RecordSchema{raw: raw, compiled: compiled}, nil
}

// JSON returns the reflected schema document.
func (s *RecordSchema) JSON() []byte { return s.raw }

// Validate checks a raw JSON body against the schema.
func (s *RecordSchema) Validate(body []byte) error {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := s.compiled.Validate(doc); err != nil {
		return err
	}
	return nil
}
