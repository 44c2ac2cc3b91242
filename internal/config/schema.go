package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonrepair"
	"github.com/loykin/mailrelay/pkg/extract"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed descriptors.schema.json
var descriptorsSchema []byte

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("descriptors.schema.json", bytes.NewReader(descriptorsSchema)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("descriptors.schema.json")
	})
	return compiledSchema, compileErr
}

// ParseDescriptorsJSON validates a descriptor array against the embedded
// schema and decodes it. Hand-edited arrays with trailing commas or single
// quotes are repaired first.
func ParseDescriptorsJSON(data string) ([]extract.Descriptor, error) {
	if strings.TrimSpace(data) == "" {
		return nil, nil
	}
	if !json.Valid([]byte(data)) {
		repaired, err := jsonrepair.JSONRepair(data)
		if err != nil {
			return nil, fmt.Errorf("descriptors_json: not valid JSON and could not be repaired: %w", err)
		}
		data = repaired
	}
	var doc interface{}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("descriptors_json: %w", err)
	}
	s, err := schema()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(doc); err != nil {
		return nil, fmt.Errorf("descriptors_json does not match schema: %w", err)
	}
	return extract.ParseDescriptors([]byte(data))
}
