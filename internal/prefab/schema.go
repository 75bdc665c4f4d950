package prefab

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed prefab_function.schema.json
var embeddedSchema []byte

const embeddedSchemaURL = "mem:///prefab_function.schema.json"

var (
	schemaCacheMu sync.Mutex
	schemaCache   = make(map[string]*jsonschema.Schema)
)

// Validator checks records against the library schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the schema at path, or the built-in schema when path
// is empty. Compiled schemas are cached per absolute path.
func NewValidator(path string) (*Validator, error) {
	schema, err := loadCompiledSchema(path)
	if err != nil {
		return nil, fmt.Errorf("failed to compile prefab function schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

func loadCompiledSchema(path string) (*jsonschema.Schema, error) {
	key := embeddedSchemaURL
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		key = abs
	}

	schemaCacheMu.Lock()
	if cached, ok := schemaCache[key]; ok {
		schemaCacheMu.Unlock()
		return cached, nil
	}
	schemaCacheMu.Unlock()

	compiler := jsonschema.NewCompiler()
	var (
		compiled *jsonschema.Schema
		err      error
	)
	if path == "" {
		if err := compiler.AddResource(embeddedSchemaURL, bytes.NewReader(embeddedSchema)); err != nil {
			return nil, err
		}
		compiled, err = compiler.Compile(embeddedSchemaURL)
	} else {
		compiled, err = compiler.Compile("file://" + filepath.ToSlash(key))
	}
	if err != nil {
		return nil, err
	}

	schemaCacheMu.Lock()
	schemaCache[key] = compiled
	schemaCacheMu.Unlock()
	return compiled, nil
}

// ValidateRaw validates one decoded record. The schema describes a library,
// so the record is wrapped in a single-element array.
func (v *Validator) ValidateRaw(record any) error {
	if v == nil || v.schema == nil {
		return nil
	}
	if err := v.schema.Validate([]any{record}); err != nil {
		return fmt.Errorf("prefab function schema validation failed: %w", err)
	}
	return nil
}

// Validate normalises fn through JSON before validating it.
func (v *Validator) Validate(fn *Function) error {
	if fn == nil {
		return fmt.Errorf("prefab function is nil")
	}
	raw, err := json.Marshal(fn)
	if err != nil {
		return fmt.Errorf("failed to marshal prefab function for schema validation: %w", err)
	}
	var record any
	if err := json.Unmarshal(raw, &record); err != nil {
		return fmt.Errorf("failed to normalize prefab function for schema validation: %w", err)
	}
	return v.ValidateRaw(record)
}
