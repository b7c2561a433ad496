// Package accountschema validates admin account payloads against an
// embedded JSON Schema before they touch the account store.
package accountschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed account_payload.schema.json
var accountPayloadSchemaJSON string

type AccountPayload struct {
	Provider      string            `json:"provider"`
	ID            string            `json:"id"`
	Name          string            `json:"name,omitempty"`
	Credentials   map[string]string `json:"credentials"`
	Enabled       *bool             `json:"enabled,omitempty"`
	Quota         int64             `json:"quota"`
	Period        string            `json:"period,omitempty"`
	CycleStartDay int               `json:"cycle_start_day,omitempty"`
	CycleEndDay   int               `json:"cycle_end_day,omitempty"`
	CycleStart    *string           `json:"cycle_start,omitempty"`
	CycleEnd      *string           `json:"cycle_end,omitempty"`
	RPS           int               `json:"rps,omitempty"`
	SourceLang    string            `json:"source_lang,omitempty"`
	TargetLang    string            `json:"target_lang,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

func ValidateAccountPayload(payload json.RawMessage) (*AccountPayload, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var item AccountPayload
	if err := json.Unmarshal(normalized, &item); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&item); err != nil {
		return nil, err
	}

	return &item, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("account_payload.schema.json", strings.NewReader(accountPayloadSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("account_payload.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(item *AccountPayload) error {
	if item == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(item.ID) == "" {
		return fmt.Errorf("id must not be empty")
	}
	for name, value := range item.Credentials {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(value) == "" {
			return fmt.Errorf("credentials must not contain blank names or values")
		}
	}

	if item.CycleStartDay != 0 || item.CycleEndDay != 0 {
		if item.CycleStartDay == 0 || item.CycleEndDay == 0 {
			return fmt.Errorf("cycle_start_day and cycle_end_day must be set together")
		}
	}

	if item.CycleStart != nil {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(*item.CycleStart)); err != nil {
			return fmt.Errorf("cycle_start must be RFC3339: %w", err)
		}
	}
	if item.CycleEnd != nil {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(*item.CycleEnd)); err != nil {
			return fmt.Errorf("cycle_end must be RFC3339: %w", err)
		}
	}
	if item.CycleStart != nil && item.CycleEnd == nil || item.CycleStart == nil && item.CycleEnd != nil {
		return fmt.Errorf("cycle_start and cycle_end must be set together")
	}

	return nil
}
