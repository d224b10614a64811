package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/vibe8n/agentloop/pkg/log"
)

const schemaBaseURL = "https://agentloop.local/tools/"

// DecodeArguments parses an argument payload into an object. An empty payload
// is treated as "{}".
func DecodeArguments(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// ValidateArguments checks args against the descriptor's input schema:
// required properties, property types, enums and the rest of JSON Schema.
// A schema that does not compile is skipped and left to the provider.
func ValidateArguments(descriptor Descriptor, raw json.RawMessage) error {
	if _, err := DecodeArguments(raw); err != nil {
		return err
	}

	if len(bytes.TrimSpace(descriptor.InputSchema)) == 0 {
		return nil
	}

	schema, err := compileSchema(descriptor)
	if err != nil {
		log.Debug("Skipping argument check for %s: %v", descriptor.Name, err)
		return nil
	}

	payload := bytes.TrimSpace(raw)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		payload = []byte("{}")
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("arguments must be a JSON object: %w", err)
	}

	return schema.Validate(instance)
}

func compileSchema(descriptor Descriptor) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(descriptor.InputSchema))
	if err != nil {
		return nil, err
	}

	location := schemaBaseURL + url.PathEscape(descriptor.Name) + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(location, doc); err != nil {
		return nil, err
	}
	return c.Compile(location)
}
