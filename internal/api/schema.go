package api

// schema.go validates JSON request bodies against embedded JSON schemas before they are decoded
// into workflow types. Coordinates, pages and field ids are re-checked by the workflow engine; the
// schema rejects structurally wrong bodies with a readable message.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/information-sharing-networks/docsign/internal/workflow"
)

const placeFieldsSchemaURL = "https://docsign.local/schemas/place-fields.json"

const placeFieldsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["fields"],
  "additionalProperties": false,
  "properties": {
    "fields": {
      "type": "array",
      "maxItems": 500,
      "items": {
        "type": "object",
        "required": ["type", "ownerRecipient", "page", "x", "y"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "string", "maxLength": 64},
          "type": {"type": "string", "minLength": 1, "maxLength": 32},
          "value": {"type": "string", "maxLength": 4096},
          "ownerRecipient": {"type": "string", "minLength": 3, "maxLength": 254},
          "page": {"type": "integer", "minimum": 1},
          "x": {"type": "number", "minimum": 0},
          "y": {"type": "number", "minimum": 0}
        }
      }
    }
  }
}`

const recipientsSchemaURL = "https://docsign.local/schemas/recipients.json"

const recipientsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "minItems": 1,
  "maxItems": 100,
  "items": {
    "type": "object",
    "required": ["email"],
    "additionalProperties": false,
    "properties": {
      "name": {"type": "string", "maxLength": 200},
      "email": {"type": "string", "minLength": 3, "maxLength": 254}
    }
  }
}`

var (
	schemaOnce          sync.Once
	placeFieldsCompiled *jsonschema.Schema
	recipientsCompiled  *jsonschema.Schema
	schemaErr           error
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	for url, src := range map[string]string{
		placeFieldsSchemaURL: placeFieldsSchema,
		recipientsSchemaURL:  recipientsSchema,
	} {
		if err := c.AddResource(url, strings.NewReader(src)); err != nil {
			schemaErr = fmt.Errorf("failed to add schema %s: %w", url, err)
			return
		}
	}

	placeFieldsCompiled, schemaErr = c.Compile(placeFieldsSchemaURL)
	if schemaErr != nil {
		return
	}
	recipientsCompiled, schemaErr = c.Compile(recipientsSchemaURL)
}

// DecodePlaceFieldsRequest validates and decodes a PUT /fields body.
func DecodePlaceFieldsRequest(body []byte) (PlaceFieldsRequest, error) {
	var req PlaceFieldsRequest
	if err := validateAndDecode(body, func() *jsonschema.Schema { return placeFieldsCompiled }, &req); err != nil {
		return PlaceFieldsRequest{}, err
	}
	return req, nil
}

// DecodeRecipients validates and decodes the recipients form value of an upload.
func DecodeRecipients(raw string) ([]workflow.Recipient, error) {
	var recipients []workflow.Recipient
	if err := validateAndDecode([]byte(raw), func() *jsonschema.Schema { return recipientsCompiled }, &recipients); err != nil {
		return nil, err
	}
	return recipients, nil
}

func validateAndDecode(body []byte, schema func() *jsonschema.Schema, target any) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return WrapInternalError(schemaErr, "request schema unavailable")
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return NewMalformedRequestError("request body is empty")
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return WrapMalformedRequestError(err, "invalid JSON")
	}

	if err := schema().Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return NewMalformedRequestError(schemaMessage(ve))
		}
		return WrapMalformedRequestError(err, "request does not match schema")
	}

	if err := json.Unmarshal(body, target); err != nil {
		return WrapMalformedRequestError(err, "invalid JSON")
	}
	return nil
}

// schemaMessage returns the most specific cause of a validation failure.
func schemaMessage(ve *jsonschema.ValidationError) string {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	loc := leaf.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, leaf.Message)
}
