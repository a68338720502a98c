package dto

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed translate_request.schema.json
var translateRequestSchemaJSON string

// ErrInvalidRequest wraps every decode or schema failure of a translate request
var ErrInvalidRequest = errors.New("invalid translate request")

// TranslateRequest is the body of POST /api/v1/translate, field names as
// the eTranslation API spells them
type TranslateRequest struct {
	DocumentToTranslateBase64 *Document          `json:"documentToTranslateBase64,omitempty"`
	TextToTranslate           *string            `json:"textToTranslate,omitempty"`
	SourceLanguage            string             `json:"sourceLanguage,omitempty"`
	TargetLanguages           []string           `json:"targetLanguages"`
	ErrorCallback             string             `json:"errorCallback,omitempty"`
	CallerInformation         *CallerInformation `json:"callerInformation,omitempty"`
	Destinations              *Destinations      `json:"destinations,omitempty"`
	RequesterCallback         string             `json:"requesterCallback,omitempty"`
	Domain                    string             `json:"domain,omitempty"`
	ExternalReference         string             `json:"externalReference,omitempty"`
}

type Document struct {
	Content  string `json:"content"`
	Format   string `json:"format"`
	Filename string `json:"filename,omitempty"`
}

type CallerInformation struct {
	Application string `json:"application,omitempty"`
}

type Destinations struct {
	HTTPDestinations []string `json:"httpDestinations,omitempty"`
}

// CallbackDestinations returns destinations.httpDestinations when that list
// is present, otherwise requesterCallback, otherwise nil
func (r *TranslateRequest) CallbackDestinations() []string {
	if r.Destinations != nil && r.Destinations.HTTPDestinations != nil {
		return r.Destinations.HTTPDestinations
	}
	if strings.TrimSpace(r.RequesterCallback) != "" {
		return []string{r.RequesterCallback}
	}
	return nil
}

// Application returns the caller's application name, if given
func (r *TranslateRequest) Application() string {
	if r.CallerInformation == nil {
		return ""
	}
	return r.CallerInformation.Application
}

// ParseTranslateRequest decodes raw as a single JSON object and validates it
// against the embedded schema
func ParseTranslateRequest(raw []byte) (*TranslateRequest, error) {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrInvalidRequest, err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize body: %w", err)
	}

	var req TranslateRequest
	if err := json.Unmarshal(normalized, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	return &req, nil
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("translate_request.schema.json", strings.NewReader(translateRequestSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		compiledSchema, compiledSchemaErr = compiler.Compile("translate_request.schema.json")
	})

	return compiledSchema, compiledSchemaErr
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("body is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("body contains trailing content")
	}

	return value, nil
}
