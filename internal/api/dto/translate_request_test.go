package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTranslateRequest_Valid(t *testing.T) {
	raw := []byte(`{
		"textToTranslate": "hello",
		"sourceLanguage": "EN",
		"targetLanguages": ["DE", "FR"],
		"callerInformation": {"application": "tester"},
		"destinations": {"httpDestinations": ["http://localhost:9000/cb"]},
		"requesterCallback": "http://ignored/cb",
		"externalReference": "ext-1",
		"domain": "GEN"
	}`)

	req, err := ParseTranslateRequest(raw)
	require.NoError(t, err)

	require.NotNil(t, req.TextToTranslate)
	assert.Equal(t, "hello", *req.TextToTranslate)
	assert.Nil(t, req.DocumentToTranslateBase64)
	assert.Equal(t, []string{"DE", "FR"}, req.TargetLanguages)
	assert.Equal(t, "tester", req.Application())
	assert.Equal(t, "ext-1", req.ExternalReference)
	assert.Equal(t, []string{"http://localhost:9000/cb"}, req.CallbackDestinations())
}

func TestParseTranslateRequest_Document(t *testing.T) {
	raw := []byte(`{
		"documentToTranslateBase64": {"content": "PHA+eDwvcD4=", "format": "HTML", "filename": "x.html"},
		"textToTranslate": null,
		"targetLanguages": ["en"],
		"destinations": null,
		"requesterCallback": "http://localhost:9000/cb"
	}`)

	req, err := ParseTranslateRequest(raw)
	require.NoError(t, err)

	require.NotNil(t, req.DocumentToTranslateBase64)
	assert.Equal(t, "HTML", req.DocumentToTranslateBase64.Format)
	assert.Nil(t, req.TextToTranslate)
	assert.Equal(t, "", req.Application())
	assert.Equal(t, []string{"http://localhost:9000/cb"}, req.CallbackDestinations())
}

func TestParseTranslateRequest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty body", raw: ""},
		{name: "null body", raw: "null"},
		{name: "not json", raw: "{"},
		{name: "array body", raw: `["en"]`},
		{name: "trailing content", raw: `{"targetLanguages":["en"]} {}`},
		{name: "missing target languages", raw: `{"textToTranslate":"x"}`},
		{name: "empty target languages", raw: `{"textToTranslate":"x","targetLanguages":[]}`},
		{name: "target language not a string", raw: `{"textToTranslate":"x","targetLanguages":[1]}`},
		{name: "document without format", raw: `{"documentToTranslateBase64":{"content":"eA=="},"targetLanguages":["en"]}`},
		{name: "destinations not a list", raw: `{"targetLanguages":["en"],"destinations":{"httpDestinations":"http://x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseTranslateRequest([]byte(tt.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Nil(t, req)
		})
	}
}

func TestCallbackDestinations(t *testing.T) {
	tests := []struct {
		name string
		req  TranslateRequest
		want []string
	}{
		{
			name: "destinations win over requester callback",
			req: TranslateRequest{
				Destinations:      &Destinations{HTTPDestinations: []string{"http://a", "http://b"}},
				RequesterCallback: "http://c",
			},
			want: []string{"http://a", "http://b"},
		},
		{
			name: "present but empty destination list",
			req: TranslateRequest{
				Destinations:      &Destinations{HTTPDestinations: []string{}},
				RequesterCallback: "http://c",
			},
			want: []string{},
		},
		{
			name: "destinations without a list fall back",
			req: TranslateRequest{
				Destinations:      &Destinations{},
				RequesterCallback: "http://c",
			},
			want: []string{"http://c"},
		},
		{
			name: "requester callback fallback",
			req:  TranslateRequest{RequesterCallback: "http://c"},
			want: []string{"http://c"},
		},
		{
			name: "none",
			req:  TranslateRequest{RequesterCallback: "  "},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.CallbackDestinations())
		})
	}
}
