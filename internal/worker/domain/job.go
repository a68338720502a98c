package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Job describes one callback deliverable: a payload sent to a single
// destination once per target language. A Job is immutable after construction.
type Job struct {
	destination       url.URL
	trackingCode      string
	externalReference string
	targetLanguages   []string
	kind              PayloadKind
	payload           string
}

// NewTextJob creates a job whose payload travels in the translated-text query parameter
func NewTextJob(destination, trackingCode, externalReference string, targetLanguages []string, text string) (*Job, error) {
	return newJob(destination, trackingCode, externalReference, targetLanguages, PayloadText, text)
}

// NewDocumentJob creates a job whose base64 payload travels in the request body
func NewDocumentJob(destination, trackingCode, externalReference string, targetLanguages []string, documentBase64 string) (*Job, error) {
	return newJob(destination, trackingCode, externalReference, targetLanguages, PayloadDocument, documentBase64)
}

func newJob(destination, trackingCode, externalReference string, targetLanguages []string, kind PayloadKind, payload string) (*Job, error) {
	u, err := url.Parse(strings.TrimSpace(destination))
	if err != nil {
		return nil, fmt.Errorf("%w: destination %q: %v", ErrInvalidJob, destination, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: destination %q is not an absolute URI", ErrInvalidJob, destination)
	}

	if trackingCode == "" {
		return nil, fmt.Errorf("%w: tracking code is required", ErrInvalidJob)
	}

	if len(targetLanguages) == 0 {
		return nil, fmt.Errorf("%w: at least one target language is required", ErrInvalidJob)
	}
	for i, lang := range targetLanguages {
		if strings.TrimSpace(lang) == "" {
			return nil, fmt.Errorf("%w: target language %d is empty", ErrInvalidJob, i)
		}
	}

	switch kind {
	case PayloadText, PayloadDocument:
	default:
		return nil, fmt.Errorf("%w: unknown payload kind %q", ErrInvalidJob, kind)
	}

	langs := make([]string, len(targetLanguages))
	copy(langs, targetLanguages)

	return &Job{
		destination:       *u,
		trackingCode:      trackingCode,
		externalReference: externalReference,
		targetLanguages:   langs,
		kind:              kind,
		payload:           payload,
	}, nil
}

// Destination returns a copy of the callback endpoint
func (j *Job) Destination() *url.URL {
	u := j.destination
	return &u
}

func (j *Job) TrackingCode() string      { return j.trackingCode }
func (j *Job) ExternalReference() string { return j.externalReference }
func (j *Job) Kind() PayloadKind         { return j.kind }
func (j *Job) Payload() string           { return j.payload }

// TargetLanguages returns a copy of the ordered language list
func (j *Job) TargetLanguages() []string {
	langs := make([]string, len(j.targetLanguages))
	copy(langs, j.targetLanguages)
	return langs
}

// LanguageCount returns the number of deliveries this job fans out to
func (j *Job) LanguageCount() int {
	return len(j.targetLanguages)
}

// jobMessage is the broker wire form of a Job
type jobMessage struct {
	Destination       string      `json:"destination"`
	TrackingCode      string      `json:"tracking_code"`
	ExternalReference string      `json:"external_reference,omitempty"`
	TargetLanguages   []string    `json:"target_languages"`
	Kind              PayloadKind `json:"kind"`
	Payload           string      `json:"payload"`
}

func (j *Job) MarshalJSON() ([]byte, error) {
	return json.Marshal(jobMessage{
		Destination:       j.destination.String(),
		TrackingCode:      j.trackingCode,
		ExternalReference: j.externalReference,
		TargetLanguages:   j.targetLanguages,
		Kind:              j.kind,
		Payload:           j.payload,
	})
}

// UnmarshalJSON decodes a job and re-applies the constructor invariants
func (j *Job) UnmarshalJSON(data []byte) error {
	var msg jobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}

	decoded, err := newJob(msg.Destination, msg.TrackingCode, msg.ExternalReference, msg.TargetLanguages, msg.Kind, msg.Payload)
	if err != nil {
		return err
	}

	*j = *decoded
	return nil
}
