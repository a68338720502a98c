package storage

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// Attempt is one recorded outbound callback call
type Attempt struct {
	AttemptID      string    `db:"attempt_id" json:"attempt_id"`
	RequestID      string    `db:"request_id" json:"request_id"`
	Destination    string    `db:"destination" json:"destination"`
	TargetLanguage string    `db:"target_language" json:"target_language"`
	PayloadKind    string    `db:"payload_kind" json:"payload_kind"`
	Attempt        int       `db:"attempt" json:"attempt"`
	Status         string    `db:"status" json:"status"`
	StatusCode     int       `db:"status_code" json:"status_code,omitempty"`
	ResponseBody   string    `db:"response_body" json:"response_body,omitempty"`
	ErrorMessage   string    `db:"error_message" json:"error_message,omitempty"`
	DurationMS     int64     `db:"duration_ms" json:"duration_ms"`
	WorkerName     string    `db:"worker_name" json:"worker_name"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Log records delivery attempts so callers can inspect what was sent
type Log interface {
	Record(ctx context.Context, attempt *Attempt) error
	ListByRequest(ctx context.Context, requestID string) ([]Attempt, error)
}

// maxResponseBody bounds how much of a callback response is kept per attempt
const maxResponseBody = 4096

// TruncateBody shortens a response body to at most maxResponseBody bytes
// without splitting a UTF-8 sequence. Invalid bytes become U+FFFD, as
// Postgres TEXT columns reject them.
func TruncateBody(body string) string {
	if len(body) > maxResponseBody {
		cut := maxResponseBody
		for cut > maxResponseBody-utf8.UTFMax && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	if utf8.ValidString(body) {
		return body
	}
	return strings.ToValidUTF8(body, "\uFFFD")
}
