package domain

// PayloadKind discriminates how a callback payload travels on the wire
type PayloadKind string

const (
	// PayloadText carries translated text in the callback query string
	PayloadText PayloadKind = "text"
	// PayloadDocument carries a base64 encoded document in the callback body
	PayloadDocument PayloadKind = "document"
)

// Callback query parameter names
const (
	QueryRequestID         = "request-id"
	QueryTargetLanguage    = "target-language"
	QueryExternalReference = "external-reference"
	QueryTranslatedText    = "translated-text"
)

// Delivery attempt outcomes
const (
	DeliveryStatusDelivered = "DELIVERED"
	DeliveryStatusFailed    = "FAILED"
)
