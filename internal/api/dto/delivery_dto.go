package dto

import "github.com/kebal2/etranslation-mock/internal/worker/storage"

// ListDeliveriesResponse is returned by GET /api/v1/translate/:request_id/deliveries
type ListDeliveriesResponse struct {
	RequestID string            `json:"request_id"`
	Count     int               `json:"count"`
	Attempts  []storage.Attempt `json:"attempts"`
}

// ErrorResponse is the JSON error body of the inspection endpoints
type ErrorResponse struct {
	Error string `json:"error"`
}
