// Package api contains the HTTP layer: routing, request binding, and response formatting.
package api

import (
	"encoding/json"
	"net/http"
)

// ─── Response envelope ────────────────────────────────────────────────────────

// envelope is the standard wrapper for all API responses.
// Success responses set `error` to nil; error responses set `data` to nil.
type envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned in the envelope.
const (
	codeInvalidJSON  = "INVALID_JSON"
	codeValidation   = "VALIDATION_ERROR"
	codeTooLarge     = "TOO_LARGE"
	codeNoVerifier   = "VERIFIER_UNAVAILABLE"
	codeBatchRunning = "BATCH_RUNNING"
	codeNotFound     = "NOT_FOUND"
)

// ─── Response helpers ─────────────────────────────────────────────────────────

// writeJSON serialises v into the response body with the given status code.
// Encoding errors after the header is sent are ignored.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ok writes a 200 response with the payload wrapped in the standard envelope.
func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

// fail writes an error envelope.
func fail(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Error: &apiError{Code: code, Message: message}})
}

// badRequest writes a 400 error response.
func badRequest(w http.ResponseWriter, code, message string) {
	fail(w, http.StatusBadRequest, code, message)
}

// notFound writes a 404 error response.
func notFound(w http.ResponseWriter, message string) {
	fail(w, http.StatusNotFound, codeNotFound, message)
}

// conflict writes a 409 error response.
func conflict(w http.ResponseWriter, code, message string) {
	fail(w, http.StatusConflict, code, message)
}
