// Package handlers provides the HTTP API handlers for the presence server.
package handlers

// ErrorResponse is the standard API error body (message only).
type ErrorResponse struct {
	Message string `json:"message"`
}
