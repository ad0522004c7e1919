package server

import (
	"encoding/json"
	"errors"

	"github.com/becomeliminal/nim-memory/memory"
)

// Request is one call sent by a client.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers the Request with the same ID. Exactly one of Result and
// Error is set.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *Error      `json:"error,omitempty"`
}

// Error codes.
const (
	CodeUnknownMethod = "unknown_method"
	CodeInvalidParams = "invalid_params"
	CodeInvalidFact   = "invalid_fact"
	CodeNotFound      = "not_found"
	CodeConflict      = "conflict"
	CodePersistFailed = "persist_failed"
	CodeUnavailable   = "unavailable"
	CodeInternal      = "internal"
)

// Error is a failed call.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func toError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	var persistErr *memory.PersistError
	switch {
	case errors.As(err, &persistErr):
		return &Error{Code: CodePersistFailed, Message: err.Error()}
	case errors.Is(err, memory.ErrInvalidFact):
		return &Error{Code: CodeInvalidFact, Message: err.Error()}
	case errors.Is(err, memory.ErrConflict):
		return &Error{Code: CodeConflict, Message: err.Error()}
	default:
		return &Error{Code: CodeInternal, Message: err.Error()}
	}
}
