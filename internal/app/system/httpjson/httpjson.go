// Package httpjson writes and reads the JSON bodies of the API.
package httpjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxBody bounds JSON request bodies.
const DefaultMaxBody = 1 << 20

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// Write encodes v with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) {
	Write(w, http.StatusOK, v)
}

// Error writes {"error": msg} with the given status.
func Error(w http.ResponseWriter, status int, msg string) {
	Write(w, status, ErrorBody{Error: msg})
}

// Generic messages. Denials and absences share NotFound so callers cannot
// tell them apart.
const (
	MsgUnauthorized = "unauthorized"
	MsgForbidden    = "forbidden"
	MsgNotFound     = "not found"
	MsgUnavailable  = "temporarily unavailable, retry"
	MsgInternal     = "internal error"
)

// NotFound writes the generic 404.
func NotFound(w http.ResponseWriter) { Error(w, http.StatusNotFound, MsgNotFound) }

// Unavailable writes the generic 503 used for store and blob failures.
func Unavailable(w http.ResponseWriter) { Error(w, http.StatusServiceUnavailable, MsgUnavailable) }

// ErrBadJSON is returned by Decode for malformed bodies.
var ErrBadJSON = errors.New("malformed JSON body")

// Decode reads a JSON body of at most maxBytes into dst.
// Pass maxBytes <= 0 for DefaultMaxBody.
func Decode(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBody
	}
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadJSON)
		}
		return fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	return nil
}
