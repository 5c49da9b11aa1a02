// Package httpx provides helper functions for writing JSON HTTP responses.
package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/caresync-health/platform/pkg/common/errs"
	"github.com/caresync-health/platform/pkg/common/logger"
)

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Warn("failed to encode response")
	}
}

// Error writes {"error": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// Fail maps a domain error onto its status code. The message is reported as
// is, storage failures included.
func Fail(w http.ResponseWriter, err error) {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Log.WithError(err).Error("request failed")
	}
	Error(w, status, err.Error())
}

// DecodeBody reads an arbitrary JSON document keeping numbers as json.Number.
// An empty body decodes to an empty object; anything after the first value
// is rejected.
func DecodeBody(r *http.Request) (interface{}, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errs.Wrap(errs.KindInvalidPayload, "request body too large", err)
		}
		return nil, errs.Wrap(errs.KindInvalidPayload, "invalid request body", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]interface{}{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, errs.Wrap(errs.KindInvalidPayload, "invalid request body", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errs.New(errs.KindInvalidPayload, "invalid request body: unexpected data after JSON value")
	}
	return payload, nil
}
