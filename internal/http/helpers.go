package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// maxBodyBytes caps request bodies; the API carries small JSON documents.
const maxBodyBytes = 1 << 20

// parseLimit extracts an optional positive row limit from query parameters.
// Zero means no limit.
func parseLimit(r *http.Request) int {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// pathID extracts the trailing path segment after prefix, e.g. the id in
// /api/transactions/<id>. Empty when the path has no segment or a subpath.
func pathID(r *http.Request, prefix string) string {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

// decodeJSONBody decodes a request body into dst, rejecting unknown fields
// and oversized payloads.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// A second decode succeeding means trailing garbage after the document.
	if dec.More() {
		return errors.New("unexpected trailing data in request body")
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
