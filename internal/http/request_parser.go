package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"pointsledger/internal/core"
)

const maxBodyBytes = 64 << 10

// RequestBodyParser reads a JSON object or a form-encoded body once and
// serves string fields from it. The browser front-end posts JSON; form
// posts come from curl and older pages.
type RequestBodyParser struct {
	jsonData map[string]any
	formData url.Values
}

// ParseRequestBody reads and parses r's body. An empty body parses to no
// fields.
func ParseRequestBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, core.InvalidRequest("Invalid request body.")
	}
	p := &RequestBodyParser{}
	trimmed := strings.TrimSpace(string(body))
	switch {
	case trimmed == "":
		p.formData = url.Values{}
	case trimmed[0] == '{':
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			return nil, core.InvalidRequest("Invalid request body.")
		}
	default:
		if p.formData, err = url.ParseQuery(trimmed); err != nil {
			return nil, core.InvalidRequest("Invalid request body.")
		}
	}
	return p, nil
}

// Get returns the trimmed field, with control characters removed.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		return sanitizeInput(stringValue(p.jsonData[key]))
	}
	return sanitizeInput(p.formData.Get(key))
}

var errNotInteger = errors.New("not an integer")

// Int parses an integer field. JSON numbers and numeric strings are both
// accepted; a missing field is an error.
func (p *RequestBodyParser) Int(key string) (int, error) {
	v := p.Get(key)
	if v == "" {
		return 0, errNotInteger
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errNotInteger
	}
	return n, nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput trims and drops control characters other than tab and
// newlines.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
