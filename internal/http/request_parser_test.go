package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pointsledger/internal/ledger"
)

func parse(t *testing.T, body string) *RequestBodyParser {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	p, err := ParseRequestBody(httptest.NewRecorder(), r)
	if err != nil {
		t.Fatalf("ParseRequestBody(%q) error = %v", body, err)
	}
	return p
}

func TestParseRequestBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		key  string
		want string
	}{
		{"json string", `{"studentName":"  Mona "}`, "studentName", "Mona"},
		{"json number", `{"points":5}`, "points", "5"},
		{"json missing", `{"points":5}`, "reason", ""},
		{"json null", `{"reason":null}`, "reason", ""},
		{"form", "studentName=Mona&points=5", "points", "5"},
		{"empty body", "", "studentName", ""},
		{"control characters", `{"reason":"good\u0007 job"}`, "reason", "good job"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parse(t, tt.body).Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestParseRequestBodyRejectsBadJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"points":`))
	if _, err := ParseRequestBody(httptest.NewRecorder(), r); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseRequestBodyLimit(t *testing.T) {
	big := `{"reason":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	if _, err := ParseRequestBody(httptest.NewRecorder(), r); err == nil {
		t.Fatal("expected error for oversized body")
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		body    string
		want    int
		wantErr bool
	}{
		{`{"points":7}`, 7, false},
		{`{"points":"7"}`, 7, false},
		{`{"points":-2}`, -2, false},
		{`{"points":2.5}`, 0, true},
		{`{"points":"seven"}`, 0, true},
		{`{}`, 0, true},
	}
	for _, tt := range tests {
		got, err := parse(t, tt.body).Int("points")
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("Int() on %s = %d, %v; want %d, err %v", tt.body, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestResolveActor(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		fallback   string
		wantName   string
		wantPolicy string
	}{
		{"ra field", `{"RAsName":"Zara"}`, "", "Zara", ledger.PolicyRA},
		{"excor field", `{"excorName":"Omar"}`, "", "Omar", ledger.PolicyEXCOR},
		{"generic field uses fallback", `{"actorName":"Omar"}`, ledger.PolicyEXCOR, "Omar", ledger.PolicyEXCOR},
		{"generic field defaults to ra", `{"actorName":"Zara"}`, "", "Zara", ledger.PolicyRA},
		{"explicit policy wins", `{"RAsName":"Omar","policy":"excor"}`, "", "Omar", "excor"},
		{"no name", `{}`, ledger.PolicyEXCOR, "", ledger.PolicyEXCOR},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, policy := resolveActor(parse(t, tt.body), tt.fallback)
			if name != tt.wantName || policy != tt.wantPolicy {
				t.Errorf("resolveActor() = %q, %q; want %q, %q", name, policy, tt.wantName, tt.wantPolicy)
			}
		})
	}
}
