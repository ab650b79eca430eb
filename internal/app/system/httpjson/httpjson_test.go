package httpjson_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
)

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	httpjson.Error(rec, http.StatusConflict, "post is not pending")

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var body httpjson.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Error != "post is not pending" {
		t.Errorf("error: got %q", body.Error)
	}
}

func TestDecode(t *testing.T) {
	var dst struct {
		Reason string `json:"reason"`
	}

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"reason":"duplicate"}`))
	if err := httpjson.Decode(httptest.NewRecorder(), req, &dst, 0); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if dst.Reason != "duplicate" {
		t.Errorf("reason: got %q", dst.Reason)
	}

	for name, body := range map[string]string{"empty": "", "garbage": "{nope", "too large": `{"reason":"` + strings.Repeat("x", 64) + `"}`} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(body))
			err := httpjson.Decode(httptest.NewRecorder(), req, &dst, 32)
			if !errors.Is(err, httpjson.ErrBadJSON) {
				t.Errorf("expected ErrBadJSON, got %v", err)
			}
		})
	}
}
