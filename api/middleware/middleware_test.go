package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/angelmondragon/aitools-scraper/api/responses"
	pkgerrors "github.com/angelmondragon/aitools-scraper/pkg/errors"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

func TestRequestIDPropagatesHeader(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "api-test"})
	handler := RequestID(logg)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "req-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected generated request id")
	}
}

func TestRequestIDReplacesMalformedHeader(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = responses.RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "bad id\nwith newline")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	got := rec.Header().Get("X-Request-Id")
	if got == "" || strings.ContainsAny(got, " \n") {
		t.Fatalf("expected generated request id, got %q", got)
	}
	if seen != got {
		t.Fatalf("expected context id %q, got %q", got, seen)
	}
}

func TestLoggingRecordsStatus(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "api-test", Level: zerolog.InfoLevel, Output: buf})
	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/tools/slug/nope", nil))

	if !strings.Contains(buf.String(), `"status":404`) {
		t.Fatalf("expected status in log output, got %s", buf.String())
	}
}

func TestLoggingCountsBytes(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "api-test", Level: zerolog.InfoLevel, Output: buf})
	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	out := buf.String()
	if !strings.Contains(out, `"bytes":5`) || !strings.Contains(out, `"status":200`) {
		t.Fatalf("expected bytes and status in log output, got %s", out)
	}
	if strings.Count(out, "request.complete") != 1 {
		t.Fatalf("expected a single completion line, got %s", out)
	}
}

func TestRecovererReturnsInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", payload.Error.Code)
	}
}

func TestRecovererRepanicsOnAbort(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	handler := CORS([]string{"https://seohub.example"})(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil)
	req.Header.Set("Origin", "https://seohub.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://seohub.example" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}
