package env

import "testing"

func TestFirstPrefersEarlierKeys(t *testing.T) {
	t.Setenv("AITOOLS_LOG_FORMAT", "")
	t.Setenv("LOG_FORMAT", "console")

	if got := First("json", "AITOOLS_LOG_FORMAT", "LOG_FORMAT"); got != "console" {
		t.Fatalf("expected console, got %q", got)
	}

	t.Setenv("AITOOLS_LOG_FORMAT", "json")
	if got := First("x", "AITOOLS_LOG_FORMAT", "LOG_FORMAT"); got != "json" {
		t.Fatalf("expected json, got %q", got)
	}
}

func TestFirstFallback(t *testing.T) {
	t.Setenv("PORT", "")
	if got := First("8080", "PORT"); got != "8080" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := First("8080"); got != "8080" {
		t.Fatalf("expected fallback with no keys, got %q", got)
	}
}
