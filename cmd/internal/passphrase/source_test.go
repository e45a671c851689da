package passphrase

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestSourcePrefersEnvironment(t *testing.T) {
	prompted := false
	s := &Source{
		envVar: EnvVar,
		lookup: func(key string) (string, bool) { return "hunter2", key == EnvVar },
		prompt: func(string) (string, error) { prompted = true; return "", nil },
	}
	got, err := s.Get()
	if err != nil || got != "hunter2" {
		t.Fatalf("unexpected passphrase %q, err %v", got, err)
	}
	if prompted {
		t.Fatalf("prompt must not run when the env var is set")
	}
}

func TestSourceRejectsBlank(t *testing.T) {
	s := &Source{
		envVar: EnvVar,
		lookup: func(string) (string, bool) { return "   ", true },
	}
	if _, err := s.Get(); err == nil {
		t.Fatalf("expected blank env passphrase to be rejected")
	}
	if _, err := Static(" ").Get(); err == nil {
		t.Fatalf("expected blank static passphrase to be rejected")
	}
}

func TestSourceCachesPrompt(t *testing.T) {
	calls := 0
	s := &Source{
		lookup: func(string) (string, bool) { return "", false },
		prompt: func(string) (string, error) { calls++; return "correct horse", nil },
	}
	for i := 0; i < 2; i++ {
		got, err := s.Get()
		if err != nil || got != "correct horse" {
			t.Fatalf("unexpected passphrase %q, err %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one prompt, got %d", calls)
	}
}

func TestSourcePromptError(t *testing.T) {
	boom := errors.New("no tty")
	s := &Source{prompt: func(string) (string, error) { return "", boom }}
	if _, err := s.Get(); !errors.Is(err, boom) {
		t.Fatalf("expected prompt error, got %v", err)
	}
}

func TestSourceLogValueMasksPassphrase(t *testing.T) {
	s := Static("hunter2")
	if _, err := s.Get(); err != nil {
		t.Fatalf("get: %v", err)
	}
	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("unlocking keystore", "passphrase_source", s)
	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Fatalf("passphrase leaked: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") || !strings.Contains(out, "static") {
		t.Fatalf("expected masked static source, got %s", out)
	}
}
