// Package passphrase resolves the keystore passphrase for the CLI.
package passphrase

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"onecoupon/observability/logging"
)

// EnvVar is consulted before prompting.
const EnvVar = "ONECOUPON_KEYSTORE_PASSPHRASE"

// Source lazily resolves a keystore passphrase from an environment variable
// or by prompting on the terminal. The value is cached after the first
// successful retrieval.
type Source struct {
	origin string
	envVar string
	lookup func(string) (string, bool)
	prompt func(label string) (string, error)

	once  sync.Once
	value string
	err   error
}

// NewSource builds a source that checks envVar before prompting on stdin.
func NewSource(envVar string) *Source {
	envVar = strings.TrimSpace(envVar)
	return &Source{
		origin: "env " + envVar + " or terminal",
		envVar: envVar,
		lookup: os.LookupEnv,
		prompt: terminalPrompt(os.Stdin, os.Stderr),
	}
}

// Static returns a source that always yields value. Used by tests and
// non-interactive callers.
func Static(value string) *Source {
	s := &Source{origin: "static"}
	s.once.Do(func() {
		if strings.TrimSpace(value) == "" {
			s.err = errors.New("keystore passphrase cannot be empty")
			return
		}
		s.value = value
	})
	return s
}

// Get returns the cached passphrase or resolves it on the first call.
// Whitespace-only passphrases are rejected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		if s.envVar != "" && s.lookup != nil {
			if value, ok := s.lookup(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = value
				return
			}
		}
		if s.prompt == nil {
			s.err = fmt.Errorf("keystore passphrase required; set %s", s.envVar)
			return
		}
		value, err := s.prompt("Enter keystore passphrase: ")
		if err != nil {
			s.err = err
			return
		}
		if strings.TrimSpace(value) == "" {
			s.err = errors.New("keystore passphrase cannot be empty")
			return
		}
		s.value = value
	})
	return s.value, s.err
}

// LogValue describes where the passphrase comes from. The value itself is
// always masked.
func (s *Source) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("origin", s.origin),
		logging.MaskField("passphrase", s.origin),
	)
}

func terminalPrompt(in *os.File, out io.Writer) func(string) (string, error) {
	return func(label string) (string, error) {
		if !term.IsTerminal(int(in.Fd())) {
			return "", fmt.Errorf("keystore passphrase required; set %s or run interactively", EnvVar)
		}
		fmt.Fprint(out, label)
		raw, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		return string(raw), nil
	}
}
