package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source resolves a keystore passphrase from an environment variable or by
// prompting on the terminal. The first successful value is cached.
type Source struct {
	envVar  string
	label   string
	confirm bool

	isTerminal   func(fd int) bool
	readPassword func(fd int) ([]byte, error)
	prompt       io.Writer

	once  sync.Once
	value string
	err   error
}

// NewSource constructs a passphrase source that checks envVar before
// prompting for the keystore named by label.
func NewSource(envVar, label string) *Source {
	if strings.TrimSpace(label) == "" {
		label = "keystore"
	}
	return &Source{
		envVar:       strings.TrimSpace(envVar),
		label:        label,
		isTerminal:   term.IsTerminal,
		readPassword: term.ReadPassword,
		prompt:       os.Stderr,
	}
}

// WithConfirmation makes interactive prompts ask twice. Used when a new
// keystore is written.
func (s *Source) WithConfirmation() *Source {
	s.confirm = true
	return s
}

// Get returns the cached passphrase or resolves it on first use.
// Whitespace-only passphrases are rejected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		s.value, s.err = s.resolve()
	})
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.envVar != "" {
		if value, ok := os.LookupEnv(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%s is set but empty", s.envVar)
			}
			return value, nil
		}
	}

	fd := int(os.Stdin.Fd())
	if !s.isTerminal(fd) {
		if s.envVar != "" {
			return "", fmt.Errorf("%s passphrase required; set %s or run interactively", s.label, s.envVar)
		}
		return "", fmt.Errorf("%s passphrase required and no terminal available", s.label)
	}

	passphrase, err := s.read(fd, fmt.Sprintf("Enter %s passphrase: ", s.label))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(passphrase) == "" {
		return "", fmt.Errorf("%s passphrase cannot be empty", s.label)
	}
	if s.confirm {
		again, err := s.read(fd, fmt.Sprintf("Repeat %s passphrase: ", s.label))
		if err != nil {
			return "", err
		}
		if again != passphrase {
			return "", errors.New("passphrases do not match")
		}
	}
	return passphrase, nil
}

func (s *Source) read(fd int, prompt string) (string, error) {
	fmt.Fprint(s.prompt, prompt)
	raw, err := s.readPassword(fd)
	fmt.Fprintln(s.prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(raw), nil
}
