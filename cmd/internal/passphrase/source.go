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
// prompting on the terminal. The first result is cached.
type Source struct {
	envVar string
	prompt string

	// overridable in tests
	stdin     *os.File
	stderr    io.Writer
	isTerm    func(fd int) bool
	readInput func(fd int) ([]byte, error)

	once  sync.Once
	value string
	err   error
}

// NewSource checks envVar before prompting with prompt.
func NewSource(envVar, prompt string) *Source {
	if strings.TrimSpace(prompt) == "" {
		prompt = "Enter keystore passphrase: "
	}
	return &Source{
		envVar:    strings.TrimSpace(envVar),
		prompt:    prompt,
		stdin:     os.Stdin,
		stderr:    os.Stderr,
		isTerm:    term.IsTerminal,
		readInput: term.ReadPassword,
	}
}

// Get returns the cached passphrase or resolves it on first use. An env value
// is taken verbatim; whitespace-only passphrases are rejected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := os.LookupEnv(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = value
				return
			}
		}

		fd := int(s.stdin.Fd())
		if !s.isTerm(fd) {
			if s.envVar != "" {
				s.err = fmt.Errorf("keystore passphrase required; set %s or run interactively", s.envVar)
			} else {
				s.err = errors.New("keystore passphrase required and no terminal available")
			}
			return
		}

		fmt.Fprint(s.stderr, s.prompt)
		bytes, err := s.readInput(fd)
		fmt.Fprintln(s.stderr)
		if err != nil {
			s.err = fmt.Errorf("failed to read passphrase: %w", err)
			return
		}

		passphrase := string(bytes)
		if strings.TrimSpace(passphrase) == "" {
			s.err = errors.New("keystore passphrase cannot be empty")
			return
		}
		s.value = passphrase
	})

	return s.value, s.err
}
