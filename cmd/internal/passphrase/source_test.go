package passphrase

import (
	"bytes"
	"errors"
	"testing"
)

const testEnv = "CHALLENGE_TEST_PASSPHRASE"

func TestSourcePrefersEnv(t *testing.T) {
	t.Setenv(testEnv, "  spaced secret ")
	src := NewSource(testEnv, "")
	got, err := src.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "  spaced secret " {
		t.Fatalf("env value must be used verbatim, got %q", got)
	}
}

func TestSourceRejectsBlankEnv(t *testing.T) {
	t.Setenv(testEnv, "   ")
	if _, err := NewSource(testEnv, "").Get(); err == nil {
		t.Fatalf("expected blank env to be rejected")
	}
}

func TestSourcePromptsOnTerminal(t *testing.T) {
	var stderr bytes.Buffer
	calls := 0
	src := NewSource("", "pass? ")
	src.stderr = &stderr
	src.isTerm = func(int) bool { return true }
	src.readInput = func(int) ([]byte, error) {
		calls++
		return []byte("hunter2"), nil
	}
	for i := 0; i < 2; i++ {
		got, err := src.Get()
		if err != nil || got != "hunter2" {
			t.Fatalf("got %q, %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one prompt, got %d", calls)
	}
	if stderr.String() != "pass? \n" {
		t.Fatalf("unexpected prompt output %q", stderr.String())
	}
}

func TestSourceWithoutTerminal(t *testing.T) {
	src := NewSource("", "")
	src.isTerm = func(int) bool { return false }
	if _, err := src.Get(); err == nil {
		t.Fatalf("expected error without terminal")
	}

	src = NewSource("", "")
	src.stderr = &bytes.Buffer{}
	src.isTerm = func(int) bool { return true }
	src.readInput = func(int) ([]byte, error) { return nil, errors.New("tty closed") }
	if _, err := src.Get(); err == nil {
		t.Fatalf("expected read failure to surface")
	}
}
