package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestSealAndOpen(t *testing.T) {
	c, err := New(testKey)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !c.Enabled() {
		t.Fatalf("expected cipher to be enabled")
	}
	sealed, err := c.SealString("raise 5%")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("raise")) {
		t.Fatalf("sealed value leaks plaintext")
	}
	got, err := c.OpenString(sealed)
	if err != nil || got != "raise 5%" {
		t.Fatalf("open = %q, %v", got, err)
	}
}

func TestPassthroughWithoutKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	sealed, _ := c.SealString("plain")
	if string(sealed) != "plain" {
		t.Fatalf("expected passthrough, got %q", sealed)
	}

	keyed, _ := New(testKey)
	got, err := keyed.OpenString([]byte("legacy row"))
	if err != nil || got != "legacy row" {
		t.Fatalf("plaintext rows should still read, got %q, %v", got, err)
	}

	ciphertext, _ := keyed.SealString("secret")
	if _, err := c.OpenString(ciphertext); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
}

func TestRejectsShortKey(t *testing.T) {
	if _, err := New(strings.Repeat("k", 10)); err == nil {
		t.Fatalf("expected error for short key")
	}
}

func TestEmptyValue(t *testing.T) {
	c, _ := New(testKey)
	sealed, err := c.SealString("")
	if err != nil || len(sealed) != 0 {
		t.Fatalf("empty seal = %v, %v", sealed, err)
	}
	got, err := c.OpenString(nil)
	if err != nil || got != "" {
		t.Fatalf("empty open = %q, %v", got, err)
	}
}
