package cryptox

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	c := New("test-master-key")

	payloads := [][]byte{
		[]byte("hello"),
		{},
		bytes.Repeat([]byte{0xAB}, 1<<16),
	}

	for _, p := range payloads {
		salt, ct, err := c.Seal(p, "obj-1")
		if err != nil {
			t.Fatalf("Seal failed: %v", err)
		}
		if len(salt) != SaltSize {
			t.Fatalf("Expected %d-byte salt, got %d", SaltSize, len(salt))
		}

		got, err := c.Open(ct, "obj-1", salt)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if !bytes.Equal(got, p) {
			t.Errorf("Round trip mismatch: got %d bytes, want %d", len(got), len(p))
		}
	}
}

func TestOpenDetectsTampering(t *testing.T) {
	c := New("test-master-key")

	salt, ct, err := c.Seal([]byte("sensitive payload"), "obj-1")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	// Flip one bit in every position and make sure nothing opens.
	for i := range ct {
		mangled := bytes.Clone(ct)
		mangled[i] ^= 0x01

		if _, err := c.Open(mangled, "obj-1", salt); !errors.Is(err, ErrIntegrity) {
			t.Fatalf("Expected ErrIntegrity for flipped byte %d, got %v", i, err)
		}
	}
}

func TestOpenWrongSalt(t *testing.T) {
	c := New("test-master-key")

	_, ct, err := c.Seal([]byte("payload"), "obj-1")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	wrongSalt := make([]byte, SaltSize)
	if _, err := c.Open(ct, "obj-1", wrongSalt); !errors.Is(err, ErrIntegrity) {
		t.Errorf("Expected ErrIntegrity with wrong salt, got %v", err)
	}
}

func TestOpenWrongID(t *testing.T) {
	c := New("test-master-key")

	salt, ct, err := c.Seal([]byte("payload"), "obj-1")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if _, err := c.Open(ct, "obj-2", salt); !errors.Is(err, ErrIntegrity) {
		t.Errorf("Expected ErrIntegrity with wrong id, got %v", err)
	}
}

func TestOpenTruncatedCiphertext(t *testing.T) {
	c := New("test-master-key")

	salt, _, err := c.Seal([]byte("payload"), "obj-1")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if _, err := c.Open([]byte{0x01, 0x02}, "obj-1", salt); !errors.Is(err, ErrIntegrity) {
		t.Errorf("Expected ErrIntegrity for truncated ciphertext, got %v", err)
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0x42}, SaltSize)

	a := DeriveKey("obj-1", []byte("master"), salt)
	b := DeriveKey("obj-1", []byte("master"), salt)
	if !bytes.Equal(a, b) {
		t.Error("Same inputs must derive the same key")
	}

	other := DeriveKey("obj-2", []byte("master"), salt)
	if bytes.Equal(a, other) {
		t.Error("Different ids must not derive the same key")
	}
}

func TestNewEmptySecretFallsBack(t *testing.T) {
	c := New("")
	if string(c.masterKey) != DefaultMasterKey {
		t.Errorf("Expected fallback to DefaultMasterKey, got %q", c.masterKey)
	}
}
