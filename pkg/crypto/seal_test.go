package crypto

import (
	"strings"
	"testing"
)

func TestSealOpen(t *testing.T) {
	s, err := NewSealer("test-secret-123!")
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}

	token := "v1.refresh-token-value"
	sealed, err := s.Seal(token)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if strings.Contains(sealed, token) {
		t.Error("sealed value should not contain the plaintext")
	}
	if strings.ContainsAny(sealed, "+/=;, ") {
		t.Errorf("sealed value is not cookie safe: %q", sealed)
	}

	opened, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if opened != token {
		t.Errorf("Open() = %q, want %q", opened, token)
	}
}

func TestSealUsesFreshNonce(t *testing.T) {
	s, _ := NewSealer("secret")

	a, _ := s.Seal("same")
	b, _ := s.Seal("same")
	if a == b {
		t.Error("sealing the same value twice should differ")
	}
}

func TestOpenWrongSecret(t *testing.T) {
	s1, _ := NewSealer("correct-secret")
	s2, _ := NewSealer("wrong-secret")

	sealed, err := s1.Seal("secret data")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if _, err := s2.Open(sealed); err != ErrDecryptFailed {
		t.Errorf("Expected ErrDecryptFailed, got: %v", err)
	}
}

func TestSameSecretSameKey(t *testing.T) {
	s1, _ := NewSealer("shared")
	s2, _ := NewSealer("shared")

	sealed, _ := s1.Seal("value")
	opened, err := s2.Open(sealed)
	if err != nil || opened != "value" {
		t.Errorf("Open() = %q, %v; sealers with the same secret should interoperate", opened, err)
	}
}

func TestOpenInvalid(t *testing.T) {
	s, _ := NewSealer("secret")
	sealed, _ := s.Seal("value")

	tampered := []byte(sealed)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrInvalidFormat},
		{"not base64", "***", ErrInvalidFormat},
		{"too short", "AQID", ErrInvalidFormat},
		{"bad version", "Ag" + sealed[2:], ErrInvalidVersion},
		{"tampered", string(tampered), ErrDecryptFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Open(tt.input); err != tt.want {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewSealerEmptySecret(t *testing.T) {
	if _, err := NewSealer(""); err != ErrEmptySecret {
		t.Errorf("Expected ErrEmptySecret, got: %v", err)
	}
}
