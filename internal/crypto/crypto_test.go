package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	secret := "correct horse battery staple"

	// Lengths 0..64 cover the empty payload, sub-block and multi-block cases.
	for n := 0; n <= 64; n++ {
		plaintext := make([]byte, n)
		for i := range plaintext {
			plaintext[i] = byte(i * 7)
		}

		envelope, salt, err := Encrypt(plaintext, secret)
		if err != nil {
			t.Fatalf("Encrypt(len=%d) error = %v", n, err)
		}
		if len(salt) != SaltSize {
			t.Fatalf("salt length = %d, want %d", len(salt), SaltSize)
		}
		if !IsEncrypted(envelope) {
			t.Fatalf("envelope missing magic (len=%d)", n)
		}

		got, err := Decrypt(envelope, secret)
		if err != nil {
			t.Fatalf("Decrypt(len=%d) error = %v", n, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("round trip mismatch at len=%d", n)
		}
	}
}

func TestEncryptFreshSaltAndNonce(t *testing.T) {
	secret := "secret"
	plaintext := []byte("same input")

	a, saltA, err := Encrypt(plaintext, secret)
	if err != nil {
		t.Fatal(err)
	}
	b, saltB, err := Encrypt(plaintext, secret)
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(saltA, saltB) {
		t.Error("salt reused across encryptions")
	}

	nonceA := a[len("BPE1")+SaltSize : len("BPE1")+SaltSize+NonceSize]
	nonceB := b[len("BPE1")+SaltSize : len("BPE1")+SaltSize+NonceSize]
	if bytes.Equal(nonceA, nonceB) {
		t.Error("nonce reused across encryptions")
	}

	if bytes.Equal(a, b) {
		t.Error("identical envelopes for independent encryptions")
	}
}

func TestDecryptWrongSecret(t *testing.T) {
	envelope, _, err := Encrypt([]byte("payload"), "right secret")
	if err != nil {
		t.Fatal(err)
	}

	_, err = Decrypt(envelope, "wrong secret")
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Decrypt() with wrong secret error = %v, want ErrAuthFailed", err)
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	secret := "secret"
	envelope, _, err := Encrypt([]byte("payload"), secret)
	if err != nil {
		t.Fatal(err)
	}

	// Flip one bit in the ciphertext body.
	tampered := append([]byte(nil), envelope...)
	tampered[len(tampered)-1] ^= 0x01

	_, err = Decrypt(tampered, secret)
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Decrypt() of tampered envelope error = %v, want ErrAuthFailed", err)
	}
}

func TestDecryptInvalidEnvelope(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"gzip magic", []byte{0x1f, 0x8b, 0x08, 0x00}},
		{"truncated after magic", []byte("BPE1")},
		{"truncated header", append([]byte("BPE1"), make([]byte, SaltSize)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decrypt(tt.data, "secret")
			if !errors.Is(err, ErrInvalidEnvelope) {
				t.Errorf("Decrypt() error = %v, want ErrInvalidEnvelope", err)
			}
		})
	}
}

func TestIsEncrypted(t *testing.T) {
	envelope, _, err := Encrypt([]byte("x"), "s")
	if err != nil {
		t.Fatal(err)
	}
	if !IsEncrypted(envelope) {
		t.Error("IsEncrypted(envelope) = false")
	}
	if IsEncrypted([]byte{0x1f, 0x8b, 0x08}) {
		t.Error("IsEncrypted(gzip bytes) = true")
	}
	if IsEncrypted(nil) {
		t.Error("IsEncrypted(nil) = true")
	}
}

func TestSecretMissing(t *testing.T) {
	t.Setenv(SecretEnv, "")
	_, err := Secret()
	if !errors.Is(err, ErrMissingSecret) {
		t.Errorf("Secret() error = %v, want ErrMissingSecret", err)
	}

	t.Setenv(SecretEnv, "value")
	s, err := Secret()
	if err != nil || s != "value" {
		t.Errorf("Secret() = %q, %v", s, err)
	}
}

func TestKeyCheck(t *testing.T) {
	value, salt, err := KeyCheck("the secret")
	if err != nil {
		t.Fatalf("KeyCheck() error = %v", err)
	}
	if len(salt) != SaltSize {
		t.Errorf("salt length = %d", len(salt))
	}

	if err := VerifyKeyCheck(value, "the secret"); err != nil {
		t.Errorf("VerifyKeyCheck() with right secret = %v", err)
	}
	if err := VerifyKeyCheck(value, "another secret"); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("VerifyKeyCheck() with wrong secret = %v, want ErrAuthFailed", err)
	}
	if err := VerifyKeyCheck("not base64!!!", "the secret"); !errors.Is(err, ErrInvalidEnvelope) {
		t.Errorf("VerifyKeyCheck() with garbage = %v, want ErrInvalidEnvelope", err)
	}
}
