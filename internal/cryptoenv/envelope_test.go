package cryptoenv

import (
	"os"
	"path/filepath"
	"testing"
)

func mustEnvelope(t *testing.T, key [32]byte) *Envelope {
	t.Helper()
	env, err := New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return env
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	env := mustEnvelope(t, key)

	msg, err := env.Encrypt("hello over the air")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !IsEncrypted(msg) {
		t.Fatal("Encrypt() output does not carry the ENC: prefix")
	}
	got, ok := env.Decrypt(msg)
	if !ok {
		t.Fatal("Decrypt() reported failure on a message it just encrypted")
	}
	if got != "hello over the air" {
		t.Fatalf("Decrypt() = %q, want %q", got, "hello over the air")
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	var key1, key2 [32]byte
	key2[0] = 1

	env1 := mustEnvelope(t, key1)
	env2 := mustEnvelope(t, key2)

	msg, err := env1.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, ok := env2.Decrypt(msg); ok {
		t.Fatal("Decrypt() succeeded with the wrong key")
	}
}

func TestDecryptRejectsPlainMessages(t *testing.T) {
	var key [32]byte
	env := mustEnvelope(t, key)

	if _, ok := env.Decrypt("just a chat line"); ok {
		t.Fatal("Decrypt() accepted a message without the ENC: prefix")
	}
	if IsEncrypted("just a chat line") {
		t.Fatal("IsEncrypted() true for a plain message")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	var key [32]byte
	env := mustEnvelope(t, key)

	msg, err := env.Encrypt("do not modify")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	last := msg[len(msg)-1]
	replacement := byte('A')
	if last == replacement {
		replacement = 'B'
	}
	tampered := msg[:len(msg)-1] + string(replacement)
	if _, ok := env.Decrypt(tampered); ok {
		t.Fatal("Decrypt() accepted a tampered message")
	}
}

func TestDecryptRejectsShortPayload(t *testing.T) {
	var key [32]byte
	env := mustEnvelope(t, key)

	if _, ok := env.Decrypt("ENC:AAAA"); ok {
		t.Fatal("Decrypt() accepted a payload shorter than the nonce")
	}
}

func TestLoadOrCreateKeyGeneratesThenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lora.key")

	first, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("LoadOrCreateKey (create): %v", err)
	}

	second, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("LoadOrCreateKey (load): %v", err)
	}
	if first != second {
		t.Fatal("LoadOrCreateKey did not return the same key on the second call")
	}
}

func TestLoadOrCreateKeyRejectsBadHex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.key")
	if err := os.WriteFile(path, []byte("not-hex-at-all"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrCreateKey(path); err == nil {
		t.Fatal("expected LoadOrCreateKey to reject malformed hex")
	}
}
