package crypto

import (
	"bytes"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	key, err := DeriveKey("shared-token")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	plain := []byte(`{"type":"PING"}`)
	sealed, err := Seal(plain, key)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, plain) {
		t.Fatal("sealed output contains the plaintext")
	}

	got, err := Open(sealed, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("open = %q, want %q", got, plain)
	}
}

func TestDeriveKeyIsDeterministic(t *testing.T) {
	a, err := DeriveKey("token")
	if err != nil {
		t.Fatal(err)
	}
	b, err := DeriveKey("token")
	if err != nil {
		t.Fatal(err)
	}
	if *a != *b {
		t.Fatal("same token derived different keys")
	}
	c, err := DeriveKey("other")
	if err != nil {
		t.Fatal(err)
	}
	if *a == *c {
		t.Fatal("different tokens derived the same key")
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	good, _ := DeriveKey("token")
	bad, _ := DeriveKey("not-the-token")

	sealed, err := Seal([]byte("payload"), good)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(sealed, bad); err == nil {
		t.Fatal("open with wrong key succeeded")
	}
}

func TestOpenRejectsShortInput(t *testing.T) {
	key, _ := DeriveKey("token")
	if _, err := Open([]byte("short"), key); err == nil {
		t.Fatal("open of truncated input succeeded")
	}
}

func TestSealUsesFreshNonces(t *testing.T) {
	key, _ := DeriveKey("token")
	a, err := Seal([]byte("x"), key)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Seal([]byte("x"), key)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two seals of the same plaintext produced identical output")
	}
}
