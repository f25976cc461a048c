package crypt

import (
	"testing"
)

func TestRoundTrip(t *testing.T) {
	key := DeriveKey("secret")
	enc, err := Encrypt(key, "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if enc == "hunter2" {
		t.Fatal("ciphertext equals plaintext")
	}
	dec, err := Decrypt(key, enc)
	if err != nil {
		t.Fatal(err)
	}
	if dec != "hunter2" {
		t.Fatalf("want hunter2, got %q", dec)
	}
}

func TestNonDeterministicNonce(t *testing.T) {
	key := DeriveKey("secret")
	a, _ := Encrypt(key, "same")
	b, _ := Encrypt(key, "same")
	if a == b {
		t.Fatal("two encryptions produced identical ciphertext")
	}
}

func TestWrongKey(t *testing.T) {
	enc, _ := Encrypt(DeriveKey("secret"), "hunter2")
	if _, err := Decrypt(DeriveKey("other"), enc); err == nil {
		t.Fatal("decrypt with wrong key succeeded")
	}
}

func TestGarbageInput(t *testing.T) {
	key := DeriveKey("secret")
	for _, in := range []string{"", "xx", "bm90IGEgY2lwaGVydGV4dA=="} {
		if _, err := Decrypt(key, in); err == nil {
			t.Fatalf("decrypt of %q succeeded", in)
		}
	}
}
