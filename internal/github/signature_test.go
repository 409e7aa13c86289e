package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature_Valid(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	if !VerifySignature(body, sign("topsecret", body), "topsecret") {
		t.Fatalf("expected valid signature to verify")
	}
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	if VerifySignature(body, sign("other", body), "topsecret") {
		t.Fatalf("expected signature from wrong secret to fail")
	}
}

func TestVerifySignature_TrailingWhitespaceChangesBody(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	header := sign("topsecret", body)
	if VerifySignature(append(body, '\n'), header, "topsecret") {
		t.Fatalf("expected body with trailing newline to fail verification")
	}
	if VerifySignature(append(body, ' '), header, "topsecret") {
		t.Fatalf("expected body with trailing space to fail verification")
	}
}

func TestVerifySignature_MalformedHeader(t *testing.T) {
	body := []byte(`{}`)
	cases := []string{
		"",
		"sha256=",
		"sha256=nothex",
		"sha1=deadbeef",
		"deadbeef",
	}
	for _, header := range cases {
		if VerifySignature(body, header, "topsecret") {
			t.Fatalf("expected header %q to fail verification", header)
		}
	}
}
