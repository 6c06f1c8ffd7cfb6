package security_test

import (
	"strings"
	"testing"
	"time"

	"github.com/ditechted/healthlink/internal/security"
)

func TestHS256_RoundTrip(t *testing.T) {
	tok, err := security.MakeToken("secret", "u1", "admin", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	c, err := security.ParseToken("secret", tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.UID != "u1" || c.Role != "admin" {
		t.Fatalf("claims mismatch: %#v", c)
	}
}

func TestHS256_WrongSecret(t *testing.T) {
	tok, err := security.MakeToken("secret", "u1", "user", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := security.ParseToken("other", tok); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestHS256_Expired(t *testing.T) {
	tok, err := security.MakeToken("secret", "u1", "user", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := security.ParseToken("secret", tok); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestPassword_HashAndCheck(t *testing.T) {
	h, err := security.HashPassword("StrongP@ss1")
	if err != nil {
		t.Fatal(err)
	}
	if h == "StrongP@ss1" {
		t.Fatal("hash equals plaintext")
	}
	if !security.CheckPassword(h, "StrongP@ss1") {
		t.Fatal("correct password rejected")
	}
	if security.CheckPassword(h, "wrong") {
		t.Fatal("wrong password accepted")
	}
}

func TestNumericCode_SixDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := security.NewNumericCode(6)
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != 6 {
			t.Fatalf("want 6 digits, got %q", code)
		}
		if code[0] == '0' {
			t.Fatalf("leading zero: %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code: %q", code)
			}
		}
	}
}

func TestReferralCode_Format(t *testing.T) {
	code, err := security.NewReferralCode()
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 8 {
		t.Fatalf("want 8 chars, got %q", code)
	}
	if code != strings.ToUpper(code) {
		t.Fatalf("not uppercase: %q", code)
	}
}
