package service

import (
	"strings"
	"testing"
)

func TestValidateSignup(t *testing.T) {
	if err := validateSignup("alice", "alice@example.com", "secret1"); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}

	err := validateSignup("ab", "not-an-email", "abc")
	if err == nil {
		t.Fatal("expected validation error")
	}
	fields := make(map[string]bool)
	for _, f := range err.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"username", "email", "password"} {
		if !fields[want] {
			t.Fatalf("expected field error for %s, got %+v", want, err.Fields)
		}
	}
}

func TestValidateSignupLengthLimits(t *testing.T) {
	long := strings.Repeat("a", 51)
	err := validateSignup(long, long+"@example.com", strings.Repeat("p", 21))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Fields) < 3 {
		t.Fatalf("expected violations on all three fields, got %+v", err.Fields)
	}
}

func TestValidateLogin(t *testing.T) {
	if err := validateLogin("alice", "secret1"); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
	if err := validateLogin("ab", "abc"); err == nil {
		t.Fatal("expected validation error")
	}
}
