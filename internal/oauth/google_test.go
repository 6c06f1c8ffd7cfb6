package oauth

import (
	"strings"
	"testing"
)

func TestState_RoundTrip(t *testing.T) {
	g := NewGoogle("id", "sec", "http://localhost/cb", "state-secret")

	state, err := g.MakeState(StatePayload{ReferredBy: "ABCD1234"})
	if err != nil {
		t.Fatal(err)
	}
	p, err := g.VerifyState(state)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.ReferredBy != "ABCD1234" {
		t.Fatalf("referredBy = %q", p.ReferredBy)
	}
	if p.Nonce == "" {
		t.Fatal("nonce not generated")
	}
}

func TestState_TamperedPayload(t *testing.T) {
	g := NewGoogle("id", "sec", "http://localhost/cb", "state-secret")
	state, err := g.MakeState(StatePayload{})
	if err != nil {
		t.Fatal(err)
	}
	i := strings.IndexByte(state, '.')
	tampered := "x" + state[1:i] + state[i:]
	if _, err := g.VerifyState(tampered); err == nil {
		t.Fatal("tampered state accepted")
	}
}

func TestState_WrongKey(t *testing.T) {
	a := NewGoogle("id", "sec", "http://localhost/cb", "key-a")
	b := NewGoogle("id", "sec", "http://localhost/cb", "key-b")
	state, err := a.MakeState(StatePayload{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.VerifyState(state); err == nil {
		t.Fatal("state signed with another key accepted")
	}
}

func TestState_Malformed(t *testing.T) {
	g := NewGoogle("id", "sec", "http://localhost/cb", "state-secret")
	for _, s := range []string{"", "nodot", "a.!!!", "!!!.sig"} {
		if _, err := g.VerifyState(s); err == nil {
			t.Fatalf("malformed state %q accepted", s)
		}
	}
}
