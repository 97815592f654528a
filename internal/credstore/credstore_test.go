package credstore

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	keyring.MockInit()
	return &Store{configDir: t.TempDir()}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	in := Cookies{AuthCookie: "auth-abc", TwoFactorCookie: "2fa-xyz"}
	if err := s.Save("alice", in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := s.Load("alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out != in {
		t.Fatalf("Load = %+v, want %+v", out, in)
	}
}

func TestLoadMissingUserIsNotAnError(t *testing.T) {
	s := newTestStore(t)

	out, err := s.Load("nobody")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out != (Cookies{}) {
		t.Fatalf("expected zero-value Cookies, got %+v", out)
	}
}

func TestLastUsernamePersistsAfterSave(t *testing.T) {
	s := newTestStore(t)

	if got, _ := s.LastUsername(); got != "" {
		t.Fatalf("expected empty last username before any Save, got %q", got)
	}

	if err := s.Save("bob", Cookies{AuthCookie: "a"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.LastUsername()
	if err != nil {
		t.Fatalf("LastUsername: %v", err)
	}
	if got != "bob" {
		t.Fatalf("LastUsername = %q, want %q", got, "bob")
	}
}

func TestDeleteRemovesCookies(t *testing.T) {
	s := newTestStore(t)
	s.Save("carol", Cookies{AuthCookie: "a", TwoFactorCookie: "b"})

	s.Delete("carol")

	out, err := s.Load("carol")
	if err != nil {
		t.Fatalf("Load after Delete: %v", err)
	}
	if out != (Cookies{}) {
		t.Fatalf("expected cookies cleared after Delete, got %+v", out)
	}
}
