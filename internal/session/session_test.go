package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
	"github.com/moses-Dera/TaskFlow-sub000/internal/storage"
	"github.com/moses-Dera/TaskFlow-sub000/internal/storage/memory"
)

func token(t *testing.T, id string, exp time.Time) string {
	t.Helper()
	claims := Claims{UserID: id, Name: "User " + id, Role: model.RoleEmployee}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

type change struct {
	Token   string
	Present bool
}

func TestParseCredential(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	ident, err := ParseCredential(token(t, "u1", exp))
	if err != nil {
		t.Fatal(err)
	}
	want := Identity{UserID: "u1", Name: "User u1", Role: model.RoleEmployee, ExpiresAt: exp}
	if diff := cmp.Diff(want, ident); diff != "" {
		t.Errorf("identity mismatch (-want +got):\n%s", diff)
	}

	if _, err := ParseCredential("not-a-jwt"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("ParseCredential(garbage) = %v, want ErrInvalidCredential", err)
	}
}

func TestSession_SignInOut(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := New(store, "work")

	var got []change
	unsub := s.Subscribe(func(tok string, present bool) { got = append(got, change{tok, present}) })
	defer unsub()

	tok := token(t, "u1", time.Now().Add(time.Hour))
	if _, err := s.SignIn(ctx, tok); err != nil {
		t.Fatal(err)
	}
	if c, ok := s.Credential(); !ok || c != tok {
		t.Errorf("Credential() = %q, %v", c, ok)
	}
	if saved, err := store.Load(ctx, "work"); err != nil || saved != tok {
		t.Errorf("store.Load() = %q, %v", saved, err)
	}

	if err := s.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Credential(); ok {
		t.Error("Credential() present after SignOut")
	}
	if _, err := store.Load(ctx, "work"); !errors.Is(err, storage.ErrNoCredential) {
		t.Errorf("store.Load() after SignOut = %v", err)
	}

	want := []change{{"", false}, {tok, true}, {"", false}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listener calls mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_ExpiredCountsAsAbsent(t *testing.T) {
	s := New(nil, "")
	now := time.Now()
	s.now = func() time.Time { return now }

	if _, err := s.SignIn(context.Background(), token(t, "u1", now.Add(-time.Minute))); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("SignIn(expired) = %v, want ErrInvalidCredential", err)
	}

	if _, err := s.SignIn(context.Background(), token(t, "u1", now.Add(time.Minute))); err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	if _, ok := s.Credential(); ok {
		t.Error("Credential() present after expiry")
	}
}

func TestSession_Restore(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid", func(t *testing.T) {
		store := memory.New()
		tok := token(t, "u1", time.Now().Add(time.Hour))
		if err := store.Save(ctx, "default", tok); err != nil {
			t.Fatal(err)
		}
		s := New(store, "default")
		if err := s.Restore(ctx); err != nil {
			t.Fatal(err)
		}
		if id, ok := s.Identity(); !ok || id.UserID != "u1" {
			t.Errorf("Identity() = %+v, %v", id, ok)
		}
	})

	t.Run("ExpiredIsCleared", func(t *testing.T) {
		store := memory.New()
		if err := store.Save(ctx, "default", token(t, "u1", time.Now().Add(-time.Hour))); err != nil {
			t.Fatal(err)
		}
		s := New(store, "default")
		if err := s.Restore(ctx); err != nil {
			t.Fatal(err)
		}
		if _, ok := s.Credential(); ok {
			t.Error("expired credential restored")
		}
		if _, err := store.Load(ctx, "default"); !errors.Is(err, storage.ErrNoCredential) {
			t.Errorf("stale credential not cleared: %v", err)
		}
	})

	t.Run("Nothing", func(t *testing.T) {
		s := New(memory.New(), "default")
		if err := s.Restore(ctx); err != nil {
			t.Fatal(err)
		}
		if _, ok := s.Credential(); ok {
			t.Error("Credential() present with empty store")
		}
	})
}
