package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ogurasousui/shiftboard/internal/core/access"
)

type failingStorage struct {
	*MemoryStorage
	failSet map[string]bool
	failGet bool
}

func (f *failingStorage) Set(ctx context.Context, key, value string) error {
	if f.failSet[key] {
		return errors.New("disk full")
	}
	return f.MemoryStorage.Set(ctx, key, value)
}

func (f *failingStorage) Get(ctx context.Context, key string) (string, error) {
	if f.failGet {
		return "", errors.New("permission denied")
	}
	return f.MemoryStorage.Get(ctx, key)
}

func TestStore_LoginThenRestore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewFileStorage(filepath.Join(t.TempDir(), "nested", "session.yaml"))

	first := NewStore(storage)
	first.Login(ctx, "jwt-token", access.RoleAdmin, "admin")
	if !first.IsAdmin() || first.Username() != "admin" {
		t.Fatalf("unexpected state after login: %+v", first.Current())
	}

	// 再起動を模擬
	second := NewStore(storage)
	if second.Authenticated() {
		t.Fatal("a fresh store must start unauthenticated before Restore")
	}
	second.Restore(ctx)
	if second.Current() != first.Current() {
		t.Fatalf("restore mismatch: want %+v got %+v", first.Current(), second.Current())
	}
}

func TestStore_LogoutIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	s := NewStore(storage)

	s.Logout(ctx)
	s.Login(ctx, "tok", access.RoleUser, "emp001")
	s.Logout(ctx)
	s.Logout(ctx)

	if s.Role() != access.RoleNone || s.Username() != "" || s.Token() != "" || s.Authenticated() || s.IsAdmin() {
		t.Fatalf("expected unauthenticated state, got %+v", s.Current())
	}
	for _, key := range []string{KeyToken, KeyRole, KeyUsername} {
		if _, err := storage.Get(ctx, key); !errors.Is(err, ErrKeyNotFound) {
			t.Fatalf("key %s should be removed, got %v", key, err)
		}
	}

	restored := NewStore(storage)
	restored.Restore(ctx)
	if restored.Authenticated() {
		t.Fatal("restore after logout must stay unauthenticated")
	}
}

func TestStore_RestorePartialState(t *testing.T) {
	t.Parallel()

	cases := map[string]map[string]string{
		"role without token": {KeyRole: "ADMIN", KeyUsername: "admin"},
		"token without role": {KeyToken: "tok", KeyUsername: "admin"},
		"unknown role":       {KeyToken: "tok", KeyRole: "ROOT"},
		"empty token":        {KeyToken: "", KeyRole: "USER"},
	}

	for name, values := range cases {
		name, values := name, values
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			storage := NewMemoryStorage()
			for k, v := range values {
				_ = storage.Set(ctx, k, v)
			}
			s := NewStore(storage)
			s.Restore(ctx)
			if s.Authenticated() || s.Role() != access.RoleNone {
				t.Fatalf("expected unauthenticated, got %+v", s.Current())
			}
		})
	}
}

func TestStore_RestoreWithoutUsername(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	_ = storage.Set(ctx, KeyToken, "tok")
	_ = storage.Set(ctx, KeyRole, "user")

	s := NewStore(storage)
	s.Restore(ctx)
	if s.Role() != access.RoleUser || s.Username() != "" {
		t.Fatalf("unexpected state %+v", s.Current())
	}
}

func TestStore_FailedWriteLeavesNothingPersisted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := &failingStorage{MemoryStorage: NewMemoryStorage(), failSet: map[string]bool{KeyUsername: true}}

	s := NewStore(storage)
	s.Login(ctx, "tok", access.RoleAdmin, "admin")
	if !s.IsAdmin() {
		t.Fatal("in-memory session should survive a persistence failure")
	}

	next := NewStore(storage)
	next.Restore(ctx)
	if next.Authenticated() {
		t.Fatalf("partially written session must not be restored, got %+v", next.Current())
	}
}

func TestStore_FailedReadDegrades(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := &failingStorage{MemoryStorage: NewMemoryStorage()}
	s := NewStore(storage)
	s.Login(ctx, "tok", access.RoleAdmin, "admin")

	storage.failGet = true
	s.Restore(ctx)
	if s.Authenticated() {
		t.Fatal("read failure must degrade to unauthenticated")
	}
}

func TestStore_LoginRejectsIncompleteTriple(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(nil)
	s.Login(ctx, "tok", access.RoleUser, "emp001")
	s.Login(ctx, "", access.RoleAdmin, "admin")
	if s.Authenticated() {
		t.Fatalf("login without token must end unauthenticated, got %+v", s.Current())
	}
}

func TestStore_ReadersSeeWholeSnapshots(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(nil)
	a := Snapshot{Token: "a", Username: "alice", Role: access.RoleUser}
	b := Snapshot{Token: "b", Username: "bob", Role: access.RoleAdmin}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				s.Login(ctx, a.Token, a.Role, a.Username)
			} else {
				s.Login(ctx, b.Token, b.Role, b.Username)
			}
		}
	}()

	for i := 0; i < 200; i++ {
		got := s.Current()
		if got != (Snapshot{}) && got != a && got != b {
			t.Fatalf("observed mixed snapshot %+v", got)
		}
	}
	wg.Wait()
}
