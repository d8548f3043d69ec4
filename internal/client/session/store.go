package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/ogurasousui/shiftboard/internal/core/access"
)

// Snapshot はある時点のセッション内容です。
type Snapshot struct {
	Token    string
	Username string
	Role     access.Role
}

// Authenticated はロールを保持しているかを返します。
func (s Snapshot) Authenticated() bool {
	return s.Token != "" && s.Role.Valid()
}

// Store は認証状態 (token, username, role) を保持し Storage に永続化します。
// ストレージのエラーは呼び出し元に返さず、未認証状態へ縮退させます。
type Store struct {
	mu      sync.RWMutex
	current Snapshot
	storage Storage
}

// NewStore は storage を永続化先とする Store を返します。storage が nil の場合はメモリのみで保持します。
func NewStore(storage Storage) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Store{storage: storage}
}

// Login はセッションを置き換え、3 つのキーを書き込みます。
// 書き込みに失敗した場合は書き込み済みのキーも削除し、次回起動時は未認証となります。
func (s *Store) Login(ctx context.Context, token string, role access.Role, username string) {
	next := Snapshot{Token: token, Username: username, Role: role}
	if !next.Authenticated() {
		log.Printf("session: ignoring login without token or role")
		s.Logout(ctx)
		return
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	writes := []struct{ key, value string }{
		{KeyToken, token},
		{KeyRole, role.String()},
		{KeyUsername, username},
	}
	for _, w := range writes {
		if err := s.storage.Set(ctx, w.key, w.value); err != nil {
			log.Printf("session: persist %s: %v", w.key, err)
			s.clearStorage(ctx)
			return
		}
	}
}

// Logout はメモリ上の状態と永続化されたキーを消去します。何度呼び出しても結果は同じです。
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.current = Snapshot{}
	s.mu.Unlock()

	s.clearStorage(ctx)
}

func (s *Store) clearStorage(ctx context.Context) {
	for _, key := range []string{KeyToken, KeyRole, KeyUsername} {
		if err := s.storage.Delete(ctx, key); err != nil {
			log.Printf("session: delete %s: %v", key, err)
		}
	}
}

// Restore はプロセス起動時に一度だけ呼び出し、永続化されたセッションを復元します。
// token と role が揃わない場合や読み込みに失敗した場合は未認証のままです。
func (s *Store) Restore(ctx context.Context) {
	token, err := s.storage.Get(ctx, KeyToken)
	if err != nil {
		s.restoreFailed(KeyToken, err)
		return
	}
	rawRole, err := s.storage.Get(ctx, KeyRole)
	if err != nil {
		s.restoreFailed(KeyRole, err)
		return
	}
	role, err := access.ParseRole(rawRole)
	if err != nil {
		s.restoreFailed(KeyRole, err)
		return
	}
	username, err := s.storage.Get(ctx, KeyUsername)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		log.Printf("session: restore %s: %v", KeyUsername, err)
	}

	next := Snapshot{Token: token, Username: username, Role: role}
	if !next.Authenticated() {
		s.restoreFailed(KeyToken, ErrKeyNotFound)
		return
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
}

func (s *Store) restoreFailed(key string, err error) {
	if !errors.Is(err, ErrKeyNotFound) {
		log.Printf("session: restore %s: %v", key, err)
	}
	s.mu.Lock()
	s.current = Snapshot{}
	s.mu.Unlock()
}

// Current は現在のセッションのコピーを返します。
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Role は現在のロールを返します。未認証の場合は access.RoleNone です。
func (s *Store) Role() access.Role {
	return s.Current().Role
}

// Username は現在のユーザー名を返します。未認証の場合は空文字です。
func (s *Store) Username() string {
	return s.Current().Username
}

// Token は api.TokenSource の実装です。
func (s *Store) Token() string {
	return s.Current().Token
}

func (s *Store) Authenticated() bool {
	return s.Current().Authenticated()
}

func (s *Store) IsAdmin() bool {
	return s.Role() == access.RoleAdmin
}
