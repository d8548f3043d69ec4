package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrKeyNotFound はキーが保存されていない場合に返却されます。
var ErrKeyNotFound = errors.New("session: key not found")

// 永続化される 3 つのキーです。
const (
	KeyToken    = "token"
	KeyRole     = "role"
	KeyUsername = "username"
)

// Storage はセッションを保持する永続ストレージです。キーごとに独立して読み書きされます。
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStorage はプロセス内だけで完結する Storage です。
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// FileStorage は YAML ファイル 1 つにキーを保存します。書き込みは一時ファイルからの rename で置き換えます。
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage は path に保存する FileStorage を返します。ファイルは初回書き込み時に作成されます。
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// DefaultFilePath は $XDG_CONFIG_HOME (未設定ならユーザー設定ディレクトリ) 配下の既定パスを返します。
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("session: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "shiftboard", "session.yaml"), nil
}

func (f *FileStorage) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (f *FileStorage) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	values[key] = value
	return f.write(values)
}

func (f *FileStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	if len(values) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("session: remove %s: %w", f.path, err)
		}
		return nil
	}
	return f.write(values)
}

func (f *FileStorage) read() (map[string]string, error) {
	values := make(map[string]string)
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", f.path, err)
	}
	if err := yaml.Unmarshal(b, &values); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", f.path, err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values, nil
}

func (f *FileStorage) write(values map[string]string) error {
	b, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("session: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("session: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("session: chmod temp file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("session: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("session: replace %s: %w", f.path, err)
	}
	return nil
}
