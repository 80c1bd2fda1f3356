package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

var (
	// ErrNotFound is returned when no key is stored.
	ErrNotFound = errors.New("no API key stored")

	// ErrReadOnly is returned by Write on stores that cannot be modified.
	ErrReadOnly = errors.New("token store is read-only")
)

// Store reads and writes the upstream API key.
type Store interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, token string) error
}

// EnvStore reads the key from an environment variable.
type EnvStore struct {
	Var string

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Read implements Store.
func (s *EnvStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	lookup := s.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	token, ok := lookup(s.Var)
	if !ok || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrNotFound, s.Var)
	}
	return strings.TrimSpace(token), nil
}

// Write implements Store. Environment variables cannot be persisted.
func (s *EnvStore) Write(context.Context, string) error {
	return ErrReadOnly
}

// FileStore keeps the key in a single file with mode 0600.
type FileStore struct {
	Path string
}

// Read implements Store.
func (s *FileStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s does not exist", ErrNotFound, s.Path)
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNotFound, s.Path)
	}
	return token, nil
}

// Write implements Store. An empty token removes the file.
func (s *FileStore) Write(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if token == "" {
		if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove token file: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}

	// Write to a temporary file first so a crash never leaves a truncated key.
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".token-*")
	if err != nil {
		return fmt.Errorf("create temporary token file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if _, err := tmp.WriteString(token + "\n"); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

// KeyringStore keeps the key in the operating system keyring.
type KeyringStore struct {
	Service string
	User    string
}

// Read implements Store.
func (s *KeyringStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	token, err := keyring.Get(s.Service, s.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: no keyring entry for %s/%s", ErrNotFound, s.Service, s.User)
	}
	if err != nil {
		return "", fmt.Errorf("read keyring: %w", err)
	}
	if token == "" {
		return "", fmt.Errorf("%w: keyring entry for %s/%s is empty", ErrNotFound, s.Service, s.User)
	}
	return token, nil
}

// Write implements Store. An empty token deletes the keyring entry.
func (s *KeyringStore) Write(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if token == "" {
		if err := keyring.Delete(s.Service, s.User); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("delete keyring entry: %w", err)
		}
		return nil
	}
	if err := keyring.Set(s.Service, s.User, token); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}

// storeTokenSource serves the stored key as a non-expiring bearer token.
type storeTokenSource struct {
	store Store
}

// Token implements oauth2.TokenSource.
func (ts *storeTokenSource) Token() (*oauth2.Token, error) {
	token, err := ts.store.Read(context.Background())
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// TokenSource returns a token source backed by store. The key is read on first
// use and cached; a missing key is retried on every call.
func TokenSource(store Store) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &storeTokenSource{store: store})
}
