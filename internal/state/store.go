// Package state persists the small amount of client-side state the CLI
// owns: the credential pair returned by the API and the anonymous guest
// identifier. Everything else lives server-side.
package state

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	tokensFile  = "auth_tokens.json"
	guestIDFile = "guest_id"
)

// Tokens is the credential pair issued by login, registration and
// refresh. The access token authorizes API requests; the refresh token
// is exchanged for a new pair when the access token expires.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Store holds tokens and the guest identifier, mirroring them to disk
// when a state directory is available. When dir is empty the store is
// memory-only: every operation still succeeds, nothing survives the
// process. This keeps the store constructible in environments without a
// writable home directory (containers, tests).
type Store struct {
	mu      sync.Mutex
	dir     string
	tokens  *Tokens
	guestID string
}

// New creates a store rooted at dir, creating the directory if needed
// and loading any previously persisted tokens. An empty dir yields a
// memory-only store.
func New(dir string) (*Store, error) {
	s := &Store{dir: dir}
	if dir == "" {
		return s, nil
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, tokensFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
		// first run
	case err != nil:
		return nil, fmt.Errorf("reading stored tokens: %w", err)
	default:
		var tokens Tokens
		if err := json.Unmarshal(raw, &tokens); err != nil {
			// A corrupt token file is treated as logged out rather
			// than a fatal error.
			log.Warn().Err(err).Msg("stored tokens unreadable, discarding")
		} else {
			s.tokens = &tokens
		}
	}

	return s, nil
}

// DefaultDir returns the standard state directory, or an empty string
// when the home directory cannot be resolved.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ideafeed")
}

// Tokens returns the current credential pair, or nil when logged out.
func (s *Store) Tokens() *Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tokens == nil {
		return nil
	}
	t := *s.tokens
	return &t
}

// SetTokens replaces the credential pair and persists it.
func (s *Store) SetTokens(tokens Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = &tokens
	if s.dir == "" {
		return nil
	}

	raw, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encoding tokens: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.dir, tokensFile), raw, 0o600)
}

// ClearTokens removes the credential pair from memory and disk.
func (s *Store) ClearTokens() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = nil
	if s.dir == "" {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, tokensFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stored tokens: %w", err)
	}
	return nil
}

// GuestID returns the stable anonymous identifier for this state
// directory, generating and persisting one on first use. The identifier
// is a random UUID, falling back to hex-encoded random bytes if UUID
// generation fails.
func (s *Store) GuestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.guestID != "" {
		return s.guestID
	}

	if s.dir != "" {
		raw, err := os.ReadFile(filepath.Join(s.dir, guestIDFile))
		if err == nil {
			if id := strings.TrimSpace(string(raw)); id != "" {
				s.guestID = id
				return s.guestID
			}
		}
	}

	s.guestID = newGuestID()
	if s.dir != "" {
		err := writeFileAtomic(filepath.Join(s.dir, guestIDFile), []byte(s.guestID), 0o600)
		if err != nil {
			log.Warn().Err(err).Msg("guest id not persisted, will regenerate next run")
		}
	}
	return s.guestID
}

func newGuestID() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing is effectively unreachable; return a
		// process-unique marker rather than panicking.
		return fmt.Sprintf("guest-%d", os.Getpid())
	}
	return hex.EncodeToString(b)
}

// writeFileAtomic writes via a temp file and rename so a crash never
// leaves a truncated state file behind.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("setting state file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing state file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
