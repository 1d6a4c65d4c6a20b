package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Session is the persisted login state issued by the auth service. The
// token is treated as opaque; it is only ever attached to requests and
// WebSocket URLs.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
}

// state is the on-disk shape. The remembered workspace survives logout in
// the original client (separate storage key), so it lives beside the
// session rather than inside it.
type state struct {
	Session           *Session `json:"session,omitempty"`
	SelectedWorkspace string   `json:"selected_workspace,omitempty"`
}

// Store owns the persisted session lifecycle: loaded once at startup,
// saved on login, cleared on logout or a 401. All reads of login state go
// through here; nothing else touches the state file.
type Store struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	state state
}

// NewStore creates a session store backed by the given file path. An empty
// path falls back to finchat/state.json under the user config dir.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("could not resolve config dir: %w", err)
		}
		path = filepath.Join(dir, "finchat", "state.json")
	}
	return &Store{path: path, logger: logger}, nil
}

// Load reads persisted state from disk. A missing file is not an error;
// it just means nobody is logged in yet.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not read session state: %w", err)
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		// Corrupt state file: start fresh rather than wedging every command.
		s.logger.Warn("Discarding unreadable session state", zap.String("path", s.path), zap.Error(err))
		s.state = state{}
	}
	return nil
}

// Save persists the given session and keeps the selected workspace.
func (s *Store) Save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Session = &sess
	return s.persistLocked()
}

// Clear drops the session (logout or expiry) but keeps the remembered
// workspace selection.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Session == nil {
		return nil
	}
	s.state.Session = nil
	return s.persistLocked()
}

// Current returns the active session, or nil when logged out.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Session == nil {
		return nil
	}
	sess := *s.state.Session
	return &sess
}

// Token returns the bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Session == nil {
		return ""
	}
	return s.state.Session.AccessToken
}

// SelectedWorkspace returns the remembered workspace id, or "".
func (s *Store) SelectedWorkspace() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SelectedWorkspace
}

// SetSelectedWorkspace remembers the workspace used when none is given
// explicitly. Passing "" forgets the selection.
func (s *Store) SetSelectedWorkspace(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SelectedWorkspace = id
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("could not create state dir: %w", err)
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode session state: %w", err)
	}
	// 0600: the file holds a bearer token.
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("could not write session state: %w", err)
	}
	return nil
}
