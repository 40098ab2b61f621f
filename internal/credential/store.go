package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"btc-signal-bot/internal/logger"
)

// ErrNoCredentials means no valid credential remains in the pool. Callers
// distinguish this from transient exhaustion: there is nothing to wait for.
var ErrNoCredentials = errors.New("credential: no valid credentials available")

// defaultUserAgents is rotated across requests so consecutive calls do not
// present an identical client fingerprint.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (Version/17.2 Safari/605.1.15)",
}

// Credential is one usable identity handed to the caller.
type Credential struct {
	Name      string
	Secret    string
	UserAgent string
}

type entryState struct {
	LastUsed int64 `json:"last_used"`
	IsValid  bool  `json:"is_valid"`
}

type persistedState struct {
	Keys    map[string]entryState `json:"keys"`
	Cursor  int                   `json:"cursor"`
	UAIndex int                   `json:"ua_index"`
}

// Store rotates API credentials discovered from the environment, enforcing
// a per-credential cooldown and remembering invalidated entries across
// runs through a small JSON state file.
type Store struct {
	mu       sync.Mutex
	path     string
	cooldown time.Duration

	names   []string
	secrets map[string]string
	agents  []string
	state   persistedState

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option overrides a Store dependency, used by tests to control time.
type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Store) { s.sleep = sleep }
}

func WithUserAgents(agents []string) Option {
	return func(s *Store) {
		if len(agents) > 0 {
			s.agents = agents
		}
	}
}

// NewStore discovers credentials from environment variables carrying the
// given prefix and loads any persisted rotation state. A store with zero
// credentials is still usable; Next simply reports ErrNoCredentials.
func NewStore(prefix, statePath string, cooldown time.Duration, opts ...Option) *Store {
	s := &Store{
		path:     statePath,
		cooldown: cooldown,
		secrets:  make(map[string]string),
		agents:   defaultUserAgents,
		now:      time.Now,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) || value == "" {
			continue
		}
		s.names = append(s.names, name)
		s.secrets[name] = value
	}
	sort.Strings(s.names)

	s.state = s.loadState()
	return s
}

// loadState reads the state file and reconciles it with the discovered
// credentials. A missing or corrupt file starts every credential fresh;
// entries for credentials no longer in the environment are discarded.
func (s *Store) loadState() persistedState {
	fresh := persistedState{Keys: make(map[string]entryState, len(s.names))}
	for _, name := range s.names {
		fresh.Keys[name] = entryState{IsValid: true}
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		return fresh
	}
	var loaded persistedState
	if err := json.Unmarshal(b, &loaded); err != nil || loaded.Keys == nil {
		logger.Warn(context.Background(), "credential state file unreadable, reinitializing",
			"path", s.path)
		return fresh
	}

	for name := range fresh.Keys {
		if prev, ok := loaded.Keys[name]; ok {
			fresh.Keys[name] = prev
		}
	}
	if n := len(s.names); n > 0 {
		fresh.Cursor = loaded.Cursor % n
	}
	if n := len(s.agents); n > 0 {
		fresh.UAIndex = loaded.UAIndex % n
	}
	return fresh
}

// persist writes the state atomically so a crash mid-write can never leave
// a truncated file behind.
func (s *Store) persist() {
	b, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".credstate-*")
	if err != nil {
		logger.Warn(context.Background(), "cannot persist credential state", "error", err)
		return
	}
	name := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(name)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return
	}
	if err := os.Rename(name, s.path); err != nil {
		os.Remove(name)
		logger.Warn(context.Background(), "cannot persist credential state", "error", err)
	}
}

// Count returns the number of discovered credentials, valid or not.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names)
}

// ValidCount returns how many credentials are still usable.
func (s *Store) ValidCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validCountLocked()
}

func (s *Store) validCountLocked() int {
	n := 0
	for _, name := range s.names {
		if s.state.Keys[name].IsValid {
			n++
		}
	}
	return n
}

// Next returns the next usable credential, waiting out the cooldown when
// every valid credential was used too recently. The wait honors ctx, and
// the retry loop is bounded so a pathological state can never spin forever.
func (s *Store) Next(ctx context.Context) (Credential, error) {
	const maxPasses = 5

	for pass := 0; pass < maxPasses; pass++ {
		cred, wait, err := s.tryAcquire()
		if err != nil {
			return Credential{}, err
		}
		if cred != nil {
			return *cred, nil
		}

		// Everyone is cooling down. Sleep until the soonest credential
		// frees up, with a small buffer against clock granularity.
		logger.Debug(ctx, "all credentials cooling down", "wait", wait.String())
		if err := s.sleep(ctx, wait+time.Second); err != nil {
			return Credential{}, err
		}
	}
	return Credential{}, fmt.Errorf("credential: no credential became available after %d cooldown waits", maxPasses)
}

// tryAcquire scans from the cursor for a valid credential past its
// cooldown. When none qualifies it returns the shortest remaining wait.
func (s *Store) tryAcquire() (*Credential, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.validCountLocked() == 0 {
		return nil, 0, ErrNoCredentials
	}

	now := s.now().Unix()
	cooldownSecs := int64(s.cooldown / time.Second)

	n := len(s.names)
	minWait := s.cooldown
	for i := 0; i < n; i++ {
		idx := (s.state.Cursor + i) % n
		name := s.names[idx]
		entry := s.state.Keys[name]
		if !entry.IsValid {
			continue
		}

		// Strictly more than the cooldown must have passed; landing on
		// the boundary exactly still counts as too recent.
		elapsed := now - entry.LastUsed
		if elapsed > cooldownSecs {
			entry.LastUsed = now
			s.state.Keys[name] = entry
			s.state.Cursor = (idx + 1) % n

			ua := s.agents[s.state.UAIndex%len(s.agents)]
			s.state.UAIndex = (s.state.UAIndex + 1) % len(s.agents)
			s.persist()

			return &Credential{Name: name, Secret: s.secrets[name], UserAgent: ua}, 0, nil
		}
		if remaining := time.Duration(cooldownSecs-elapsed+1) * time.Second; remaining < minWait {
			minWait = remaining
		}
	}
	if minWait <= 0 || minWait > s.cooldown {
		minWait = s.cooldown
	}
	return nil, minWait, nil
}

// Invalidate marks the named credential as permanently unusable for this
// and future runs. It is idempotent and never resurrects a credential.
func (s *Store) Invalidate(ctx context.Context, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.state.Keys[name]
	if !ok || !entry.IsValid {
		logger.Debug(ctx, "credential already invalid", "credential", name)
		return
	}
	entry.IsValid = false
	s.state.Keys[name] = entry
	s.persist()

	logger.Warn(ctx, "credential invalidated",
		"credential", name,
		"remaining_valid", s.validCountLocked())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
