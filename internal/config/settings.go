// Package config implements the Identity & Settings Store: the
// per-profile settings blob plus multi-profile boot state, alongside the
// process-level Config, which Load builds from DefaultConfig, the YAML file
// and applyEnvOverrides, in that order, before running Validate.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/OpenMined/biovault-desktop/core/internal/fsatomic"
)

// Settings is the recognized-keys table for a profile's settings.json.
// Unknown keys encountered in settings.json are preserved in Extra so a
// round-trip (save(load(s)) == s) never drops data the UI/agents wrote but
// this version of the core does not recognize.
type Settings struct {
	Email                string          `json:"email,omitempty"`
	BiovaultPath         string          `json:"biovault_path,omitempty"`
	SyftboxServerURL     string          `json:"syftbox_server_url,omitempty"`
	AgentBridgeEnabled   bool            `json:"agent_bridge_enabled"`
	AgentBridgePort      uint16          `json:"agent_bridge_port"`
	AgentBridgeHTTPPort  uint16          `json:"agent_bridge_http_port"`
	AgentBridgeToken     string          `json:"agent_bridge_token,omitempty"`
	AgentBridgeBlocklist []string        `json:"agent_bridge_blocklist,omitempty"`
	AIAPIURL             string          `json:"ai_api_url,omitempty"`
	AIAPIToken           string          `json:"ai_api_token,omitempty"`
	AIModel              string          `json:"ai_model,omitempty"`
	AutostartEnabled     bool            `json:"autostart_enabled"`
	Extra                json.RawMessage `json:"-"`
}

// DefaultSettings returns the documented defaults for every recognized key.
func DefaultSettings() Settings {
	return Settings{
		AgentBridgeEnabled:  true,
		AgentBridgePort:     3333,
		AgentBridgeHTTPPort: 3334,
		AutostartEnabled:    false,
	}
}

// Validate enforces the invariant: distinct ports, both in [1024, 65535].
func (s Settings) Validate() error {
	if s.AgentBridgePort == s.AgentBridgeHTTPPort {
		return fmt.Errorf("agent_bridge_port and agent_bridge_http_port must differ")
	}
	for name, port := range map[string]uint16{
		"agent_bridge_port":      s.AgentBridgePort,
		"agent_bridge_http_port": s.AgentBridgeHTTPPort,
	} {
		if port < 1024 {
			return fmt.Errorf("%s must be >= 1024, got %d", name, port)
		}
	}
	return nil
}

// BlocklistSet returns the blocklist as a lookup set.
func (s Settings) BlocklistSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.AgentBridgeBlocklist))
	for _, name := range s.AgentBridgeBlocklist {
		set[name] = struct{}{}
	}
	return set
}

// Watcher is notified after a successful Save.
type Watcher func(Settings)

// Store loads and saves Settings for the active profile's home directory.
// Exactly one Store writes at a time (guarded by mu); many readers are safe
// concurrently with a Load because Save is atomic.
type Store struct {
	home     string
	mu       sync.Mutex
	watchers []Watcher
}

// NewStore returns a Store rooted at home. home is normally a Profile's
// home_path; tests point it at a t.TempDir().
func NewStore(home string) *Store {
	return &Store{home: home}
}

func (s *Store) path() string {
	return filepath.Join(s.home, "settings.json")
}

// Load reads settings.json, filling documented defaults for any key absent
// from the file. A missing file yields defaults (not an error); a corrupt
// file fails loudly.
func (s *Store) Load() (Settings, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings: %w", err)
	}

	merged := DefaultSettings()
	if err := json.Unmarshal(data, &merged); err != nil {
		return Settings{}, fmt.Errorf("parsing settings.json: %w", err)
	}

	// Preserve unrecognized keys verbatim for round-trip fidelity.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		known := knownKeys()
		for k := range raw {
			if _, ok := known[k]; ok {
				delete(raw, k)
			}
		}
		if len(raw) > 0 {
			extra, _ := json.Marshal(raw)
			merged.Extra = extra
		}
	}

	return merged, nil
}

// Save writes settings atomically (write-temp + rename) and notifies
// watchers registered via Watch.
func (s *Store) Save(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := marshalWithExtra(settings)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	if err := fsatomic.WriteFile(s.path(), data, 0o600); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}

	for _, w := range s.watchers {
		w(settings)
	}
	return nil
}

// Watch registers a callback invoked after every successful Save.
func (s *Store) Watch(w Watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, w)
}

func marshalWithExtra(s Settings) ([]byte, error) {
	base, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	if len(s.Extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	var extra map[string]json.RawMessage
	if err := json.Unmarshal(s.Extra, &extra); err != nil {
		return nil, err
	}
	for k, v := range extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func knownKeys() map[string]struct{} {
	keys := []string{
		"email", "biovault_path", "syftbox_server_url", "agent_bridge_enabled",
		"agent_bridge_port", "agent_bridge_http_port", "agent_bridge_token",
		"agent_bridge_blocklist", "ai_api_url", "ai_api_token", "ai_model",
		"autostart_enabled",
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// EnvTokenOverride returns $AGENT_BRIDGE_TOKEN if set.
func EnvTokenOverride() (string, bool) {
	v, ok := os.LookupEnv("AGENT_BRIDGE_TOKEN")
	return v, ok && v != ""
}

// parsePortEnv parses a port number from an environment string, returning
// fallback on any parse error.
func parsePortEnv(v string, fallback uint16) uint16 {
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return fallback
	}
	return uint16(n)
}
