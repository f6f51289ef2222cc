package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/OpenMined/biovault-desktop/core/internal/fsatomic"
)

// Profile is a named user identity with its own home directory.
type Profile struct {
	ID        string    `yaml:"id"`
	Email     string    `yaml:"email"`
	HomePath  string    `yaml:"home_path"`
	CreatedAt time.Time `yaml:"created_at"`
}

type profileFile struct {
	ActiveID string    `yaml:"active_id"`
	Profiles []Profile `yaml:"profiles"`
}

// ProfileStore persists the multi-profile boot state to config.yaml at its
// root directory (distinct from any individual profile's settings.json).
// At most one profile is active at a time, identified by active_id.
type ProfileStore struct {
	root string
	mu   sync.Mutex
}

// NewProfileStore returns a ProfileStore rooted at root (normally
// $BIOVAULT_CONFIG or ~/.biovault).
func NewProfileStore(root string) *ProfileStore {
	return &ProfileStore{root: root}
}

func (p *ProfileStore) path() string {
	return filepath.Join(p.root, "config.yaml")
}

func (p *ProfileStore) read() (profileFile, error) {
	data, err := os.ReadFile(p.path())
	if os.IsNotExist(err) {
		return profileFile{}, nil
	}
	if err != nil {
		return profileFile{}, fmt.Errorf("reading config.yaml: %w", err)
	}
	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return profileFile{}, fmt.Errorf("parsing config.yaml: %w", err)
	}
	return pf, nil
}

func (p *ProfileStore) write(pf profileFile) error {
	data, err := yaml.Marshal(pf)
	if err != nil {
		return err
	}
	return fsatomic.WriteFile(p.path(), data, 0o600)
}

// List returns all known profiles.
func (p *ProfileStore) List() ([]Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pf, err := p.read()
	if err != nil {
		return nil, err
	}
	return pf.Profiles, nil
}

// Active returns the currently active profile, or an error if none is set.
func (p *ProfileStore) Active() (Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pf, err := p.read()
	if err != nil {
		return Profile{}, err
	}
	for _, prof := range pf.Profiles {
		if prof.ID == pf.ActiveID {
			return prof, nil
		}
	}
	return Profile{}, fmt.Errorf("no active profile")
}

// Create adds a new profile and returns it. The new profile becomes active
// only when no profile is active yet.
func (p *ProfileStore) Create(email, home string) (Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pf, err := p.read()
	if err != nil {
		return Profile{}, err
	}
	prof := Profile{
		ID:        uuid.NewString(),
		Email:     email,
		HomePath:  home,
		CreatedAt: time.Now().UTC(),
	}
	pf.Profiles = append(pf.Profiles, prof)
	if pf.ActiveID == "" {
		pf.ActiveID = prof.ID
	}
	if err := p.write(pf); err != nil {
		return Profile{}, err
	}
	return prof, nil
}

// Switch marks profileID as active. Callers are responsible for tearing
// down and restarting the bridge/sync adapter after a successful switch.
func (p *ProfileStore) Switch(profileID string) (Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pf, err := p.read()
	if err != nil {
		return Profile{}, err
	}
	var found *Profile
	for i := range pf.Profiles {
		if pf.Profiles[i].ID == profileID {
			found = &pf.Profiles[i]
			break
		}
	}
	if found == nil {
		return Profile{}, fmt.Errorf("unknown profile: %s", profileID)
	}
	pf.ActiveID = profileID
	if err := p.write(pf); err != nil {
		return Profile{}, err
	}
	return *found, nil
}

// Delete removes a profile. It never deletes the profile's home directory
// on disk; that remains the caller's explicit choice.
func (p *ProfileStore) Delete(profileID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pf, err := p.read()
	if err != nil {
		return err
	}
	kept := pf.Profiles[:0]
	for _, prof := range pf.Profiles {
		if prof.ID != profileID {
			kept = append(kept, prof)
		}
	}
	if len(kept) == len(pf.Profiles) {
		return fmt.Errorf("unknown profile: %s", profileID)
	}
	pf.Profiles = kept
	if pf.ActiveID == profileID {
		pf.ActiveID = ""
		if len(kept) > 0 {
			pf.ActiveID = kept[0].ID
		}
	}
	return p.write(pf)
}
