// Package session implements the Session Coordinator: the
// pending/active/closed lifecycle for a collaborative analysis session, its
// linked dataset list, and a narrow interface onto the external Jupyter
// launcher the desktop shell actually owns (Non-goals: no notebook
// kernel implementation lives here).
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/OpenMined/biovault-desktop/core/internal/bverrors"
	"github.com/OpenMined/biovault-desktop/core/internal/fsatomic"
)

// Status is a Session's place in its lifecycle.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusClosed  Status = "closed"
	StatusDeclined Status = "declined"
)

// Dataset is one linked dataset within a Session: either a local file
// copied into the session folder (Path set) or a remote dataset reference
// (URL/Role set via add_dataset_to_session).
type Dataset struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Path    string    `json:"path,omitempty"`
	URL     string    `json:"url,omitempty"`
	Role    string    `json:"role,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

// Session is the record of a collaborative analysis session.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	Host         string    `json:"host"`
	Participants []string  `json:"participants"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Datasets     []Dataset `json:"datasets"`
}

// JupyterLauncher is the external collaborator that actually starts/stops a
// notebook kernel for a session folder (out of scope for this
// core). Production wiring lives in the desktop shell; this package only
// defines the seam and a stub for tests.
type JupyterLauncher interface {
	Launch(sessionID, folder string) (handle string, err error)
	Stop(handle string) error
}

// StubJupyterLauncher is a JupyterLauncher that never succeeds, used when no
// real launcher has been wired (e.g. running the core standalone via
// cmd/biovaultcore). It exists so Coordinator never has a nil dependency.
type StubJupyterLauncher struct{}

func (StubJupyterLauncher) Launch(sessionID, folder string) (string, error) {
	return "", bverrors.New(bverrors.KindDaemonUnavailable, "no Jupyter launcher configured")
}

func (StubJupyterLauncher) Stop(handle string) error {
	return bverrors.New(bverrors.KindDaemonUnavailable, "no Jupyter launcher configured")
}

// Coordinator owns session lifecycle and storage under {home}/sessions.
type Coordinator struct {
	home     string
	self     string
	launcher JupyterLauncher

	locks sync.Map // session id -> *sync.Mutex
}

// NewCoordinator returns a Coordinator rooted at home for the profile self.
// A nil launcher is replaced with StubJupyterLauncher.
func NewCoordinator(home, self string, launcher JupyterLauncher) *Coordinator {
	if launcher == nil {
		launcher = StubJupyterLauncher{}
	}
	return &Coordinator{home: home, self: self, launcher: launcher}
}

func (c *Coordinator) sessionDir(id string) string {
	return filepath.Join(c.home, "sessions", id)
}

func (c *Coordinator) sessionPath(id string) string {
	return filepath.Join(c.sessionDir(id), "session.json")
}

func (c *Coordinator) lock(id string) *sync.Mutex {
	l, _ := c.locks.LoadOrStore(id, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// CreateRequest is the argument shape of create_session.
type CreateRequest struct {
	Title        string
	Participants []string
}

// CreateSession creates a new session hosted by this profile. A session
// with no participants starts active immediately (a solo session with no
// invitation to wait on); one with participants starts pending until
// accepted.
func (c *Coordinator) CreateSession(req CreateRequest) (Session, error) {
	now := time.Now().UTC()
	status := StatusActive
	if len(req.Participants) > 0 {
		status = StatusPending
	}
	s := Session{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Host:         c.self,
		Participants: append([]string{c.self}, req.Participants...),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.save(s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// AcceptSessionInvitation transitions a pending session to active.
func (c *Coordinator) AcceptSessionInvitation(sessionID string) (Session, error) {
	return c.transition(sessionID, StatusPending, StatusActive)
}

// RejectSessionInvitation transitions a pending session to closed.
func (c *Coordinator) RejectSessionInvitation(sessionID string) (Session, error) {
	return c.transition(sessionID, StatusPending, StatusClosed)
}

// CloseSession transitions an active session to closed. Closing is
// idempotent: closing an already-closed session is a no-op success.
func (c *Coordinator) CloseSession(sessionID string) (Session, error) {
	lock := c.lock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := c.load(sessionID)
	if err != nil {
		return Session{}, err
	}
	if s.Status == StatusClosed {
		return s, nil
	}
	if s.Status != StatusActive {
		return Session{}, bverrors.New(bverrors.KindPreconditionFailed,
			"session must be active to close, is "+string(s.Status))
	}
	s.Status = StatusClosed
	s.UpdatedAt = time.Now().UTC()
	if err := c.save(s); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (c *Coordinator) transition(sessionID string, from, to Status) (Session, error) {
	lock := c.lock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := c.load(sessionID)
	if err != nil {
		return Session{}, err
	}
	if s.Status != from {
		return Session{}, bverrors.New(bverrors.KindPreconditionFailed,
			"session must be "+string(from)+" to transition to "+string(to)+", is "+string(s.Status))
	}
	s.Status = to
	s.UpdatedAt = time.Now().UTC()
	if err := c.save(s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// GetSession returns a session by id.
func (c *Coordinator) GetSession(sessionID string) (Session, error) {
	return c.load(sessionID)
}

// ListSessions returns every session under home, newest first.
func (c *Coordinator) ListSessions() ([]Session, error) {
	root := filepath.Join(c.home, "sessions")
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, bverrors.Wrap(bverrors.KindIoError, "listing sessions", err)
	}
	var out []Session
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		s, err := c.load(e.Name())
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AddFilesToSession copies each file into the session folder and links the
// copy as a dataset of an active or pending session.
func (c *Coordinator) AddFilesToSession(sessionID string, paths []string) (Session, error) {
	if len(paths) == 0 {
		return Session{}, bverrors.MissingParam("paths")
	}
	lock := c.lock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := c.load(sessionID)
	if err != nil {
		return Session{}, err
	}
	if s.Status == StatusClosed || s.Status == StatusDeclined {
		return Session{}, bverrors.New(bverrors.KindPreconditionFailed,
			"cannot add files to a "+string(s.Status)+" session")
	}
	now := time.Now().UTC()
	dir := c.sessionDir(sessionID)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return Session{}, bverrors.Wrap(bverrors.KindIoError, "reading "+p, err)
		}
		dest := filepath.Join(dir, filepath.Base(p))
		if err := fsatomic.WriteFile(dest, data, 0o600); err != nil {
			return Session{}, bverrors.Wrap(bverrors.KindIoError, "copying "+p+" into session folder", err)
		}
		s.Datasets = append(s.Datasets, Dataset{
			ID:      uuid.NewString(),
			Name:    filepath.Base(p),
			Path:    dest,
			AddedAt: now,
		})
	}
	s.UpdatedAt = now
	if err := c.save(s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// ListSessionDatasets returns a session's linked datasets.
func (c *Coordinator) ListSessionDatasets(sessionID string) ([]Dataset, error) {
	s, err := c.load(sessionID)
	if err != nil {
		return nil, err
	}
	return s.Datasets, nil
}

// AddDatasetToSession links a remote dataset reference (as opposed to
// AddFilesToSession's local file copy) to an open session.
func (c *Coordinator) AddDatasetToSession(sessionID, datasetURL, role string) (Session, error) {
	if datasetURL == "" {
		return Session{}, bverrors.MissingParam("dataset_url")
	}
	lock := c.lock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := c.load(sessionID)
	if err != nil {
		return Session{}, err
	}
	if s.Status == StatusClosed || s.Status == StatusDeclined {
		return Session{}, bverrors.New(bverrors.KindPreconditionFailed,
			"cannot add datasets to a "+string(s.Status)+" session")
	}
	s.Datasets = append(s.Datasets, Dataset{
		ID:      uuid.NewString(),
		Name:    filepath.Base(datasetURL),
		URL:     datasetURL,
		Role:    role,
		AddedAt: time.Now().UTC(),
	})
	s.UpdatedAt = time.Now().UTC()
	if err := c.save(s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// RemoveDatasetFromSession unlinks a dataset by id.
func (c *Coordinator) RemoveDatasetFromSession(sessionID, datasetID string) (Session, error) {
	lock := c.lock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := c.load(sessionID)
	if err != nil {
		return Session{}, err
	}
	kept := s.Datasets[:0]
	for _, d := range s.Datasets {
		if d.ID != datasetID {
			kept = append(kept, d)
		}
	}
	s.Datasets = kept
	s.UpdatedAt = time.Now().UTC()
	if err := c.save(s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// OpenSessionFolder ensures the session's working folder exists and returns
// its path. Actually revealing it in a file manager is a desktop-shell UI
// concern; this is the filesystem half of that command.
func (c *Coordinator) OpenSessionFolder(sessionID string) (string, error) {
	if _, err := c.load(sessionID); err != nil {
		return "", err
	}
	dir := c.sessionDir(sessionID)
	if err := fsatomic.EnsureDir(dir); err != nil {
		return "", bverrors.Wrap(bverrors.KindIoError, "creating session folder", err)
	}
	return dir, nil
}

// LaunchJupyter delegates to the configured JupyterLauncher for an active
// session's folder.
func (c *Coordinator) LaunchJupyter(sessionID string) (string, error) {
	s, err := c.load(sessionID)
	if err != nil {
		return "", err
	}
	if s.Status != StatusActive {
		return "", bverrors.New(bverrors.KindPreconditionFailed, "session must be active to launch Jupyter")
	}
	return c.launcher.Launch(sessionID, c.sessionDir(sessionID))
}

// StopJupyter delegates to the configured JupyterLauncher.
func (c *Coordinator) StopJupyter(handle string) error {
	return c.launcher.Stop(handle)
}

// ResetJupyter stops an existing Jupyter handle, ignoring errors from a
// handle that is already gone, and relaunches a fresh one for the session.
func (c *Coordinator) ResetJupyter(sessionID, handle string) (string, error) {
	if handle != "" {
		_ = c.launcher.Stop(handle)
	}
	return c.LaunchJupyter(sessionID)
}

func (c *Coordinator) load(sessionID string) (Session, error) {
	data, err := os.ReadFile(c.sessionPath(sessionID))
	if os.IsNotExist(err) {
		return Session{}, bverrors.New(bverrors.KindNotFound, "session not found: "+sessionID)
	}
	if err != nil {
		return Session{}, bverrors.Wrap(bverrors.KindIoError, "reading session", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, bverrors.Wrap(bverrors.KindInternal, "parsing session", err)
	}
	return s, nil
}

func (c *Coordinator) save(s Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return bverrors.Wrap(bverrors.KindInternal, "marshaling session", err)
	}
	if err := fsatomic.WriteFile(c.sessionPath(s.ID), data, 0o600); err != nil {
		return bverrors.Wrap(bverrors.KindIoError, "writing session", err)
	}
	return nil
}
