package session

import "testing"

type fakeLauncher struct {
	launched string
	stopped  string
}

func (f *fakeLauncher) Launch(sessionID, folder string) (string, error) {
	f.launched = sessionID
	return "handle-" + sessionID, nil
}

func (f *fakeLauncher) Stop(handle string) error {
	f.stopped = handle
	return nil
}

func TestCreateSessionStartsPending(t *testing.T) {
	c := NewCoordinator(t.TempDir(), "a@x", nil)
	s, err := c.CreateSession(CreateRequest{Title: "t", Participants: []string{"b@x"}})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.Status != StatusPending {
		t.Fatalf("expected pending, got %s", s.Status)
	}
	if len(s.Participants) != 2 {
		t.Fatalf("expected host+invitee in participants, got %v", s.Participants)
	}
}

func TestAcceptThenCloseLifecycle(t *testing.T) {
	c := NewCoordinator(t.TempDir(), "a@x", nil)
	s, _ := c.CreateSession(CreateRequest{Participants: []string{"b@x"}})

	active, err := c.AcceptSessionInvitation(s.ID)
	if err != nil {
		t.Fatalf("AcceptSessionInvitation: %v", err)
	}
	if active.Status != StatusActive {
		t.Fatalf("expected active, got %s", active.Status)
	}

	closed, err := c.CloseSession(s.ID)
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if closed.Status != StatusClosed {
		t.Fatalf("expected closed, got %s", closed.Status)
	}

	// closing again is a no-op success
	if _, err := c.CloseSession(s.ID); err != nil {
		t.Fatalf("expected idempotent close, got %v", err)
	}
}

func TestAcceptTwiceFails(t *testing.T) {
	c := NewCoordinator(t.TempDir(), "a@x", nil)
	s, _ := c.CreateSession(CreateRequest{Participants: []string{"b@x"}})
	if _, err := c.AcceptSessionInvitation(s.ID); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := c.AcceptSessionInvitation(s.ID); err == nil {
		t.Fatalf("expected second accept to fail")
	}
}

func TestAddFilesToClosedSessionFails(t *testing.T) {
	c := NewCoordinator(t.TempDir(), "a@x", nil)
	s, _ := c.CreateSession(CreateRequest{Participants: []string{"b@x"}})
	c.AcceptSessionInvitation(s.ID)
	c.CloseSession(s.ID)

	if _, err := c.AddFilesToSession(s.ID, []string{"/tmp/a.csv"}); err == nil {
		t.Fatalf("expected adding files to a closed session to fail")
	}
}

func TestLaunchJupyterRequiresActiveSession(t *testing.T) {
	launcher := &fakeLauncher{}
	c := NewCoordinator(t.TempDir(), "a@x", launcher)
	s, _ := c.CreateSession(CreateRequest{Participants: []string{"b@x"}})

	if _, err := c.LaunchJupyter(s.ID); err == nil {
		t.Fatalf("expected launch on a pending session to fail")
	}

	c.AcceptSessionInvitation(s.ID)
	handle, err := c.LaunchJupyter(s.ID)
	if err != nil {
		t.Fatalf("LaunchJupyter: %v", err)
	}
	if launcher.launched != s.ID {
		t.Fatalf("expected launcher invoked with session id")
	}
	if handle == "" {
		t.Fatalf("expected a non-empty handle")
	}
}

func TestStubJupyterLauncherReportsUnavailable(t *testing.T) {
	c := NewCoordinator(t.TempDir(), "a@x", nil)
	s, _ := c.CreateSession(CreateRequest{Participants: []string{"b@x"}})
	c.AcceptSessionInvitation(s.ID)

	if _, err := c.LaunchJupyter(s.ID); err == nil {
		t.Fatalf("expected stub launcher to report unavailable")
	}
}

func TestCreateSoloSessionStartsActive(t *testing.T) {
	c := NewCoordinator(t.TempDir(), "a@x", nil)
	s, err := c.CreateSession(CreateRequest{Title: "solo"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.Status != StatusActive {
		t.Fatalf("expected solo session to start active, got %s", s.Status)
	}
	if len(s.Participants) != 1 || s.Participants[0] != "a@x" {
		t.Fatalf("expected only host in participants, got %v", s.Participants)
	}
}

func TestAddAndRemoveDatasetFromSession(t *testing.T) {
	c := NewCoordinator(t.TempDir(), "a@x", nil)
	s, _ := c.CreateSession(CreateRequest{Title: "solo"})

	updated, err := c.AddDatasetToSession(s.ID, "syft://alice/datasets/genomes", "reference")
	if err != nil {
		t.Fatalf("AddDatasetToSession: %v", err)
	}
	if len(updated.Datasets) != 1 {
		t.Fatalf("expected one linked dataset, got %d", len(updated.Datasets))
	}
	ds := updated.Datasets[0]
	if ds.URL == "" || ds.Role != "reference" {
		t.Fatalf("unexpected dataset: %+v", ds)
	}

	listed, err := c.ListSessionDatasets(s.ID)
	if err != nil {
		t.Fatalf("ListSessionDatasets: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected one dataset listed, got %d", len(listed))
	}

	after, err := c.RemoveDatasetFromSession(s.ID, ds.ID)
	if err != nil {
		t.Fatalf("RemoveDatasetFromSession: %v", err)
	}
	if len(after.Datasets) != 0 {
		t.Fatalf("expected dataset removed, got %d remaining", len(after.Datasets))
	}
}

func TestAddDatasetToClosedSessionFails(t *testing.T) {
	c := NewCoordinator(t.TempDir(), "a@x", nil)
	s, _ := c.CreateSession(CreateRequest{Title: "solo"})
	c.CloseSession(s.ID)

	if _, err := c.AddDatasetToSession(s.ID, "syft://alice/datasets/genomes", ""); err == nil {
		t.Fatalf("expected adding a dataset to a closed session to fail")
	}
}

func TestResetJupyterStopsThenRelaunches(t *testing.T) {
	launcher := &fakeLauncher{}
	c := NewCoordinator(t.TempDir(), "a@x", launcher)
	s, _ := c.CreateSession(CreateRequest{Title: "solo"})

	handle, err := c.LaunchJupyter(s.ID)
	if err != nil {
		t.Fatalf("LaunchJupyter: %v", err)
	}

	newHandle, err := c.ResetJupyter(s.ID, handle)
	if err != nil {
		t.Fatalf("ResetJupyter: %v", err)
	}
	if launcher.stopped != handle {
		t.Fatalf("expected old handle stopped, got %q", launcher.stopped)
	}
	if newHandle == "" {
		t.Fatalf("expected a new non-empty handle")
	}
}
