package config

import "testing"

func TestProfileCreateAndActive(t *testing.T) {
	store := NewProfileStore(t.TempDir())

	p1, err := store.Create("alice@example.com", "/tmp/alice")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p1.ID == "" {
		t.Fatalf("expected generated ID")
	}

	active, err := store.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active.ID != p1.ID {
		t.Fatalf("first created profile should be active by default")
	}
}

func TestProfileSwitch(t *testing.T) {
	store := NewProfileStore(t.TempDir())
	p1, _ := store.Create("alice@example.com", "/tmp/alice")
	p2, _ := store.Create("bob@example.com", "/tmp/bob")

	if _, err := store.Switch(p2.ID); err != nil {
		t.Fatalf("Switch: %v", err)
	}
	active, err := store.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active.ID != p2.ID {
		t.Fatalf("Active() = %s, want %s", active.ID, p2.ID)
	}

	if _, err := store.Switch("does-not-exist"); err == nil {
		t.Fatalf("expected error switching to unknown profile")
	}

	_ = p1
}

func TestProfileDeleteReassignsActive(t *testing.T) {
	store := NewProfileStore(t.TempDir())
	p1, _ := store.Create("alice@example.com", "/tmp/alice")
	p2, _ := store.Create("bob@example.com", "/tmp/bob")

	if err := store.Delete(p1.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	active, err := store.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active.ID != p2.ID {
		t.Fatalf("expected remaining profile to become active, got %s", active.ID)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 profile remaining, got %d", len(list))
	}
}

func TestProfileDeleteUnknown(t *testing.T) {
	store := NewProfileStore(t.TempDir())
	if err := store.Delete("nope"); err == nil {
		t.Fatalf("expected error deleting unknown profile")
	}
}
