package vault

import (
	"testing"
)

func TestSendWritesToOutboxAndListsOwnThread(t *testing.T) {
	dataDir := t.TempDir()
	localDir := t.TempDir()

	sender := NewStore(dataDir, localDir, "a@x")
	msg, err := sender.Send(SendRequest{To: []string{"b@x"}, Subject: "hi", Body: "hello"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.ThreadID == "" {
		t.Fatalf("expected a computed thread id")
	}

	threads, err := sender.ListThreads("all")
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(threads) != 1 {
		t.Fatalf("expected 1 thread visible to sender from their own outbox, got %d", len(threads))
	}
	if threads[0].LastMessagePreview != "hello" {
		t.Fatalf("unexpected preview: %q", threads[0].LastMessagePreview)
	}
}

func TestDeliverMovesMessageIntoRecipientInboxAndIsIdempotent(t *testing.T) {
	dataDir := t.TempDir()
	localDir := t.TempDir()

	sender := NewStore(dataDir, localDir, "a@x")
	recipient := NewStore(dataDir, localDir, "b@x")

	if _, err := sender.Send(SendRequest{To: []string{"b@x"}, Body: "hello"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	n, err := Deliver(dataDir)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}

	threads, err := recipient.ListThreads("all")
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(threads) != 1 {
		t.Fatalf("expected recipient to see the delivered thread, got %d", len(threads))
	}
	if threads[0].UnreadCount != 1 {
		t.Fatalf("expected 1 unread message for recipient, got %d", threads[0].UnreadCount)
	}

	n2, err := Deliver(dataDir)
	if err != nil {
		t.Fatalf("second Deliver: %v", err)
	}
	if n2 != 0 {
		t.Fatalf("expected re-delivery to be a no-op, got %d new deliveries", n2)
	}
}

func TestMarkThreadAsReadClearsUnreadCount(t *testing.T) {
	dataDir := t.TempDir()
	localDir := t.TempDir()

	sender := NewStore(dataDir, localDir, "a@x")
	recipient := NewStore(dataDir, localDir, "b@x")

	msg, err := sender.Send(SendRequest{To: []string{"b@x"}, Body: "hello"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := Deliver(dataDir); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if err := recipient.MarkThreadAsRead(msg.ThreadID); err != nil {
		t.Fatalf("MarkThreadAsRead: %v", err)
	}

	threads, err := recipient.ListThreads("all")
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if threads[0].UnreadCount != 0 {
		t.Fatalf("expected unread count 0 after marking read, got %d", threads[0].UnreadCount)
	}
}

func TestDeleteThreadIsLocalOnly(t *testing.T) {
	dataDir := t.TempDir()
	localDir := t.TempDir()

	sender := NewStore(dataDir, localDir, "a@x")
	recipient := NewStore(dataDir, localDir, "b@x")

	msg, err := sender.Send(SendRequest{To: []string{"b@x"}, Body: "hello"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := Deliver(dataDir); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if err := recipient.DeleteThread(msg.ThreadID); err != nil {
		t.Fatalf("DeleteThread: %v", err)
	}

	threads, err := recipient.ListThreads("all")
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(threads) != 0 {
		t.Fatalf("expected thread hidden from recipient after local delete, got %d", len(threads))
	}

	senderThreads, err := sender.ListThreads("all")
	if err != nil {
		t.Fatalf("sender ListThreads: %v", err)
	}
	if len(senderThreads) != 1 {
		t.Fatalf("expected sender's own view unaffected by recipient's local delete, got %d", len(senderThreads))
	}
}

func TestSendRejectsMissingRecipientsAndBody(t *testing.T) {
	dataDir := t.TempDir()
	localDir := t.TempDir()
	s := NewStore(dataDir, localDir, "a@x")

	if _, err := s.Send(SendRequest{Body: "hi"}); err == nil {
		t.Fatalf("expected error for missing recipients")
	}
	if _, err := s.Send(SendRequest{To: []string{"b@x"}}); err == nil {
		t.Fatalf("expected error for missing body")
	}
}
