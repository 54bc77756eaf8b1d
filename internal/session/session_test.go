package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/insightlab/insighthub/internal/testutil"
)

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("New(nil, nil) should fail without a pool")
	}
}

func newContainerStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	store, err := New(testutil.StartPostgres(t), nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return store
}

func TestStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := newContainerStore(t)

	created, err := store.Create(ctx, "Quarterly digest", "document_rag")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Error("Create() returned a nil session ID")
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Title != "Quarterly digest" || got.AgentName != "document_rag" {
		t.Errorf("Get() = %+v, want title and agent preserved", got)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	store := newContainerStore(t)

	if _, err := store.Get(context.Background(), uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() unknown ID = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_AppendMessage_AssignsSequentialNumbers(t *testing.T) {
	ctx := context.Background()
	store := newContainerStore(t)

	sess, err := store.Create(ctx, "seq", "document_rag")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	for i, role := range []string{"user", "model", "user"} {
		msg, err := store.AppendMessage(ctx, sess.ID, role, fmt.Sprintf("turn %d", i+1))
		if err != nil {
			t.Fatalf("AppendMessage() %d error: %v", i+1, err)
		}
		if msg.Sequence != int32(i+1) {
			t.Errorf("message %d sequence = %d, want %d", i+1, msg.Sequence, i+1)
		}
	}

	updated, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !updated.UpdatedAt.After(sess.UpdatedAt) {
		t.Error("UpdatedAt not bumped by AppendMessage")
	}
}

func TestStore_AppendMessage_ConcurrentSequencesStayUnique(t *testing.T) {
	ctx := context.Background()
	store := newContainerStore(t)

	sess, err := store.Create(ctx, "concurrent", "document_rag")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Concurrent appends race on the next sequence number; the unique
	// constraint may reject some, but two messages must never share one.
	const writers = 8
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.AppendMessage(ctx, sess.ID, "user", fmt.Sprintf("writer %d", i))
		}()
	}
	wg.Wait()

	messages, err := store.Messages(ctx, sess.ID, 0)
	if err != nil {
		t.Fatalf("Messages() error: %v", err)
	}
	if len(messages) == 0 {
		t.Fatal("no messages stored")
	}
	seen := make(map[int32]bool)
	for _, msg := range messages {
		if seen[msg.Sequence] {
			t.Fatalf("duplicate sequence number %d", msg.Sequence)
		}
		seen[msg.Sequence] = true
	}
}

func TestStore_AppendMessage_UnknownSession(t *testing.T) {
	store := newContainerStore(t)

	if _, err := store.AppendMessage(context.Background(), uuid.New(), "user", "hello"); err == nil {
		t.Error("AppendMessage() to unknown session should fail")
	}
}

func TestStore_Messages_LimitReturnsRecentInOrder(t *testing.T) {
	ctx := context.Background()
	store := newContainerStore(t)

	sess, err := store.Create(ctx, "history", "document_rag")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	for i := 1; i <= 5; i++ {
		if _, err := store.AppendMessage(ctx, sess.ID, "user", fmt.Sprintf("turn %d", i)); err != nil {
			t.Fatalf("AppendMessage() %d error: %v", i, err)
		}
	}

	recent, err := store.Messages(ctx, sess.ID, 2)
	if err != nil {
		t.Fatalf("Messages() error: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d messages, want 2", len(recent))
	}
	// Last two turns, still oldest-first.
	if recent[0].Content != "turn 4" || recent[1].Content != "turn 5" {
		t.Errorf("recent = [%q %q], want [turn 4 turn 5]", recent[0].Content, recent[1].Content)
	}
}

func TestStore_Delete_RemovesSessionAndMessages(t *testing.T) {
	ctx := context.Background()
	store := newContainerStore(t)

	sess, err := store.Create(ctx, "doomed", "document_rag")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := store.AppendMessage(ctx, sess.ID, "user", "hello"); err != nil {
		t.Fatalf("AppendMessage() error: %v", err)
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after delete = %v, want ErrSessionNotFound", err)
	}
	messages, err := store.Messages(ctx, sess.ID, 0)
	if err != nil {
		t.Fatalf("Messages() after delete error: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("cascade left %d messages behind", len(messages))
	}

	if err := store.Delete(ctx, sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Delete() = %v, want ErrSessionNotFound", err)
	}
}
