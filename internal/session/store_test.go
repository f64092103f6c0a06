package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/daydemir/devloop/internal/types"
)

// storeFactories runs every contract test against both backends.
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"memory": func() Store {
			return NewMemoryStore(t.TempDir())
		},
		"sqlite": func() Store {
			s, err := NewSQLiteStore(t.TempDir(), t.TempDir())
			if err != nil {
				t.Fatalf("failed to create sqlite store: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStoreCreateAndFlags(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore()

			if err := s.Create(ctx, "todo-app"); err != nil {
				t.Fatalf("Create() error: %v", err)
			}
			if err := s.Create(ctx, "todo-app"); !errors.Is(err, ErrObjectiveExists) {
				t.Errorf("second Create() error = %v, want ErrObjectiveExists", err)
			}

			ok, err := s.Exists(ctx, "todo-app")
			if err != nil || !ok {
				t.Errorf("Exists() = %v, %v", ok, err)
			}

			if err := s.SetActive(ctx, "todo-app", true); err != nil {
				t.Fatalf("SetActive() error: %v", err)
			}
			snap, err := s.Snapshot(ctx, "todo-app")
			if err != nil {
				t.Fatalf("Snapshot() error: %v", err)
			}
			if !snap.Active || snap.Completed {
				t.Errorf("snapshot = %+v, want active and not completed", snap)
			}

			if err := s.SetActive(ctx, "todo-app", false); err != nil {
				t.Fatal(err)
			}
			if err := s.SetCompleted(ctx, "todo-app", true); err != nil {
				t.Fatal(err)
			}
			snap, _ = s.Snapshot(ctx, "todo-app")
			if snap.Active || !snap.Completed {
				t.Errorf("snapshot = %+v, want completed and not active", snap)
			}

			names, err := s.List(ctx)
			if err != nil || len(names) != 1 || names[0] != "todo-app" {
				t.Errorf("List() = %v, %v", names, err)
			}
		})
	}
}

func TestStoreUnknownObjectiveFailsLoudly(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore()

			checks := map[string]error{}
			_, checks["AppendUserMessage"] = s.AppendUserMessage(ctx, "ghost", "hi")
			_, checks["AppendSystemMessage"] = s.AppendSystemMessage(ctx, "ghost", "hi")
			_, checks["Conversation"] = s.Conversation(ctx, "ghost")
			_, checks["TailUserMessage"] = s.TailUserMessage(ctx, "ghost")
			_, checks["LatestUserMessage"] = s.LatestUserMessage(ctx, "ghost")
			_, checks["Snapshot"] = s.Snapshot(ctx, "ghost")
			checks["SetActive"] = s.SetActive(ctx, "ghost", true)
			checks["SetCompleted"] = s.SetCompleted(ctx, "ghost", true)

			for op, err := range checks {
				if !errors.Is(err, ErrUnknownObjective) {
					t.Errorf("%s() error = %v, want ErrUnknownObjective", op, err)
				}
			}

			if ok, _ := s.Exists(ctx, "ghost"); ok {
				t.Error("failed mutations must not create the objective")
			}
		})
	}
}

func TestStoreMessageOrderingAndTail(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore()
			if err := s.Create(ctx, "app"); err != nil {
				t.Fatal(err)
			}

			if msg, _ := s.TailUserMessage(ctx, "app"); msg != nil {
				t.Error("empty log should have no user tail")
			}

			first, _ := s.AppendUserMessage(ctx, "app", "Build a todo app")
			second, _ := s.AppendSystemMessage(ctx, "app", "Which framework?")
			if second.Seq <= first.Seq {
				t.Errorf("sequence not increasing: %d then %d", first.Seq, second.Seq)
			}

			if fromUser, _ := s.IsLatestMessageFromUser(ctx, "app"); fromUser {
				t.Error("latest message is from system")
			}
			latest, _ := s.LatestUserMessage(ctx, "app")
			if latest == nil || latest.Body != "Build a todo app" {
				t.Errorf("LatestUserMessage() = %+v", latest)
			}

			reply, _ := s.AppendUserMessage(ctx, "app", "React")
			tail, err := s.TailUserMessage(ctx, "app")
			if err != nil {
				t.Fatal(err)
			}
			if tail == nil || tail.ID != reply.ID || tail.Seq != reply.Seq {
				t.Errorf("TailUserMessage() = %+v, want %+v", tail, reply)
			}

			conv, _ := s.Conversation(ctx, "app")
			want := []string{"Build a todo app", "Which framework?", "React"}
			if len(conv) != len(want) {
				t.Fatalf("conversation length = %d, want %d", len(conv), len(want))
			}
			for i, body := range want {
				if conv[i].Body != body {
					t.Errorf("conv[%d] = %q, want %q", i, conv[i].Body, body)
				}
			}
			if conv[2].Origin != types.OriginUser {
				t.Errorf("conv[2] origin = %q", conv[2].Origin)
			}

			snap, _ := s.Snapshot(ctx, "app")
			if snap.MessageCount != 3 {
				t.Errorf("MessageCount = %d, want 3", snap.MessageCount)
			}
		})
	}
}

func TestStoreConcurrentAppends(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore()
			if err := s.Create(ctx, "app"); err != nil {
				t.Fatal(err)
			}

			const writers = 8
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := s.AppendUserMessage(ctx, "app", "reply"); err != nil {
						t.Errorf("append error: %v", err)
					}
				}()
			}
			wg.Wait()

			conv, _ := s.Conversation(ctx, "app")
			if len(conv) != writers {
				t.Fatalf("got %d messages, want %d", len(conv), writers)
			}
			for i := 1; i < len(conv); i++ {
				if conv[i].Seq <= conv[i-1].Seq {
					t.Errorf("messages out of order at %d", i)
				}
			}
		})
	}
}

func TestMemoryStoreChangesWakesOnAppend(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(t.TempDir())
	if err := s.Create(ctx, "app"); err != nil {
		t.Fatal(err)
	}

	changed := s.Changes("app")
	select {
	case <-changed:
		t.Fatal("channel closed before any append")
	default:
	}

	go func() {
		_, _ = s.AppendUserMessage(ctx, "app", "hello")
	}()

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("append did not signal Changes")
	}
}

func TestProjectPathUsesSlug(t *testing.T) {
	s := NewMemoryStore("/tmp/projects")
	if got := s.ProjectPath("todo-app"); got != "/tmp/projects/todo-app" {
		t.Errorf("ProjectPath() = %q", got)
	}
	if s.ProjectPath("Todo App") == s.ProjectPath("todo-app") {
		t.Error("distinct objectives share a project directory")
	}
}
