package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/daydemir/devloop/internal/project"
	"github.com/daydemir/devloop/internal/types"
	"github.com/google/uuid"
)

type record struct {
	active    bool
	completed bool
	createdAt time.Time
	messages  []types.Message
	changed   chan struct{}
}

// MemoryStore keeps session state in process memory
type MemoryStore struct {
	mu          sync.RWMutex
	objectives  map[string]*record
	seq         int64
	projectRoot string
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store. projectRoot is where
// generated projects live.
func NewMemoryStore(projectRoot string) *MemoryStore {
	return &MemoryStore{
		objectives:  make(map[string]*record),
		projectRoot: projectRoot,
		now:         time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, objective string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objectives[objective]; exists {
		return fmt.Errorf("%w: %s", ErrObjectiveExists, objective)
	}
	s.objectives[objective] = &record{
		createdAt: s.now(),
		changed:   make(chan struct{}),
	}
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, objective string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.objectives[objective]
	return ok, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.objectives))
	for name := range s.objectives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) AppendUserMessage(ctx context.Context, objective, text string) (types.Message, error) {
	return s.append(objective, types.OriginUser, text)
}

func (s *MemoryStore) AppendSystemMessage(ctx context.Context, objective, text string) (types.Message, error) {
	return s.append(objective, types.OriginSystem, text)
}

func (s *MemoryStore) append(objective string, origin types.Origin, text string) (types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(objective)
	if err != nil {
		return types.Message{}, err
	}

	s.seq++
	msg := types.Message{
		ID:        uuid.NewString(),
		Seq:       s.seq,
		Origin:    origin,
		Body:      text,
		Timestamp: s.now(),
	}
	rec.messages = append(rec.messages, msg)

	// Wake waiters, then arm a fresh channel for the next append
	close(rec.changed)
	rec.changed = make(chan struct{})
	return msg, nil
}

func (s *MemoryStore) Conversation(ctx context.Context, objective string) (types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.lookup(objective)
	if err != nil {
		return nil, err
	}
	out := make(types.Conversation, len(rec.messages))
	copy(out, rec.messages)
	return out, nil
}

func (s *MemoryStore) LatestUserMessage(ctx context.Context, objective string) (*types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.lookup(objective)
	if err != nil {
		return nil, err
	}
	for i := len(rec.messages) - 1; i >= 0; i-- {
		if rec.messages[i].FromUser() {
			msg := rec.messages[i]
			return &msg, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) IsLatestMessageFromUser(ctx context.Context, objective string) (bool, error) {
	msg, err := s.TailUserMessage(ctx, objective)
	if err != nil {
		return false, err
	}
	return msg != nil, nil
}

func (s *MemoryStore) TailUserMessage(ctx context.Context, objective string) (*types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.lookup(objective)
	if err != nil {
		return nil, err
	}
	if len(rec.messages) == 0 {
		return nil, nil
	}
	last := rec.messages[len(rec.messages)-1]
	if !last.FromUser() {
		return nil, nil
	}
	return &last, nil
}

func (s *MemoryStore) SetActive(ctx context.Context, objective string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(objective)
	if err != nil {
		return err
	}
	rec.active = active
	return nil
}

func (s *MemoryStore) SetCompleted(ctx context.Context, objective string, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(objective)
	if err != nil {
		return err
	}
	rec.completed = completed
	return nil
}

func (s *MemoryStore) Snapshot(ctx context.Context, objective string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.lookup(objective)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Objective:    objective,
		Active:       rec.active,
		Completed:    rec.completed,
		MessageCount: len(rec.messages),
		CreatedAt:    rec.createdAt,
	}, nil
}

func (s *MemoryStore) ProjectPath(objective string) string {
	return project.Path(s.projectRoot, objective)
}

// Changes implements Notifier. Unknown objectives get a channel that never
// closes; the waiter will surface ErrUnknownObjective on its next read.
func (s *MemoryStore) Changes(objective string) <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.objectives[objective]
	if !ok {
		return make(chan struct{})
	}
	return rec.changed
}

// lookup must be called with s.mu held
func (s *MemoryStore) lookup(objective string) (*record, error) {
	rec, ok := s.objectives[objective]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownObjective, objective)
	}
	return rec, nil
}
