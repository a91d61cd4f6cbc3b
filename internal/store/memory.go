package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and DSN-less local runs.
type MemoryStore struct {
	mu        sync.Mutex
	users     map[int64]UserState
	questions map[int]Question
	stories   []StoryRecord
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		users:     make(map[int64]UserState),
		questions: make(map[int]Question),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetUser(_ context.Context, chatID int64) (UserState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[chatID]
	return u, ok, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, chatID int64, firstName string) (UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[chatID]; ok {
		return u, nil
	}
	u := UserState{
		ChatID:    chatID,
		FirstName: strings.TrimSpace(firstName),
		Mode:      ModeIdle,
		CreatedAt: time.Now().UTC(),
	}
	s.users[chatID] = u
	return u, nil
}

func (s *MemoryStore) CommitTurn(_ context.Context, chatID int64, patch StatePatch, record *StoryRecord) (UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[chatID]
	if !ok {
		return UserState{}, ErrNotFound
	}
	patch.apply(&u)
	s.users[chatID] = u
	if record != nil {
		s.stories = append(s.stories, *record)
	}
	return u, nil
}

func (s *MemoryStore) QuestionByOrder(_ context.Context, order int) (Question, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[order]
	return q, ok, nil
}

func (s *MemoryStore) NextQuestionAfter(_ context.Context, order int) (Question, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := Question{}
	found := false
	for ord, q := range s.questions {
		if ord <= order {
			continue
		}
		if !found || ord < best.Order {
			best = q
			found = true
		}
	}
	return best, found, nil
}

func (s *MemoryStore) ListQuestions(_ context.Context) ([]Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Question, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *MemoryStore) PutQuestion(_ context.Context, q Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.Order] = q
	return nil
}

func (s *MemoryStore) ListStories(_ context.Context, chatID int64) ([]StoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StoryRecord
	for _, r := range s.stories {
		if r.ChatID == chatID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionOrder < out[j].QuestionOrder })
	return out, nil
}
