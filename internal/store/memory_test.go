package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedThree(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for _, q := range []Question{
		{Order: 1, Text: "first", Category: "Childhood"},
		{Order: 3, Text: "third", Category: "Career"},
		{Order: 7, Text: "seventh", Category: "Reflection"},
	} {
		if err := s.PutQuestion(ctx, q); err != nil {
			t.Fatalf("PutQuestion(%d): %v", q.Order, err)
		}
	}
}

func TestMemoryCreateUserIsIdempotent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	first, err := s.CreateUser(ctx, 1, "  Ana ")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if first.FirstName != "Ana" || first.Mode != ModeIdle || first.QuestionOrder != 0 {
		t.Fatalf("new user: %+v", first)
	}

	again, err := s.CreateUser(ctx, 1, "Someone Else")
	if err != nil {
		t.Fatalf("CreateUser again: %v", err)
	}
	if again != first {
		t.Fatalf("second create must return the existing user:\n got %+v\nwant %+v", again, first)
	}
}

func TestMemoryCommitTurnAppliesPatchAndRecord(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	if _, err := s.CreateUser(ctx, 1, "Ana"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	mode := ModeConversing
	order := 3
	draft := "work in progress"
	retries := 2
	u, err := s.CommitTurn(ctx, 1, StatePatch{
		Mode:          &mode,
		QuestionOrder: &order,
		Draft:         &draft,
		Retries:       &retries,
	}, &StoryRecord{ID: "r1", ChatID: 1, QuestionOrder: 1, Text: "done story", CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CommitTurn: %v", err)
	}
	if u.Mode != ModeConversing || u.QuestionOrder != 3 || u.Draft != "work in progress" || u.Retries != 2 {
		t.Fatalf("patched state: %+v", u)
	}

	// Nil patch fields leave state alone.
	newDraft := "only the draft"
	u, err = s.CommitTurn(ctx, 1, StatePatch{Draft: &newDraft}, nil)
	if err != nil {
		t.Fatalf("CommitTurn partial: %v", err)
	}
	if u.Mode != ModeConversing || u.QuestionOrder != 3 || u.Retries != 2 || u.Draft != "only the draft" {
		t.Fatalf("partial patch state: %+v", u)
	}

	stories, err := s.ListStories(ctx, 1)
	if err != nil {
		t.Fatalf("ListStories: %v", err)
	}
	if len(stories) != 1 || stories[0].ID != "r1" {
		t.Fatalf("stories: %+v", stories)
	}
}

func TestMemoryCommitTurnUnknownUser(t *testing.T) {
	s := NewMemory()
	_, err := s.CommitTurn(context.Background(), 99, StatePatch{}, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryNextQuestionAfterSkipsGaps(t *testing.T) {
	s := NewMemory()
	seedThree(t, s)
	ctx := context.Background()

	cases := []struct {
		after    int
		wantOrd  int
		wantOK   bool
	}{
		{0, 1, true},
		{1, 3, true},
		{2, 3, true},
		{3, 7, true},
		{7, 0, false},
		{100, 0, false},
	}
	for _, tc := range cases {
		q, ok, err := s.NextQuestionAfter(ctx, tc.after)
		if err != nil {
			t.Fatalf("NextQuestionAfter(%d): %v", tc.after, err)
		}
		if ok != tc.wantOK || (ok && q.Order != tc.wantOrd) {
			t.Fatalf("NextQuestionAfter(%d) = %+v ok=%v, want order %d ok=%v", tc.after, q, ok, tc.wantOrd, tc.wantOK)
		}
	}
}

func TestMemoryListQuestionsSorted(t *testing.T) {
	s := NewMemory()
	seedThree(t, s)

	qs, err := s.ListQuestions(context.Background())
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if len(qs) != 3 || qs[0].Order != 1 || qs[1].Order != 3 || qs[2].Order != 7 {
		t.Fatalf("questions: %+v", qs)
	}
}

func TestMemoryListStoriesFiltersAndSorts(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	for _, chatID := range []int64{1, 2} {
		if _, err := s.CreateUser(ctx, chatID, "u"); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	for _, r := range []StoryRecord{
		{ID: "a", ChatID: 1, QuestionOrder: 5, Text: "later"},
		{ID: "b", ChatID: 2, QuestionOrder: 1, Text: "other user"},
		{ID: "c", ChatID: 1, QuestionOrder: 2, Text: "earlier"},
	} {
		if _, err := s.CommitTurn(ctx, r.ChatID, StatePatch{}, &r); err != nil {
			t.Fatalf("CommitTurn: %v", err)
		}
	}

	stories, err := s.ListStories(ctx, 1)
	if err != nil {
		t.Fatalf("ListStories: %v", err)
	}
	if len(stories) != 2 || stories[0].ID != "c" || stories[1].ID != "a" {
		t.Fatalf("stories: %+v", stories)
	}
}
