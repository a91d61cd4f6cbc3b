package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups that miss.
var ErrNotFound = errors.New("store: not found")

// Mode is the user's conversation mode. It is an explicit tag so that a
// draft or retry counter can never exist for an idle user by accident.
type Mode string

const (
	ModeIdle       Mode = "IDLE"
	ModeConversing Mode = "CONVERSING"
)

// UserState holds the per-user conversation state.
//
// QuestionOrder is the active question while conversing. While idle it is
// the position a resume opens from: 0 before the first question, the
// still-unanswered order after a failed turn, or one past the last order
// once the sequence is exhausted.
type UserState struct {
	ChatID        int64     `json:"chat_id"`
	FirstName     string    `json:"first_name"`
	Mode          Mode      `json:"mode"`
	QuestionOrder int       `json:"question_order"`
	Draft         string    `json:"draft"`
	Retries       int       `json:"retries"`
	CreatedAt     time.Time `json:"created_at"`
}

// Question is one seeded biography question. Immutable once seeded.
type Question struct {
	Order    int    `json:"order"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// StoryRecord is a permanently stored accepted answer.
type StoryRecord struct {
	ID            string    `json:"id"`
	ChatID        int64     `json:"chat_id"`
	QuestionOrder int       `json:"question_order"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
}

// StatePatch is a partial update of UserState. Nil fields are left as-is.
type StatePatch struct {
	Mode          *Mode
	QuestionOrder *int
	Draft         *string
	Retries       *int
}

func (p StatePatch) apply(u *UserState) {
	if p.Mode != nil {
		u.Mode = *p.Mode
	}
	if p.QuestionOrder != nil {
		u.QuestionOrder = *p.QuestionOrder
	}
	if p.Draft != nil {
		u.Draft = *p.Draft
	}
	if p.Retries != nil {
		u.Retries = *p.Retries
	}
}

// UserStore holds per-user conversation state.
type UserStore interface {
	GetUser(ctx context.Context, chatID int64) (UserState, bool, error)
	CreateUser(ctx context.Context, chatID int64, firstName string) (UserState, error)

	// CommitTurn applies the state patch and, when record is non-nil,
	// appends the story record in the same transaction. A turn either lands
	// fully or not at all; a record can never be stored without the state
	// advancing, nor the other way around.
	CommitTurn(ctx context.Context, chatID int64, patch StatePatch, record *StoryRecord) (UserState, error)
}

// QuestionStore reads and seeds the question sequence.
type QuestionStore interface {
	QuestionByOrder(ctx context.Context, order int) (Question, bool, error)

	// NextQuestionAfter returns the question with the smallest order
	// strictly greater than the given one, or ok=false when the sequence is
	// exhausted.
	NextQuestionAfter(ctx context.Context, order int) (Question, bool, error)

	ListQuestions(ctx context.Context) ([]Question, error)

	// PutQuestion upserts by order. Used by seeding only.
	PutQuestion(ctx context.Context, q Question) error
}

// StoryStore reads accepted answers back out.
type StoryStore interface {
	ListStories(ctx context.Context, chatID int64) ([]StoryRecord, error)
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	QuestionStore
	StoryStore
	Close() error
}
