package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"legado/internal/store"
)

// DefaultMaxAttempts is the refinement retry budget: after this many
// follow-up rounds on one question the draft is accepted as-is.
const DefaultMaxAttempts = 3

// ErrTurnFailed marks a turn that could not be committed. The user has been
// parked idle on the current question so /start can reopen it.
var ErrTurnFailed = errors.New("engine: turn failed")

// Reply is what the transport should send back, in order.
type Reply struct {
	Messages []string
}

// Archiver exports a finished biography. Optional.
type Archiver interface {
	ExportBiography(ctx context.Context, chatID int64) error
}

// Config tunes an Engine. Zero values pick sane defaults.
type Config struct {
	MaxAttempts int
	Archiver    Archiver
	Logger      *zap.Logger
}

// Engine drives the per-user refinement loop: it reads the draft, asks the
// analyzer for a verdict, applies the acceptance policy and commits the
// resulting state in one store transaction.
type Engine struct {
	store       store.Store
	analyzer    Analyzer
	archiver    Archiver
	log         *zap.Logger
	maxAttempts int

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(st store.Store, analyzer Analyzer, cfg Config) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{
		store:       st,
		analyzer:    analyzer,
		archiver:    cfg.Archiver,
		log:         cfg.Logger,
		maxAttempts: cfg.MaxAttempts,
		locks:       make(map[int64]*sync.Mutex),
	}
}

// lockUser serializes turns per user. Turns for different users run freely
// in parallel.
func (e *Engine) lockUser(chatID int64) func() {
	e.mu.Lock()
	l, ok := e.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[chatID] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// BeginOrResume handles a /start: creates the user if unknown, opens the
// next question if idle, and is a no-op (other than saying so) when a
// conversation is already in progress.
func (e *Engine) BeginOrResume(ctx context.Context, chatID int64, firstName string) (Reply, error) {
	unlock := e.lockUser(chatID)
	defer unlock()

	u, known, err := e.store.GetUser(ctx, chatID)
	if err != nil {
		return Reply{Messages: []string{msgOops}}, err
	}

	greeting := msgWelcomeBack(u.FirstName)
	if !known {
		u, err = e.store.CreateUser(ctx, chatID, firstName)
		if err != nil {
			return Reply{Messages: []string{msgOops}}, err
		}
		greeting = msgWelcome(u.FirstName)
	}

	if u.Mode == store.ModeConversing {
		return Reply{Messages: []string{greeting, msgInProgress}}, nil
	}

	q, ok, err := e.openQuestion(ctx, u.QuestionOrder)
	if err != nil {
		return Reply{Messages: []string{msgOops}}, err
	}
	if !ok {
		return Reply{Messages: []string{greeting, msgAllDone}}, nil
	}

	mode := store.ModeConversing
	order := q.Order
	empty := ""
	zero := 0
	if _, err := e.store.CommitTurn(ctx, chatID, store.StatePatch{
		Mode:          &mode,
		QuestionOrder: &order,
		Draft:         &empty,
		Retries:       &zero,
	}, nil); err != nil {
		return Reply{Messages: []string{msgOops}}, err
	}

	return Reply{Messages: []string{greeting, msgQuestion(q.Order, q.Text)}}, nil
}

// HandleTurn processes one incoming message for a conversing user.
//
// Policy precedence, first match wins:
//  1. user wants to stop  -> keep the draft (if any) and advance
//  2. retry budget spent  -> force-accept the merged draft and advance
//  3. verdict is complete -> accept the merged draft and advance
//  4. otherwise           -> bump the retry counter, stash the merged
//     draft, ask the follow-up
func (e *Engine) HandleTurn(ctx context.Context, chatID int64, text string) (Reply, error) {
	unlock := e.lockUser(chatID)
	defer unlock()

	u, known, err := e.store.GetUser(ctx, chatID)
	if err != nil {
		return Reply{Messages: []string{msgOops}}, err
	}
	if !known {
		return Reply{Messages: []string{msgUseStart}}, nil
	}
	if u.Mode != store.ModeConversing {
		return Reply{Messages: []string{msgNotConversing}}, nil
	}

	v, err := e.analyzer.Analyze(ctx, u.Draft, text)
	if err != nil {
		e.log.Warn("analyzer failed, using safe-failure verdict",
			zap.Int64("chat_id", chatID), zap.Error(err))
		v = safeFailureVerdict(u.Draft)
	}
	v.Normalize()

	switch {
	case v.Intent == IntentStopping:
		return e.advance(ctx, u, u.Draft, u.Draft != "", msgAckStop)

	case u.Retries >= e.maxAttempts:
		e.log.Info("retry budget exhausted, force-accepting",
			zap.Int64("chat_id", chatID), zap.Int("question", u.QuestionOrder))
		return e.advance(ctx, u, v.MergedText, true, msgAckBudget)

	case v.IsComplete:
		return e.advance(ctx, u, v.MergedText, true, msgAckComplete, v.MergedText)

	default:
		retries := u.Retries + 1
		draft := v.MergedText
		if _, err := e.store.CommitTurn(ctx, chatID, store.StatePatch{
			Retries: &retries,
			Draft:   &draft,
		}, nil); err != nil {
			return e.failTurn(ctx, u, err)
		}
		follow := v.FollowUp
		if follow == "" {
			follow = msgPleaseRepeat
		}
		return Reply{Messages: []string{follow}}, nil
	}
}

// advance persists the accepted text (when persist is set), moves the user
// to the next question or to idle when the sequence is exhausted, and
// builds the reply. Record append and state change land in one commit.
func (e *Engine) advance(ctx context.Context, u store.UserState, acceptedText string, persist bool, acks ...string) (Reply, error) {
	var record *store.StoryRecord
	if persist {
		record = &store.StoryRecord{
			ID:            uuid.NewString(),
			ChatID:        u.ChatID,
			QuestionOrder: u.QuestionOrder,
			Text:          acceptedText,
			CreatedAt:     time.Now().UTC(),
		}
	}

	next, ok, err := e.store.NextQuestionAfter(ctx, u.QuestionOrder)
	if err != nil {
		return e.failTurn(ctx, u, err)
	}

	mode := store.ModeIdle
	order := u.QuestionOrder + 1 // past the end; resume reports completion
	if ok {
		mode = store.ModeConversing
		order = next.Order
	}
	empty := ""
	zero := 0
	if _, err := e.store.CommitTurn(ctx, u.ChatID, store.StatePatch{
		Mode:          &mode,
		QuestionOrder: &order,
		Draft:         &empty,
		Retries:       &zero,
	}, record); err != nil {
		return e.failTurn(ctx, u, err)
	}

	messages := append([]string{}, acks...)
	if ok {
		messages = append(messages, msgNextQuestion(next.Order, next.Text))
	} else {
		messages = append(messages, msgAllDone)
		e.exportBiography(ctx, u.ChatID)
	}
	return Reply{Messages: messages}, nil
}

// openQuestion resolves the question to open from an idle user's position:
// the exact order when it still exists (a turn failure parks the user on an
// unanswered question), otherwise the next one in sequence.
func (e *Engine) openQuestion(ctx context.Context, order int) (store.Question, bool, error) {
	q, ok, err := e.store.QuestionByOrder(ctx, order)
	if err != nil || ok {
		return q, ok, err
	}
	return e.store.NextQuestionAfter(ctx, order)
}

// failTurn parks the user idle on the current (not advanced) question so a
// /start can reopen it, and reports the turn as failed. The park itself is
// best effort; last-write-wins makes a stale state harmless.
func (e *Engine) failTurn(ctx context.Context, u store.UserState, cause error) (Reply, error) {
	e.log.Error("turn failed, parking user idle",
		zap.Int64("chat_id", u.ChatID), zap.Int("question", u.QuestionOrder), zap.Error(cause))

	mode := store.ModeIdle
	empty := ""
	zero := 0
	if _, err := e.store.CommitTurn(ctx, u.ChatID, store.StatePatch{
		Mode:    &mode,
		Draft:   &empty,
		Retries: &zero,
	}, nil); err != nil {
		e.log.Error("failed to park user idle", zap.Int64("chat_id", u.ChatID), zap.Error(err))
	}
	return Reply{Messages: []string{msgOops}}, errors.Join(ErrTurnFailed, cause)
}

func (e *Engine) exportBiography(ctx context.Context, chatID int64) {
	if e.archiver == nil {
		return
	}
	if err := e.archiver.ExportBiography(ctx, chatID); err != nil {
		e.log.Warn("biography export failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	e.log.Info("biography exported", zap.Int64("chat_id", chatID))
}
