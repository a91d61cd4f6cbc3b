// Package brain turns one conversational turn into a structured verdict by
// asking a language model to merge, edit and judge the draft.
package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"legado/internal/engine"
	"legado/internal/llm"
)

// DefaultTimeout bounds one analysis call; an expired wait is treated as an
// analyzer failure upstream.
const DefaultTimeout = 30 * time.Second

// Brain implements engine.Analyzer on top of an llm.Client.
type Brain struct {
	llm     llm.Client
	prompt  string
	timeout time.Duration
	log     *zap.Logger
}

func New(client llm.Client, timeout time.Duration, log *zap.Logger) *Brain {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Brain{
		llm:     client,
		prompt:  buildPrompt(),
		timeout: timeout,
		log:     log,
	}
}

type turnInput struct {
	PreviousDraft string `json:"previous_draft"`
	NewText       string `json:"new_text"`
}

type rawVerdict struct {
	MergedText *string `json:"merged_text"`
	Critique   string  `json:"critique"`
	IsComplete *bool   `json:"is_complete"`
	FollowUp   *string `json:"follow_up_question"`
	Intent     string  `json:"intent"`
}

// Analyze merges the previous draft with the new text and judges the result.
func (b *Brain) Analyze(ctx context.Context, previousDraft, newText string) (engine.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	raw, err := b.llm.GenerateJSON(ctx, b.prompt, turnInput{
		PreviousDraft: previousDraft,
		NewText:       newText,
	})
	if err != nil {
		return engine.Verdict{}, fmt.Errorf("brain: classify: %w", err)
	}

	v, err := parseVerdict(raw)
	if err != nil {
		b.log.Warn("malformed verdict from model", zap.String("model", b.llm.Name()), zap.Error(err))
		return engine.Verdict{}, err
	}
	return v, nil
}

// parseVerdict validates the model's JSON against the verdict contract and
// normalizes it. Missing required fields make the whole reply malformed;
// the caller falls back to the safe-failure verdict.
func parseVerdict(raw json.RawMessage) (engine.Verdict, error) {
	var rv rawVerdict
	if err := json.Unmarshal(raw, &rv); err != nil {
		return engine.Verdict{}, fmt.Errorf("brain: malformed verdict: %w", err)
	}
	if rv.MergedText == nil {
		return engine.Verdict{}, fmt.Errorf("brain: verdict missing merged_text")
	}
	if rv.IsComplete == nil {
		return engine.Verdict{}, fmt.Errorf("brain: verdict missing is_complete")
	}

	intent := engine.Intent(strings.ToUpper(strings.TrimSpace(rv.Intent)))
	switch intent {
	case engine.IntentRefining, engine.IntentStopping, engine.IntentConfused:
	case "":
		intent = engine.IntentRefining
	default:
		return engine.Verdict{}, fmt.Errorf("brain: unknown intent %q", rv.Intent)
	}

	v := engine.Verdict{
		MergedText: *rv.MergedText,
		Critique:   strings.TrimSpace(rv.Critique),
		IsComplete: *rv.IsComplete,
		Intent:     intent,
	}
	if rv.FollowUp != nil {
		v.FollowUp = strings.TrimSpace(*rv.FollowUp)
	}
	v.Normalize()
	return v, nil
}
