package engine

import "context"

// Intent is what the analyzer believes the user is doing with their latest
// message.
type Intent string

const (
	// IntentRefining: the user is adding material to the story.
	IntentRefining Intent = "REFINING"
	// IntentStopping: the user wants to stop or skip this question.
	IntentStopping Intent = "STOPPING"
	// IntentConfused: the user did not understand the question. Treated the
	// same as refining by the policy; kept distinct so the analyzer can
	// phrase its follow-up accordingly.
	IntentConfused Intent = "CONFUSED"
)

// Verdict is the analyzer's structured judgement of one turn: the merged
// and edited draft, whether it is good enough to keep, and what to ask
// next if it is not.
type Verdict struct {
	MergedText string
	Critique   string
	IsComplete bool
	FollowUp   string
	Intent     Intent
}

// Normalize enforces the field invariant: a complete verdict carries no
// follow-up question, and an unknown intent falls back to refining so a
// flaky analyzer can never skip a question on its own.
func (v *Verdict) Normalize() {
	if v.IsComplete {
		v.FollowUp = ""
	}
	switch v.Intent {
	case IntentRefining, IntentStopping, IntentConfused:
	default:
		v.Intent = IntentRefining
	}
}

// Analyzer classifies one conversational turn. Implementations are expected
// to merge the previous draft with the new text and judge the result.
type Analyzer interface {
	Analyze(ctx context.Context, previousDraft, newText string) (Verdict, error)
}

// safeFailureVerdict stands in when the analyzer is unreachable or returns
// garbage: keep the old draft, do not advance, ask the user to repeat.
// Intent is never STOPPING here, so a failure can never skip a question.
func safeFailureVerdict(previousDraft string) Verdict {
	return Verdict{
		MergedText: previousDraft,
		Critique:   "analyzer unavailable",
		IsComplete: false,
		FollowUp:   msgPleaseRepeat,
		Intent:     IntentRefining,
	}
}
