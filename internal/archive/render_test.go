package archive

import (
	"strings"
	"testing"

	"legado/internal/store"
)

func TestRenderBiography(t *testing.T) {
	questions := []store.Question{
		{Order: 1, Text: "What is your earliest memory?"},
		{Order: 2, Text: "What was your first job?"},
	}
	stories := []store.StoryRecord{
		{QuestionOrder: 1, Text: "The smell of rain on the farm.\n"},
		{QuestionOrder: 2, Text: "Delivering newspapers at dawn."},
	}

	doc := RenderBiography("Maria", questions, stories)

	if !strings.HasPrefix(doc, "# Maria — A Life in Stories\n") {
		t.Fatalf("title: %q", doc)
	}
	for _, want := range []string{
		"## What is your earliest memory?",
		"The smell of rain on the farm.",
		"## What was your first job?",
		"Delivering newspapers at dawn.",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("missing %q in:\n%s", want, doc)
		}
	}
	if strings.Index(doc, "earliest memory") > strings.Index(doc, "first job") {
		t.Fatalf("stories out of order:\n%s", doc)
	}
}

func TestRenderBiographyFallbacks(t *testing.T) {
	doc := RenderBiography("", nil, []store.StoryRecord{{QuestionOrder: 4, Text: "orphan story"}})

	if !strings.HasPrefix(doc, "# A Life in Stories\n") {
		t.Fatalf("anonymous title: %q", doc)
	}
	if !strings.Contains(doc, "## Question #4") {
		t.Fatalf("missing question fallback:\n%s", doc)
	}
	if !strings.Contains(doc, "orphan story") {
		t.Fatalf("missing story text:\n%s", doc)
	}
}
