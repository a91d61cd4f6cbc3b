// Package seed loads the predefined biography questions into the store.
package seed

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"legado/internal/store"
)

// DefaultQuestions is the built-in interview script, grouped loosely by
// life stage. Orders are stable; reseeding is an upsert by order.
var DefaultQuestions = []store.Question{
	{Order: 1, Category: "Childhood", Text: "What is your earliest memory?"},
	{Order: 2, Category: "Childhood", Text: "What were the house and the neighborhood where you grew up like?"},
	{Order: 3, Category: "Childhood", Text: "Who was your best childhood friend, and what did the two of you do together?"},
	{Order: 4, Category: "Childhood", Text: "What was the biggest mischief you got up to as a child?"},
	{Order: 5, Category: "Youth", Text: "What were you like at school? What did you enjoy most?"},
	{Order: 6, Category: "Career", Text: "What was your first job? What was the experience like?"},
	{Order: 7, Category: "Career", Text: "How did you choose your profession? Was it a straight path?"},
	{Order: 8, Category: "Youth", Text: "What was the greatest adventure you had when you were young?"},
	{Order: 9, Category: "Family", Text: "How did you meet your spouse or partner?"},
	{Order: 10, Category: "Family", Text: "What is your favorite memory of when your children were small?"},
	{Order: 11, Category: "Family", Text: "Which family tradition matters most to you?"},
	{Order: 12, Category: "Reflection", Text: "What was the greatest challenge you ever overcame?"},
	{Order: 13, Category: "Reflection", Text: "What are you most grateful for in life?"},
	{Order: 14, Category: "Reflection", Text: "If you could give your twenty-year-old self one piece of advice, what would it be?"},
	{Order: 15, Category: "Reflection", Text: "What do you think was the most important invention of your lifetime?"},
}

type questionFile struct {
	Questions []store.Question `yaml:"questions"`
}

// LoadFile reads a custom question set from YAML.
func LoadFile(path string) ([]store.Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f questionFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Questions) == 0 {
		return nil, fmt.Errorf("%s contains no questions", path)
	}
	for _, q := range f.Questions {
		if q.Order <= 0 {
			return nil, fmt.Errorf("%s: question %q has no positive order", path, q.Text)
		}
	}
	return f.Questions, nil
}

// Apply upserts the questions into the store. Idempotent.
func Apply(ctx context.Context, st store.QuestionStore, questions []store.Question) (int, error) {
	for i, q := range questions {
		if err := st.PutQuestion(ctx, q); err != nil {
			return i, fmt.Errorf("seed question %d: %w", q.Order, err)
		}
	}
	return len(questions), nil
}
