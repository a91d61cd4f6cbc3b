package archive

import (
	"fmt"
	"strings"

	"legado/internal/store"
)

// RenderBiography lays the accepted stories out as one markdown document,
// in question order, each preceded by the question it answers.
func RenderBiography(firstName string, questions []store.Question, stories []store.StoryRecord) string {
	byOrder := make(map[int]store.Question, len(questions))
	for _, q := range questions {
		byOrder[q.Order] = q
	}

	var buf strings.Builder
	title := "A Life in Stories"
	if firstName != "" {
		title = fmt.Sprintf("%s — A Life in Stories", firstName)
	}
	fmt.Fprintf(&buf, "# %s\n", title)

	for _, s := range stories {
		buf.WriteString("\n")
		if q, ok := byOrder[s.QuestionOrder]; ok {
			fmt.Fprintf(&buf, "## %s\n\n", q.Text)
		} else {
			fmt.Fprintf(&buf, "## Question #%d\n\n", s.QuestionOrder)
		}
		buf.WriteString(strings.TrimSpace(s.Text))
		buf.WriteString("\n")
	}
	return buf.String()
}
