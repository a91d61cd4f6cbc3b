package brain

import (
	"bytes"
	"fmt"
	"strings"
)

// promptField describes one output field the model must fill in.
type promptField struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

var verdictFields = []promptField{
	{
		Name: "merged_text", Type: "string", Required: true,
		Description: "The previous draft and the new text combined and edited into clean first-person prose (drop filler words, keep the storyteller's voice).",
	},
	{
		Name: "critique", Type: "string", Required: true,
		Description: "One short sentence on the depth of merged_text. What is missing? People? Dates? Places? Feelings?",
	},
	{
		Name: "is_complete", Type: "boolean", Required: true,
		Description: "true when merged_text is good enough to keep: concrete names, places or dates. A bare 'it was nice' is false. A STOPPING intent makes the story automatically complete.",
	},
	{
		Name: "follow_up_question", Type: "string|null", Required: true,
		Description: "When is_complete is false, one gentle, specific question to draw out the missing facts. Must be null when is_complete is true.",
	},
	{
		Name: "intent", Type: "string", Required: true,
		Description: "REFINING when the user adds material, STOPPING when they want to stop or skip ('I don't remember', 'that's all'), CONFUSED when they did not understand the question.",
	},
}

var verdictRules = []string{
	"Detect intent first; it decides everything else.",
	"Prefer follow-up questions about facts over abstractions: who was there, what year, where exactly, what happened next, what led to it.",
	"Ask about feelings at most once; if the user does not elaborate, move on.",
	"Never invent content that is not in the draft or the new text.",
}

// buildPrompt renders the analysis prompt in fixed sections so the model's
// job reads the same on every call.
func buildPrompt() string {
	var buf bytes.Buffer
	writeSection(&buf, "PURPOSE",
		"You are a gentle, curious biographer with a memory. Merge an in-progress story draft with the user's newest message, edit the result, judge its depth, and detect what the user is trying to do.")
	writeSection(&buf, "BACKGROUND",
		"The input JSON carries previous_draft (the story so far, possibly empty) and new_text (what the user just said in a chat).")
	writeSection(&buf, "OUTPUT", formatFields(verdictFields))
	writeSection(&buf, "RULES", formatList(verdictRules))
	writeSection(&buf, "OUTPUT_FORMAT",
		"Respond with a single JSON object containing exactly the OUTPUT fields.")
	return strings.TrimSpace(buf.String()) + "\n"
}

func writeSection(buf *bytes.Buffer, name, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	fmt.Fprintf(buf, "[%s]\n%s\n\n", name, body)
}

func formatFields(fields []promptField) string {
	var buf strings.Builder
	for _, f := range fields {
		req := "optional"
		if f.Required {
			req = "required"
		}
		fmt.Fprintf(&buf, "- %s (%s, %s): %s\n", f.Name, f.Type, req, f.Description)
	}
	return buf.String()
}

func formatList(items []string) string {
	var buf strings.Builder
	for _, it := range items {
		fmt.Fprintf(&buf, "- %s\n", it)
	}
	return buf.String()
}
