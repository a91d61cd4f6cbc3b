package engine

import "fmt"

// User-facing message templates. The analyzer writes the follow-up
// questions; everything scripted lives here.
const (
	msgPleaseRepeat = "I'm sorry, I lost my train of thought. Could you please repeat what you said?"

	msgUseStart      = "Please use /start so we can begin."
	msgNotConversing = "I'm not expecting an answer right now. Use /start and we'll open the next question."
	msgInProgress    = "It looks like we were in the middle of a story. Please continue where we left off."

	msgAckStop     = "Understood, no problem. Let's move on."
	msgAckBudget   = "Understood, I think we have enough on this one. Let's keep going."
	msgAckComplete = "What a great story! I've written it down:"

	msgAllDone = "You've answered every question. Congratulations, your biography is complete!"
	msgOops    = "Oops, something went wrong while I was working on your story. Let's try again with /start."
)

func msgWelcome(firstName string) string {
	if firstName == "" {
		return "Hello! Welcome to Legado. I'll help you tell your life's stories."
	}
	return fmt.Sprintf("Hello, %s! Welcome to Legado. I'll help you tell your life's stories.", firstName)
}

func msgWelcomeBack(firstName string) string {
	if firstName == "" {
		return "Welcome back!"
	}
	return fmt.Sprintf("Welcome back, %s!", firstName)
}

func msgQuestion(order int, text string) string {
	return fmt.Sprintf("Question #%d: %s", order, text)
}

func msgNextQuestion(order int, text string) string {
	return fmt.Sprintf("When you're ready, here is the next question:\n\nQuestion #%d: %s", order, text)
}
