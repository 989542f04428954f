// Package pipeline drives a task from prompt to final output through the
// five governed stages, assembling context once, threading metadata
// monotonically, and applying the deterministic transformer at the Revisor
// and Summarizer stages.
package pipeline

// Prompt classifications carried in the governance context. Classification
// does not alter stage order.
const (
	ClassificationChat    = "chat"
	ClassificationWriting = "writing"
)

// writingThreshold is the prompt length at which a task classifies as
// writing rather than chat.
const writingThreshold = 80

// Classify buckets a prompt by length.
func Classify(prompt string) string {
	if len(prompt) >= writingThreshold {
		return ClassificationWriting
	}
	return ClassificationChat
}
