package exam

import (
	"fmt"
	"strings"
)

// DefaultFocus replaces an empty focus topic in the prompt.
const DefaultFocus = "core high-frequency topics of this subject"

// GenerationRequest is the payload of one action. It is built fresh by
// BuildPrompt and never changed after it is sent.
type GenerationRequest struct {
	SystemInstruction string
	UserPrompt        string
}

const userTemplate = `Write questions to the following requirements:
1. Subject: %s
2. Number of questions: %d single-answer multiple-choice questions
3. Focus: %s

Rules:
- Every question has exactly four options labeled A, B, C and D, and exactly one of them is correct.
- After the questions, add an "Answers and rationale" section that gives the correct answer to each question and explains, for every option, why it is right or wrong.
- Format everything in Markdown.`

// BuildPrompt interpolates p into the fixed question template. It is pure:
// equal Params always produce an equal request.
func BuildPrompt(p Params) GenerationRequest {
	focus := strings.TrimSpace(p.FocusTopic)
	if focus == "" {
		focus = DefaultFocus
	}
	return GenerationRequest{
		SystemInstruction: p.SystemInstruction,
		UserPrompt:        fmt.Sprintf(userTemplate, p.Subject, p.QuestionCount, focus),
	}
}
