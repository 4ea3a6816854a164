package exam

import (
	"errors"
	"fmt"
	"strings"
)

// CustomChoice selects the free-text subject of a variant that allows it.
const CustomChoice = "custom"

var (
	// ErrUnknownSubject is returned when a choice is not offered by the variant.
	ErrUnknownSubject = errors.New("unknown subject")

	// ErrEmptySubject is returned when the custom choice is picked with no text.
	ErrEmptySubject = errors.New("custom subject is empty")
)

// Params is the per-action input of the form. Build one with NewParams
// for every action; nothing holds it between actions.
type Params struct {
	Variant           string
	SystemInstruction string
	Subject           string
	QuestionCount     int
	FocusTopic        string
}

// NewParams resolves the subject choice against the variant, clamps the
// question count to the variant's range and trims the focus topic.
//
// choice is a subject ID or label, or CustomChoice. An empty choice picks
// the variant's first subject, or the custom text when the variant has no
// fixed subjects.
func NewParams(v Variant, choice, customText string, count int, focus string) (Params, error) {
	subject, err := resolveSubject(v, strings.TrimSpace(choice), strings.TrimSpace(customText))
	if err != nil {
		return Params{}, err
	}
	return Params{
		Variant:           v.ID,
		SystemInstruction: v.SystemInstruction,
		Subject:           subject,
		QuestionCount:     v.Clamp(count),
		FocusTopic:        strings.TrimSpace(focus),
	}, nil
}

func resolveSubject(v Variant, choice, customText string) (string, error) {
	if choice == "" {
		if len(v.Subjects) > 0 {
			return v.Subjects[0].Label, nil
		}
		choice = CustomChoice
	}

	if choice == CustomChoice || (v.CustomLabel != "" && choice == v.CustomLabel) {
		if !v.AllowCustom {
			return "", fmt.Errorf("%w: variant %q does not accept a custom subject", ErrUnknownSubject, v.ID)
		}
		if customText == "" {
			return "", ErrEmptySubject
		}
		return customText, nil
	}

	s, ok := v.Subject(choice)
	if !ok {
		return "", fmt.Errorf("%w: %q is not offered by variant %q", ErrUnknownSubject, choice, v.ID)
	}
	return s.Label, nil
}
