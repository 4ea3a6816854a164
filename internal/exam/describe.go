package exam

import (
	"errors"
	"fmt"

	"github.com/fundprep/examgen/internal/llm"
)

// Describe turns an action error into the message shown to the user.
// Every message carries the provider's diagnostic; unknown remote errors
// keep it verbatim.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrBusy) {
		return "A generation is already running. Wait for it to finish."
	}
	if errors.Is(err, ErrEmptySubject) {
		return "Describe the custom subject before generating."
	}
	if errors.Is(err, ErrUnknownSubject) {
		return fmt.Sprintf("Pick one of the offered subjects: %v.", err)
	}

	var (
		inv   *llm.ErrInvalidCredential
		quota *llm.ErrQuotaExhausted
		nf    *llm.ErrNetworkFailure
	)
	switch {
	case errors.Is(err, llm.ErrMissingCredential):
		return "No API key is configured. Set one and try again."
	case errors.As(err, &inv):
		return fmt.Sprintf("The provider rejected the API key. Check it and try again.\n\n%v", inv.Err)
	case errors.As(err, &quota):
		if quota.RetryAfter > 0 {
			return fmt.Sprintf("Quota exhausted. Try again in %s.\n\n%v", quota.RetryAfter, quota.Err)
		}
		return fmt.Sprintf("Quota exhausted. Try again later.\n\n%v", quota.Err)
	case errors.As(err, &nf) && nf.Timeout:
		return fmt.Sprintf("The request timed out.\n\n%v", nf.Err)
	case errors.As(err, &nf):
		return fmt.Sprintf("Network failure. Check your connection and try again.\n\n%v", nf.Err)
	default:
		return "Generation failed. Check your network or API key. Error: " + err.Error()
	}
}
