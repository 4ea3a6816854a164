package llm

import "strings"

// Credential is the API key for the selected provider. It is resolved once
// at startup and never mutated afterwards.
type Credential struct {
	secret  string
	keyless bool
}

// NewCredential wraps a secret. Surrounding whitespace is dropped.
func NewCredential(secret string) Credential {
	return Credential{secret: strings.TrimSpace(secret)}
}

// Keyless is the credential for providers that need no key (ollama, mock).
func Keyless() Credential {
	return Credential{keyless: true}
}

// Present reports whether a request may be attempted.
func (c Credential) Present() bool {
	return c.keyless || c.secret != ""
}

// Secret returns the raw key for handing to an SDK client.
func (c Credential) Secret() string {
	return c.secret
}

// String redacts the key so it never ends up in logs or error messages.
func (c Credential) String() string {
	switch {
	case c.keyless:
		return "(not required)"
	case c.secret == "":
		return "(unset)"
	case len(c.secret) <= 8:
		return "****"
	default:
		return c.secret[:4] + "…" + c.secret[len(c.secret)-2:]
	}
}
