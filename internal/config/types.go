package config

import (
	"encoding/json"
)

const redacted = "[REDACTED]"

// Secret holds a credential such as the database password or the webhook
// secret. Formatting, JSON and text marshaling all print a placeholder;
// only Value exposes the real string.
type Secret string

// Value returns the real secret.
func (s Secret) Value() string { return string(s) }

// IsSet reports whether the secret is non-empty.
func (s Secret) IsSet() bool { return s != "" }

func (s Secret) String() string {
	if !s.IsSet() {
		return ""
	}
	return redacted
}

func (s Secret) GoString() string { return "Secret(" + redacted + ")" }

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s Secret) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText accepts the raw value, so koanf can fill secrets from YAML and env.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}
