package result

import (
	"fmt"
	"strings"
)

// MessageCode - закрытое перечисление причин, по которым операция не удалась
// (или что она сообщила вызывающему).
type MessageCode int

const (
	CodeValidationError MessageCode = 1
	CodeNotFound        MessageCode = 2
	CodeDatabaseError   MessageCode = 3
	CodeInvalidState    MessageCode = 4
	CodeConflict        MessageCode = 5
	CodeUnexpected      MessageCode = 99
)

var codeNames = map[MessageCode]string{
	CodeValidationError: "VALIDATION_ERROR",
	CodeNotFound:        "NOT_FOUND",
	CodeDatabaseError:   "DATABASE_ERROR",
	CodeInvalidState:    "INVALID_STATE",
	CodeConflict:        "CONFLICT",
	CodeUnexpected:      "UNEXPECTED",
}

// String returns a stable machine-readable name.
func (c MessageCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CODE_%d", int(c))
}

// MarshalText renders the code by name in JSON payloads.
func (c MessageCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a code rendered by MarshalText.
func (c *MessageCode) UnmarshalText(text []byte) error {
	for code, name := range codeNames {
		if name == string(text) {
			*c = code
			return nil
		}
	}
	return fmt.Errorf("unknown message code %q", string(text))
}

// Severity of a message. Only SeverityError makes a result fail.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "error"
	}
}

// MarshalText renders the severity by name in JSON payloads.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity rendered by MarshalText.
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	default:
		return fmt.Errorf("unknown severity %q", string(text))
	}
	return nil
}

// Message is self-contained: code plus an already localized phrase.
type Message struct {
	Code     MessageCode `json:"code"`
	Phrase   string      `json:"phrase"`
	Severity Severity    `json:"severity"`
	Field    string      `json:"field,omitempty"`
}

// NewMessage creates an error-level message.
func NewMessage(code MessageCode, phrase string) Message {
	return Message{Code: code, Phrase: phrase, Severity: SeverityError}
}

// ValidationMessage creates an error-level validation message bound to a request field.
func ValidationMessage(field, phrase string) Message {
	return Message{Code: CodeValidationError, Phrase: phrase, Severity: SeverityError, Field: field}
}

// NotFoundMessage creates an error-level not-found message.
func NotFoundMessage(phrase string) Message {
	return NewMessage(CodeNotFound, phrase)
}

// DatabaseMessage creates an error-level storage fault message.
func DatabaseMessage(phrase string) Message {
	return NewMessage(CodeDatabaseError, phrase)
}

// Warning creates a non-failing message.
func Warning(code MessageCode, phrase string) Message {
	return Message{Code: code, Phrase: phrase, Severity: SeverityWarning}
}

// IsError reports whether the message makes a result fail.
func (m Message) IsError() bool {
	return m.Severity == SeverityError
}

// String implements fmt.Stringer.
func (m Message) String() string {
	if m.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", m.Code, m.Field, m.Phrase)
	}
	return fmt.Sprintf("[%s] %s", m.Code, m.Phrase)
}
