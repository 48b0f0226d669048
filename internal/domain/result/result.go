// Package result - обёртка исхода операции: значение (или его отсутствие),
// упорядоченный список сообщений и статус.
//
// Ожидаемые бизнес-сбои (валидация, not found, сбой хранилища) возвращаются
// как Result, а не как error или panic. Единственный класс сбоев, который
// всплывает как panic, это нарушение контракта (чтение Value у неуспешного Result).
//
// Pattern: Result / Notification
package result

import (
	"encoding/json"
	"slices"

	domainErrors "github.com/Haleralex/catalog/internal/domain/errors"
)

// Void - тип значения для операций, которые ничего не возвращают.
type Void struct{}

// Status of a result. NotFound is a refinement of Failure.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusNotFound
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotFound:
		return "not_found"
	default:
		return "failure"
	}
}

// Result holds exactly one of {value, nothing} plus messages and a status.
// Immutable after construction.
type Result[T any] struct {
	value    T
	hasValue bool
	messages []Message
	status   Status
}

// Ok creates a successful result carrying value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, hasValue: true, status: StatusSuccess}
}

// OkVoid creates a successful result for operations without a value.
func OkVoid() Result[Void] {
	return Ok(Void{})
}

// OkWithNotes creates a result carrying value and non-error notes (warnings, info).
// An error-level note turns the result into a failure.
func OkWithNotes[T any](value T, notes ...Message) Result[T] {
	status := statusOf(notes)
	if status != StatusSuccess {
		return Result[T]{messages: slices.Clone(notes), status: status}
	}
	return Result[T]{value: value, hasValue: true, messages: slices.Clone(notes), status: StatusSuccess}
}

// Fail creates a failed result. Any NotFound-coded message marks the result NotFound.
// Calling Fail without messages is a contract violation and yields an InvalidState message.
func Fail[T any](messages ...Message) Result[T] {
	if len(messages) == 0 {
		messages = []Message{NewMessage(CodeInvalidState, "failure reported without messages")}
	}
	msgs := slices.Clone(messages)
	status := statusOf(msgs)
	if status == StatusSuccess {
		// Only warnings were passed; a failure still has to fail.
		status = StatusFailure
		msgs = append(msgs, NewMessage(CodeInvalidState, "failure reported without error messages"))
	}
	return Result[T]{messages: msgs, status: status}
}

// FailFrom propagates the messages of a failed result unchanged into a result of another type.
func FailFrom[T, U any](r Result[U]) Result[T] {
	if r.Success() {
		return Fail[T](NewMessage(CodeInvalidState, "cannot propagate a successful result as failure"))
	}
	return Result[T]{messages: slices.Clone(r.messages), status: r.status}
}

// Then runs fn on the value of a successful result and short-circuits on failure.
func Then[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	if !r.Success() {
		return FailFrom[U](r)
	}
	return fn(r.value)
}

// Map transforms the value of a successful result.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if !r.Success() {
		return FailFrom[U](r)
	}
	return Result[U]{value: fn(r.value), hasValue: true, messages: slices.Clone(r.messages), status: StatusSuccess}
}

func statusOf(messages []Message) Status {
	status := StatusSuccess
	for _, m := range messages {
		if !m.IsError() {
			continue
		}
		if m.Code == CodeNotFound {
			return StatusNotFound
		}
		status = StatusFailure
	}
	return status
}

// Success reports whether the operation succeeded.
func (r Result[T]) Success() bool {
	return r.status == StatusSuccess && r.hasValue
}

// Failure == !Success.
func (r Result[T]) Failure() bool {
	return !r.Success()
}

// NotFound reports the zero-results failure. Implies Failure.
func (r Result[T]) NotFound() bool {
	return r.status == StatusNotFound
}

// Status returns the status tag.
func (r Result[T]) Status() Status {
	if r.status == StatusSuccess && !r.hasValue {
		// Zero value Result[T]{} is not a success.
		return StatusFailure
	}
	return r.status
}

// Messages returns a copy of the messages. Always readable.
func (r Result[T]) Messages() []Message {
	return slices.Clone(r.messages)
}

// HasCode reports whether any message carries code.
func (r Result[T]) HasCode(code MessageCode) bool {
	return slices.ContainsFunc(r.messages, func(m Message) bool { return m.Code == code })
}

// HasValue reports whether a value is present.
func (r Result[T]) HasValue() bool {
	return r.hasValue
}

// Get returns the value and whether the result succeeded.
func (r Result[T]) Get() (T, bool) {
	if !r.Success() {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Value returns the value of a successful result.
// Panics with *errors.InvalidStateError when called on a failed result:
// callers must check Success first.
func (r Result[T]) Value() T {
	if !r.Success() {
		panic(domainErrors.NewInvalidStateError("result.Value", "value requested from a "+r.Status().String()+" result"))
	}
	return r.value
}

type resultJSON struct {
	Success  bool      `json:"success"`
	NotFound bool      `json:"not_found"`
	Value    any       `json:"value,omitempty"`
	Messages []Message `json:"messages"`
}

// MarshalJSON renders {success, not_found, value?, messages[]}.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Success:  r.Success(),
		NotFound: r.NotFound(),
		Messages: r.messages,
	}
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	if r.Success() {
		if _, void := any(r.value).(Void); !void {
			out.Value = r.value
		}
	}
	return json.Marshal(out)
}
