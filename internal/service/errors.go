package service

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies every failure the engine returns.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConcurrentModification
	KindInconsistentState
	KindStorage
)

var (
	ErrValidation             = errors.New("validation error")
	ErrNotFound               = errors.New("document not found")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrInconsistentState      = errors.New("inconsistent state")
	ErrStorage                = errors.New("storage error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindConcurrentModification:
		return ErrConcurrentModification
	case KindInconsistentState:
		return ErrInconsistentState
	default:
		return ErrStorage
	}
}

func (k Kind) String() string {
	return k.sentinel().Error()
}

// Error carries the kind of a failure plus enough context to diagnose and retry it.
// errors.Is matches both the kind's sentinel and the wrapped cause.
type Error struct {
	Kind       Kind
	Op         string
	DocumentID string
	EditNumber int
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.DocumentID != "" {
		fmt.Fprintf(&b, " document=%s", e.DocumentID)
	}
	if e.EditNumber > 0 {
		fmt.Fprintf(&b, " edit=%d", e.EditNumber)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// KindOf returns the Kind of err, or 0 when err did not come from the engine.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind Kind, op, documentID string, editNumber int, err error) *Error {
	return &Error{Kind: kind, Op: op, DocumentID: documentID, EditNumber: editNumber, Err: err}
}
