package live

import (
	"errors"

	"quiz-live-backend/internal/game"
)

var (
	ErrWrongPhase = errors.New("not allowed in the current phase")
	ErrClosed     = errors.New("controller closed")
	ErrOffline    = errors.New("answers are not saved yet, still offline")
)

type HostingKind string

const (
	KindPermission  HostingKind = "permission"
	KindNotFound    HostingKind = "not_found"
	KindNoQuestions HostingKind = "no_questions"
	KindConnection  HostingKind = "connection"
	KindUnknown     HostingKind = "unknown"
)

// HostingError is a failed attempt to host a quiz, tagged with what the user
// can do about it.
type HostingError struct {
	Kind HostingKind
	Err  error
}

func (e *HostingError) Error() string {
	if e.Err == nil {
		return e.Message()
	}
	return e.Message() + ": " + e.Err.Error()
}

func (e *HostingError) Unwrap() error {
	return e.Err
}

func (e *HostingError) Message() string {
	switch e.Kind {
	case KindPermission:
		return "you are not allowed to host this quiz"
	case KindNotFound:
		return "quiz not found"
	case KindNoQuestions:
		return "quiz has no questions"
	case KindConnection:
		return "cannot reach the game service"
	default:
		return "could not start hosting"
	}
}

func (e *HostingError) Hint() string {
	switch e.Kind {
	case KindPermission:
		return "Ask the creator to make the quiz public, or host one of your own."
	case KindNotFound:
		return "Check the quiz link; it may have been deleted."
	case KindNoQuestions:
		return "Add at least one question before hosting."
	case KindConnection:
		return "Check your connection and try again."
	default:
		return "Try again; if it keeps failing, report the details below."
	}
}

func hostingError(kind HostingKind, err error) *HostingError {
	return &HostingError{Kind: kind, Err: err}
}

// classifyHosting maps a backend error from the creating phase onto a kind.
func classifyHosting(err error) *HostingError {
	switch {
	case errors.Is(err, game.ErrQuizNotFound):
		return hostingError(KindNotFound, err)
	case errors.Is(err, game.ErrPermissionDenied):
		return hostingError(KindPermission, err)
	case errors.Is(err, game.ErrNoQuestions):
		return hostingError(KindNoQuestions, err)
	default:
		return hostingError(KindUnknown, err)
	}
}
