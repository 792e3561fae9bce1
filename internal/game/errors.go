package game

import "errors"

var (
	ErrQuizNotFound        = errors.New("quiz not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrInvalidAnswer       = errors.New("answer does not belong to question")
	ErrInvalidQuestion     = errors.New("question must have answers with exactly one correct")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrNoQuestions         = errors.New("quiz must have at least one question")
	ErrPinTaken            = errors.New("join code already in use")
	ErrStatusRegression    = errors.New("session status cannot move backward")
	ErrInvalidUpdate       = errors.New("invalid session update")
	ErrInvalidConfig       = errors.New("invalid session configuration")
	ErrSessionStarted      = errors.New("session already started")
	ErrSessionNotStarted   = errors.New("session has not started")
	ErrSessionFinished     = errors.New("session already finished")
	ErrParticipantFinished = errors.New("participant already finished")
	ErrNoParticipants      = errors.New("at least one participant must join before starting")
	ErrScoringTooEarly     = errors.New("score can only be computed after finishing")
	ErrNicknameRequired    = errors.New("nickname is required")
	ErrQuizLocked          = errors.New("quiz is being played in a live session")
)

// IsPermanent reports whether err is a domain refusal that retrying cannot fix,
// as opposed to a transport or storage failure.
func IsPermanent(err error) bool {
	return err != nil && Code(err) != ""
}

// Code returns a stable identifier for a domain error, used on the wire.
func Code(err error) string {
	for code, target := range codes {
		if errors.Is(err, target) {
			return code
		}
	}
	return ""
}

// FromCode maps a wire code back to its sentinel.
func FromCode(code string) error {
	return codes[code]
}

var codes = map[string]error{
	"quiz_not_found":        ErrQuizNotFound,
	"question_not_found":    ErrQuestionNotFound,
	"session_not_found":     ErrSessionNotFound,
	"participant_not_found": ErrParticipantNotFound,
	"invalid_answer":        ErrInvalidAnswer,
	"invalid_question":      ErrInvalidQuestion,
	"permission_denied":     ErrPermissionDenied,
	"no_questions":          ErrNoQuestions,
	"pin_taken":             ErrPinTaken,
	"status_regression":     ErrStatusRegression,
	"invalid_update":        ErrInvalidUpdate,
	"invalid_config":        ErrInvalidConfig,
	"session_started":       ErrSessionStarted,
	"session_not_started":   ErrSessionNotStarted,
	"session_finished":      ErrSessionFinished,
	"participant_finished":  ErrParticipantFinished,
	"no_participants":       ErrNoParticipants,
	"scoring_too_early":     ErrScoringTooEarly,
	"nickname_required":     ErrNicknameRequired,
	"quiz_locked":           ErrQuizLocked,
}
