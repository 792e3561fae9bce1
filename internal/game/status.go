package game

const (
	StatusWaiting  = "waiting"
	StatusActive   = "active"
	StatusFinished = "finished"
)

const (
	EndModeWaitTimer   = "wait_timer"
	EndModeFirstFinish = "first_finish"
)

const (
	ParticipantActive   = "active"
	ParticipantFinished = "finished"
)

var statusOrder = map[string]int{
	StatusWaiting:  0,
	StatusActive:   1,
	StatusFinished: 2,
}

// StatusRank returns the position of a status in the waiting → active → finished
// order, or -1 for unknown values.
func StatusRank(status string) int {
	rank, ok := statusOrder[status]
	if !ok {
		return -1
	}
	return rank
}

func ValidStatus(status string) bool {
	return StatusRank(status) >= 0
}

// CanTransition reports whether a session may move from one status to another.
// Staying in place is allowed so repeated writes stay harmless.
func CanTransition(from, to string) bool {
	fromRank, toRank := StatusRank(from), StatusRank(to)
	if fromRank < 0 || toRank < 0 {
		return false
	}
	return toRank >= fromRank
}

func ValidEndMode(mode string) bool {
	return mode == EndModeWaitTimer || mode == EndModeFirstFinish
}
