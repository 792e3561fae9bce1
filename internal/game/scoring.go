package game

import (
	"math"
	"time"
)

type ScoreInput struct {
	Answered  bool
	Correct   bool
	Elapsed   time.Duration
	TimeLimit time.Duration
	Points    int
}

// Points scores one response. A correct answer earns between half and all of
// the question's points, linearly less the longer it took.
func Points(in ScoreInput) int {
	if !in.Answered || !in.Correct || in.Points <= 0 {
		return 0
	}
	if in.TimeLimit <= 0 {
		return in.Points
	}

	elapsed := in.Elapsed
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > in.TimeLimit {
		elapsed = in.TimeLimit
	}

	timeBonus := 1 - 0.5*(elapsed.Seconds()/in.TimeLimit.Seconds())
	floor := int(math.Floor(float64(in.Points) * 0.5))
	scaled := int(math.Floor(float64(in.Points) * timeBonus))
	if scaled < floor {
		return floor
	}
	return scaled
}

// Elapsed measures the time a participant spent on a question: ended - started,
// with fallbackEnd standing in for a missing end. Unknown durations count as
// the full limit.
func Elapsed(startedAt, endedAt, fallbackEnd *time.Time, limit time.Duration) time.Duration {
	if startedAt == nil {
		return limit
	}
	end := endedAt
	if end == nil {
		end = fallbackEnd
	}
	if end == nil {
		return limit
	}
	elapsed := end.Sub(*startedAt)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}
