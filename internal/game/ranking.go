package game

import (
	"sort"
	"time"
)

type Standing struct {
	ParticipantID uint
	Nickname      string
	Score         int
	Scored        bool
	// AvgResponse is only meaningful when Timed is true.
	AvgResponse time.Duration
	Timed       bool
	JoinedAt    time.Time
	Rank        int
}

// Rank orders standings for a leaderboard and assigns contiguous 1-based ranks
// to scored participants. Unscored participants keep rank 0 and sort last.
func Rank(standings []Standing) []Standing {
	ranked := make([]Standing, len(standings))
	copy(ranked, standings)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Scored != b.Scored {
			return a.Scored
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Timed != b.Timed {
			return a.Timed
		}
		if a.Timed && a.AvgResponse != b.AvgResponse {
			return a.AvgResponse < b.AvgResponse
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ParticipantID < b.ParticipantID
	})

	next := 1
	for i := range ranked {
		if !ranked[i].Scored {
			ranked[i].Rank = 0
			continue
		}
		ranked[i].Rank = next
		next++
	}
	return ranked
}

// AverageResponse averages durations, reporting false when there are none.
func AverageResponse(durations []time.Duration) (time.Duration, bool) {
	if len(durations) == 0 {
		return 0, false
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations)), true
}
