package game

import "time"

const DefaultCountdown = 5 * time.Second

// StartTimes returns the pair of timestamps written when a host starts a game.
// Clients derive the countdown from these alone, so no server has to tick.
func StartTimes(now time.Time, lead time.Duration) (countdownStartedAt, startedAt time.Time) {
	if lead < 0 {
		lead = 0
	}
	return now, now.Add(lead)
}

// RemainingCountdown is max(0, startedAt - now). A nil start means nothing is
// counting down.
func RemainingCountdown(startedAt *time.Time, now time.Time) time.Duration {
	if startedAt == nil {
		return 0
	}
	remaining := startedAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Deadline returns startedAt + totalMinutes when the session is timed.
func Deadline(startedAt *time.Time, totalMinutes *int) (time.Time, bool) {
	if startedAt == nil || totalMinutes == nil || *totalMinutes <= 0 {
		return time.Time{}, false
	}
	return startedAt.Add(time.Duration(*totalMinutes) * time.Minute), true
}

// RemainingPlay is the time left before the deadline, clamped at zero.
func RemainingPlay(startedAt *time.Time, totalMinutes *int, now time.Time) (time.Duration, bool) {
	deadline, ok := Deadline(startedAt, totalMinutes)
	if !ok {
		return 0, false
	}
	remaining := deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
