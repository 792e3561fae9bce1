package models

type LeaderboardEntry struct {
	ParticipantID          uint    `json:"participant_id"`
	Nickname               string  `json:"nickname"`
	Score                  int     `json:"score"`
	AvgResponseTimeSeconds float64 `json:"avg_response_time_seconds"`
	Rank                   int     `json:"rank"`
	Status                 string  `json:"status"`
}
