package model

// StatsKey is the fixed key of the single gamification record
const StatsKey = "user_stats"

// Stats is the singleton gamification record
type Stats struct {
	XP             int64 `json:"xp"`
	Level          int64 `json:"level"`
	Streak         int64 `json:"streak"`
	LastActiveDate int64 `json:"last_active_date"`
}

// LevelForXP derives the level from an xp total. Level is never stored
// independently of this formula.
func LevelForXP(xp int64) int64 {
	return xp/100 + 1
}
