package gamify

import (
	"fmt"
	"regexp"
	"strconv"
)

// RevivalThresholdDays is the idle age a task must exceed before touching it
// earns the necromancer bonus.
const RevivalThresholdDays int64 = 10

var revivalDaysPattern = regexp.MustCompile(`revived after (\d+) idle days`)

// RevivalContent formats the GAMIFY timeline entry logged with a bonus. The
// idle-day count is kept parseable so later eligibility checks can recover it.
func RevivalContent(idleDays int64) string {
	return fmt.Sprintf("Necromancer bonus: revived after %d idle days (+%d XP)",
		idleDays, EventRevival.XPDelta())
}

// ParseRevivalDays recovers the idle-day count from a GAMIFY entry's content
func ParseRevivalDays(content string) (int64, bool) {
	m := revivalDaysPattern.FindStringSubmatch(content)
	if m == nil {
		return 0, false
	}
	days, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return days, true
}

// RevivalEligible decides whether touching a task earns the bonus. idleDays
// is the pre-touch idle age; lastBonusDays is the count recorded on the most
// recent GAMIFY entry, if any. A prior bonus logged for a neglect period at
// least this long suppresses the award: one bonus per neglect episode, not
// one per check. The guard infers episode boundaries from log history, so it
// is best-effort.
func RevivalEligible(idleDays int64, lastBonusDays int64, hasPrevBonus bool) bool {
	if idleDays <= RevivalThresholdDays {
		return false
	}
	if hasPrevBonus && lastBonusDays >= idleDays {
		return false
	}
	return true
}
