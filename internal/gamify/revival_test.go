package gamify

import "testing"

func TestRevivalEligible(t *testing.T) {
	cases := []struct {
		name          string
		idleDays      int64
		lastBonusDays int64
		hasPrev       bool
		want          bool
	}{
		{"under threshold", 5, 0, false, false},
		{"at threshold", 10, 0, false, false},
		{"past threshold no history", 11, 0, false, true},
		{"longer than last bonus", 15, 12, true, true},
		{"equal to last bonus", 12, 12, true, false},
		{"shorter than last bonus", 11, 20, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RevivalEligible(tc.idleDays, tc.lastBonusDays, tc.hasPrev); got != tc.want {
				t.Errorf("RevivalEligible(%d, %d, %v) = %v, want %v",
					tc.idleDays, tc.lastBonusDays, tc.hasPrev, got, tc.want)
			}
		})
	}
}

func TestRevivalContentRoundTrip(t *testing.T) {
	content := RevivalContent(17)
	days, ok := ParseRevivalDays(content)
	if !ok || days != 17 {
		t.Fatalf("ParseRevivalDays(%q) = (%d, %v)", content, days, ok)
	}
}

func TestParseRevivalDaysRejectsOtherContent(t *testing.T) {
	for _, content := range []string{"", "a regular note", "revived after some idle days"} {
		if _, ok := ParseRevivalDays(content); ok {
			t.Errorf("ParseRevivalDays(%q) unexpectedly parsed", content)
		}
	}
}
