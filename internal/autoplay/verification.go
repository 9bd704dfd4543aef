package autoplay

import (
	"fmt"
	"slices"
)

// verifyLeaderboard checks that entries are ordered by score with 1-based
// ranks and that every bot in expected shows its final score. Bots may be
// missing when TopN cuts them off, but only below the lowest listed score.
func verifyLeaderboard(entries []Entry, expected map[string]int) error {
	for i, e := range entries {
		if e.Rank != i+1 {
			return fmt.Errorf("entry %d has rank %d", i, e.Rank)
		}
		if i > 0 && entries[i-1].Score < e.Score {
			return fmt.Errorf("entry %d (%d) scores above entry %d (%d)", i, e.Score, i-1, entries[i-1].Score)
		}
		if want, ok := expected[e.UserID]; ok && want != e.Score {
			return fmt.Errorf("bot %s listed with %d, profile says %d", e.UserID, e.Score, want)
		}
	}
	if len(entries) == 0 {
		if len(expected) == 0 {
			return nil
		}
		return fmt.Errorf("empty leaderboard with %d bots playing", len(expected))
	}

	lowest := entries[len(entries)-1].Score
	for id, score := range expected {
		listed := slices.ContainsFunc(entries, func(e Entry) bool { return e.UserID == id })
		if !listed && score > lowest {
			return fmt.Errorf("bot %s with %d missing above lowest listed score %d", id, score, lowest)
		}
	}
	return nil
}
