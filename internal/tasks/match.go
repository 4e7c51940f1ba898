package tasks

import (
	"fmt"
	"strings"

	"github.com/melodysyncer/melodysyncer/internal/models"
)

// Scoring weights. Duration tiers are exclusive; only the closest applies.
const (
	topicChannelBonus = 3
	officialBonus     = 3
	artistBonus       = 1
	songBonus         = 1

	exactDurationBonus = 7
	closeDurationBonus = 5
	nearDurationBonus  = 2
)

var officialMarkers = []string{"Official Audio", "Official Video", "Full Audio Song"}

var durationTiers = []struct {
	withinMS int64
	bonus    int
}{
	{1000, exactDurationBonus},
	{2000, closeDurationBonus},
	{5000, nearDurationBonus},
}

// SearchQuery builds the free-text search for a track.
func SearchQuery(t models.Track) string {
	return fmt.Sprintf("%s %s %s Official Audio", t.Name, t.Album, t.Artist)
}

// Score rates how likely a candidate is the given track. videoMS of 0 means unknown
// and earns no duration bonus.
func Score(c models.Candidate, t models.Track, videoMS int64) int {
	score := 0

	if strings.Contains(c.ChannelTitle, "Topic") {
		score += topicChannelBonus
	}

	for _, m := range officialMarkers {
		if strings.Contains(c.Title, m) {
			score += officialBonus
			break
		}
	}

	title := strings.ToLower(c.Title)
	if strings.Contains(title, strings.ToLower(t.Artist)) {
		score += artistBonus
	}
	if strings.Contains(title, strings.ToLower(t.Name)) {
		score += songBonus
	}

	if videoMS > 0 {
		diff := videoMS - t.DurationMS
		if diff < 0 {
			diff = -diff
		}
		for _, tier := range durationTiers {
			if diff <= tier.withinMS {
				score += tier.bonus
				break
			}
		}
	}

	return score
}

// BestMatch scores every candidate and returns the highest. durations is index-aligned
// with candidates. Ties keep the earlier candidate.
//
// candidates must not be empty.
func BestMatch(candidates []models.Candidate, durations []int64, t models.Track) models.Match {
	best := models.Match{Candidate: candidates[0], Score: -1}
	for i, c := range candidates {
		var d int64
		if i < len(durations) {
			d = durations[i]
		}
		if s := Score(c, t, d); s > best.Score {
			best = models.Match{Candidate: c, Score: s, DurationMS: d}
		}
	}
	return best
}
