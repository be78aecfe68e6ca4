package support

import (
	"math"
	"sort"
	"time"
)

// Record is one persisted support booking: who was supported, for how many
// hours, when, and by whom.
type Record struct {
	ID          string    `json:"id"`
	Target      string    `json:"target"`
	Hours       int       `json:"hours"`
	Date        time.Time `json:"date"`
	SupporterID string    `json:"supporter_id"`
}

// RankingEntry aggregates all records for one target.
type RankingEntry struct {
	Target      string `json:"target"`
	Count       int    `json:"count"`
	TotalPoints int    `json:"total_points"`
	Percentage  int    `json:"percentage"`
}

// hourScores maps booked hours to points. Hours outside [1,5] score 0; that
// is bad data, not an error.
var hourScores = map[int]int{1: 40, 2: 50, 3: 70, 4: 80, 5: 90}

// ScoreOf returns the point value of a booking of the given hours.
func ScoreOf(hours int) int { return hourScores[hours] }

// BuildRanking groups records by target and orders the groups by total points
// descending. Ties keep the order in which targets first appeared, so output
// is deterministic. Percentage is the rounded mean score per record.
func BuildRanking(records []Record) []RankingEntry {
	entries := make([]RankingEntry, 0)
	index := make(map[string]int)
	for _, r := range records {
		i, ok := index[r.Target]
		if !ok {
			i = len(entries)
			index[r.Target] = i
			entries = append(entries, RankingEntry{Target: r.Target})
		}
		entries[i].Count++
		entries[i].TotalPoints += ScoreOf(r.Hours)
	}
	for i := range entries {
		entries[i].Percentage = int(math.Round(float64(entries[i].TotalPoints) / float64(entries[i].Count)))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalPoints > entries[j].TotalPoints
	})
	return entries
}
