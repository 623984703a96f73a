package scoring

import (
	"sort"
	"strconv"
	"strings"
)

// Row is one participant's total entering the ranking
type Row struct {
	ParticipantID int     `json:"participant_id"`
	Number        string  `json:"number"`
	Total         float64 `json:"total"`
}

// Ranked is a Row with its competition rank
type Ranked struct {
	Row
	Rank int `json:"rank"`
}

// Rank orders rows by total descending and assigns standard competition
// ranks: equal totals share a rank and the next distinct total takes its
// 1-based position (90, 90, 80 rank 1, 1, 3). Equal totals are listed by
// participant number, then id, so the order never depends on input order.
func Rank(rows []Row) []Ranked {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Total != sorted[j].Total {
			return sorted[i].Total > sorted[j].Total
		}
		return numberLess(sorted[i], sorted[j])
	})

	out := make([]Ranked, len(sorted))
	for i, row := range sorted {
		rank := i + 1
		if i > 0 && row.Total == sorted[i-1].Total {
			rank = out[i-1].Rank
		}
		out[i] = Ranked{Row: row, Rank: rank}
	}
	return out
}

func numberLess(a, b Row) bool {
	an, aErr := strconv.Atoi(strings.TrimSpace(a.Number))
	bn, bErr := strconv.Atoi(strings.TrimSpace(b.Number))
	switch {
	case aErr == nil && bErr == nil && an != bn:
		return an < bn
	case aErr == nil && bErr != nil:
		return true
	case aErr != nil && bErr == nil:
		return false
	case aErr != nil && bErr != nil && a.Number != b.Number:
		return a.Number < b.Number
	}
	return a.ParticipantID < b.ParticipantID
}
