package ledger

import (
	"sort"

	"github.com/pscheid92/chatledger/internal/domain"
)

// DefaultTopK is the ranking length used by the query surface.
const DefaultTopK = 5

type Kind string

const (
	ByCount  Kind = "count"
	ByVolume Kind = "volume"
	ByPeak   Kind = "peak"
	ByScore  Kind = "score"
)

func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case ByCount, ByVolume, ByPeak, ByScore:
		return k, true
	default:
		return "", false
	}
}

// Weights combine a user's received count and received volume into a composite
// score. Given contributions are weighted by Activity and subtracted.
type Weights struct {
	Count    float64
	Volume   float64
	Activity float64
}

var DefaultWeights = Weights{Count: 1.0, Volume: 0.1, Activity: 0.5}

// Entry is one ranked user. Value is the metric the ranking sorted by.
// Producer is only set for peak rankings.
type Entry struct {
	UserID   string
	Value    float64
	Producer string
}

// Rank orders records by kind, descending, keeping input order for ties,
// and returns at most k entries. The input slice is not modified.
func Rank(records []domain.InteractionRecord, kind Kind, k int, w Weights) []Entry {
	entries := make([]Entry, 0, len(records))
	var given map[string]int
	if kind == ByScore {
		given = GivenCounts(records)
	}

	for _, r := range records {
		e := Entry{UserID: r.UserID}
		switch kind {
		case ByCount:
			e.Value = float64(r.Count)
		case ByVolume:
			e.Value = r.CumulativeVolume
		case ByPeak:
			e.Value = r.EffectivePeak()
			e.Producer, _ = r.PeakProducer()
		case ByScore:
			e.Value = w.Count*float64(r.Count) + w.Volume*r.CumulativeVolume - w.Activity*float64(given[r.UserID])
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Value > entries[j].Value })
	if k >= 0 && len(entries) > k {
		entries = entries[:k]
	}
	return entries
}

// GivenCounts sums, per actor, the contributions they made across all
// records of a group.
func GivenCounts(records []domain.InteractionRecord) map[string]int {
	given := make(map[string]int)
	for _, r := range records {
		for actor, c := range r.Contributions {
			given[actor] += c.Count
		}
	}
	return given
}
