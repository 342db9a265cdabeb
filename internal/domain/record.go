package domain

import (
	"context"
	"maps"
	"math"
	"slices"
)

// Contribution is one actor's share of a target's record.
type Contribution struct {
	Count          int  `json:"count"`
	IsFirst        bool `json:"first"`
	IsPeakProducer bool `json:"peak"`
}

// InteractionRecord aggregates every interaction a target received in a group.
//
// Invariants after every completed update: Count equals the sum of all
// contribution counts, at most one contribution is flagged first, and at most
// one is flagged peak producer. Legacy records may violate them until healed.
type InteractionRecord struct {
	GroupID          string                  `json:"group_id"`
	UserID           string                  `json:"user_id"`
	Count            int                     `json:"count"`
	CumulativeVolume float64                 `json:"cumulative_volume"`
	PeakVolume       float64                 `json:"peak_volume"`
	Contributions    map[string]Contribution `json:"contributions"`
}

// RecordMutation computes the next state from the current one. current is nil
// when no record exists yet. Returning an error aborts the write.
type RecordMutation func(current *InteractionRecord) (InteractionRecord, error)

// RecordStore persists records keyed by (group, user). UpdateRecord must be a
// linearizable read-modify-write per key.
type RecordStore interface {
	GetRecord(ctx context.Context, groupID, userID string) (*InteractionRecord, error)
	ListGroupRecords(ctx context.Context, groupID string) ([]InteractionRecord, error)
	ListGroups(ctx context.Context) ([]string, error)
	UpdateRecord(ctx context.Context, groupID, userID string, mutate RecordMutation) (*InteractionRecord, error)
	UpsertRecords(ctx context.Context, records []InteractionRecord) error
}

// RoundVolume rounds a volume to two decimals.
func RoundVolume(v float64) float64 {
	return math.Round(v*100) / 100
}

// Clone returns a deep copy that shares no mutable state with r.
func (r InteractionRecord) Clone() InteractionRecord {
	out := r
	out.Contributions = make(map[string]Contribution, len(r.Contributions))
	maps.Copy(out.Contributions, r.Contributions)
	return out
}

// ContributionTotal sums the counts of all contributions.
func (r InteractionRecord) ContributionTotal() int {
	total := 0
	for _, c := range r.Contributions {
		total += c.Count
	}
	return total
}

// EffectivePeak returns PeakVolume, or the rounded average volume for legacy
// records that never stored a peak.
func (r InteractionRecord) EffectivePeak() float64 {
	if r.PeakVolume == 0 && r.Count > 0 {
		return RoundVolume(r.CumulativeVolume / float64(r.Count))
	}
	return r.PeakVolume
}

// PeakProducer returns the actor flagged as peak producer, falling back to the
// actor with the highest count. Ties resolve to the smallest actor ID.
func (r InteractionRecord) PeakProducer() (string, bool) {
	return r.lookup(func(c Contribution) bool { return c.IsPeakProducer })
}

// FirstActor returns the actor flagged first, with the same fallback as
// PeakProducer.
func (r InteractionRecord) FirstActor() (string, bool) {
	return r.lookup(func(c Contribution) bool { return c.IsFirst })
}

func (r InteractionRecord) lookup(flagged func(Contribution) bool) (string, bool) {
	ids := r.sortedActors()
	for _, id := range ids {
		if flagged(r.Contributions[id]) {
			return id, true
		}
	}

	best, bestCount := "", -1
	for _, id := range ids {
		if c := r.Contributions[id].Count; c > bestCount {
			best, bestCount = id, c
		}
	}
	return best, best != ""
}

func (r InteractionRecord) sortedActors() []string {
	return slices.Sorted(maps.Keys(r.Contributions))
}

// HealReport lists what Heal changed.
type HealReport struct {
	ClearedFirst []string
	ClearedPeak  []string
}

func (h HealReport) Changed() bool {
	return len(h.ClearedFirst) > 0 || len(h.ClearedPeak) > 0
}

// Heal enforces the single-flag invariants in place, keeping the flag on the
// smallest actor ID when several carry it.
func (r *InteractionRecord) Heal() HealReport {
	var report HealReport
	var firstSeen, peakSeen bool
	for _, id := range r.sortedActors() {
		c := r.Contributions[id]
		if c.IsFirst {
			if firstSeen {
				c.IsFirst = false
				report.ClearedFirst = append(report.ClearedFirst, id)
			}
			firstSeen = true
		}
		if c.IsPeakProducer {
			if peakSeen {
				c.IsPeakProducer = false
				report.ClearedPeak = append(report.ClearedPeak, id)
			}
			peakSeen = true
		}
		r.Contributions[id] = c
	}
	return report
}
