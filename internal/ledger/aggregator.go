package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pscheid92/chatledger/internal/domain"
)

// Apply folds one interaction by actorID with the given magnitude into the
// target's record and returns the new state. current is nil for a target
// without a record and is never modified.
func Apply(current *domain.InteractionRecord, groupID, targetID, actorID string, magnitude float64) domain.InteractionRecord {
	if current == nil {
		return domain.InteractionRecord{
			GroupID:          groupID,
			UserID:           targetID,
			Count:            1,
			CumulativeVolume: magnitude,
			PeakVolume:       magnitude,
			Contributions: map[string]domain.Contribution{
				actorID: {Count: 1, IsFirst: true, IsPeakProducer: true},
			},
		}
	}

	next := current.Clone()
	previousPeak := current.EffectivePeak()

	next.Count++
	next.CumulativeVolume = domain.RoundVolume(current.CumulativeVolume + magnitude)

	c := next.Contributions[actorID]
	c.Count++
	next.Contributions[actorID] = c

	if magnitude > previousPeak {
		next.PeakVolume = magnitude
		for id, contribution := range next.Contributions {
			contribution.IsPeakProducer = id == actorID
			next.Contributions[id] = contribution
		}
	}

	return next
}

type Aggregator struct {
	store domain.RecordStore
}

func NewAggregator(store domain.RecordStore) *Aggregator {
	return &Aggregator{store: store}
}

// Record applies one interaction atomically and returns the stored record.
// Records that violate the single-flag invariants are healed on the way.
func (a *Aggregator) Record(ctx context.Context, groupID, targetID, actorID string, magnitude float64) (*domain.InteractionRecord, error) {
	record, err := a.store.UpdateRecord(ctx, groupID, targetID, func(current *domain.InteractionRecord) (domain.InteractionRecord, error) {
		next := Apply(current, groupID, targetID, actorID, magnitude)
		if report := next.Heal(); report.Changed() {
			slog.WarnContext(ctx, "Healed interaction record flags",
				"group", groupID, "target", targetID,
				"cleared_first", report.ClearedFirst, "cleared_peak", report.ClearedPeak)
		}
		return next, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record interaction: %w", err)
	}
	return record, nil
}

// Repair heals every record of a group and returns how many were rewritten.
func (a *Aggregator) Repair(ctx context.Context, groupID string) (int, error) {
	records, err := a.store.ListGroupRecords(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("failed to list records: %w", err)
	}

	repaired := 0
	for _, record := range records {
		healed := record.Clone()
		if !healed.Heal().Changed() {
			continue
		}

		_, err := a.store.UpdateRecord(ctx, groupID, record.UserID, func(current *domain.InteractionRecord) (domain.InteractionRecord, error) {
			if current == nil {
				return domain.InteractionRecord{}, domain.ErrRecordNotFound
			}
			next := current.Clone()
			report := next.Heal()
			slog.InfoContext(ctx, "Repaired interaction record",
				"group", groupID, "target", record.UserID,
				"cleared_first", report.ClearedFirst, "cleared_peak", report.ClearedPeak)
			return next, nil
		})
		if err != nil {
			return repaired, fmt.Errorf("failed to repair record %s: %w", record.UserID, err)
		}
		repaired++
	}
	return repaired, nil
}
