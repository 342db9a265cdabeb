// Package legacyfile imports the JSON export of the previous ledger format.
//
// The file maps group IDs to arrays of records:
//
//	{"<group>": [{"id": "<user>", "num": 3, "vol": 41.5, "max": 20.1,
//	              "ccb_by": {"<actor>": {"count": 2, "first": true, "max": false}}}]}
package legacyfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/pscheid92/chatledger/internal/domain"
)

// MigratedSuffix is appended to the file name after a successful import.
const MigratedSuffix = ".migrated"

type legacyContribution struct {
	Count float64 `json:"count"`
	First bool    `json:"first"`
	Max   bool    `json:"max"`
}

type legacyRecord struct {
	ID    string                        `json:"id"`
	Num   float64                       `json:"num"`
	Vol   float64                       `json:"vol"`
	Max   float64                       `json:"max"`
	CcbBy map[string]legacyContribution `json:"ccb_by"`
}

// Parse decodes an export into records ordered by group, then user. Entries
// without a user ID are skipped.
func Parse(r io.Reader) ([]domain.InteractionRecord, error) {
	var raw map[string][]legacyRecord
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode legacy data: %w", err)
	}

	var records []domain.InteractionRecord
	for groupID, entries := range raw {
		for _, e := range entries {
			if e.ID == "" {
				slog.Warn("Skipping legacy record without user id", "group", groupID)
				continue
			}
			records = append(records, convert(groupID, e))
		}
	}

	slices.SortFunc(records, func(a, b domain.InteractionRecord) int {
		if c := strings.Compare(a.GroupID, b.GroupID); c != 0 {
			return c
		}
		return strings.Compare(a.UserID, b.UserID)
	})
	return records, nil
}

func convert(groupID string, e legacyRecord) domain.InteractionRecord {
	record := domain.InteractionRecord{
		GroupID:          groupID,
		UserID:           e.ID,
		Count:            toCount(e.Num),
		CumulativeVolume: domain.RoundVolume(e.Vol),
		PeakVolume:       domain.RoundVolume(e.Max),
		Contributions:    make(map[string]domain.Contribution, len(e.CcbBy)),
	}
	for actorID, c := range e.CcbBy {
		record.Contributions[actorID] = domain.Contribution{
			Count:          toCount(c.Count),
			IsFirst:        c.First,
			IsPeakProducer: c.Max,
		}
	}
	return record
}

func toCount(v float64) int {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return int(math.Round(v))
}

// Result summarizes an import.
type Result struct {
	Imported bool
	Records  int
	Healed   int
}

// Import loads path into store and renames the file so the next start does
// not import it again. A missing file is not an error. Records that violate
// the single-flag rules are healed before they are written.
func Import(ctx context.Context, path string, store domain.RecordStore) (Result, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to open legacy data: %w", err)
	}

	records, err := Parse(f)
	_ = f.Close()
	if err != nil {
		return Result{}, err
	}

	result := Result{Imported: true, Records: len(records)}
	for i := range records {
		if records[i].Heal().Changed() {
			result.Healed++
		}
	}

	if err := store.UpsertRecords(ctx, records); err != nil {
		return Result{}, fmt.Errorf("failed to store legacy records: %w", err)
	}

	if err := os.Rename(path, path+MigratedSuffix); err != nil {
		return result, fmt.Errorf("failed to rename legacy data: %w", err)
	}

	slog.InfoContext(ctx, "Imported legacy data",
		"file", path, "records", result.Records, "healed", result.Healed)
	return result, nil
}
