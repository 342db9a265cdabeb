package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pscheid92/chatledger/internal/domain"
)

const (
	selectRecordSQL = `
SELECT group_id, user_id, count, cumulative_volume, peak_volume, contributions
FROM interaction_records
WHERE group_id = $1 AND user_id = $2`

	selectGroupRecordsSQL = `
SELECT group_id, user_id, count, cumulative_volume, peak_volume, contributions
FROM interaction_records
WHERE group_id = $1
ORDER BY user_id`

	selectGroupsSQL = `SELECT DISTINCT group_id FROM interaction_records ORDER BY group_id`

	upsertRecordSQL = `
INSERT INTO interaction_records (group_id, user_id, count, cumulative_volume, peak_volume, contributions, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
ON CONFLICT (group_id, user_id) DO UPDATE SET
    count             = EXCLUDED.count,
    cumulative_volume = EXCLUDED.cumulative_volume,
    peak_volume       = EXCLUDED.peak_volume,
    contributions     = EXCLUDED.contributions,
    updated_at        = NOW()`
)

type RecordRepo struct {
	pool *pgxpool.Pool
}

func NewRecordRepo(pool *pgxpool.Pool) *RecordRepo {
	return &RecordRepo{pool: pool}
}

func (r *RecordRepo) GetRecord(ctx context.Context, groupID, userID string) (*domain.InteractionRecord, error) {
	record, err := scanRecord(r.pool.QueryRow(ctx, selectRecordSQL, groupID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return record, nil
}

func (r *RecordRepo) ListGroupRecords(ctx context.Context, groupID string) ([]domain.InteractionRecord, error) {
	rows, err := r.pool.Query(ctx, selectGroupRecordsSQL, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []domain.InteractionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

func (r *RecordRepo) ListGroups(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, selectGroupsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	groups, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect groups: %w", err)
	}
	return groups, nil
}

// UpdateRecord runs mutate inside a transaction holding an advisory lock on
// the record key.
func (r *RecordRepo) UpdateRecord(ctx context.Context, groupID, userID string, mutate domain.RecordMutation) (*domain.InteractionRecord, error) {
	var next domain.InteractionRecord
	err := withKeyLock(ctx, r.pool, recordLock(groupID, userID), func(tx pgx.Tx) error {
		current, err := scanRecord(tx.QueryRow(ctx, selectRecordSQL, groupID, userID))
		if errors.Is(err, pgx.ErrNoRows) {
			current = nil
		} else if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}

		next, err = mutate(current)
		if err != nil {
			return err
		}
		next.GroupID, next.UserID = groupID, userID
		return execUpsert(ctx, tx, next)
	})
	if err != nil {
		return nil, err
	}
	return &next, nil
}

// UpsertRecords writes records as given, in one transaction.
func (r *RecordRepo) UpsertRecords(ctx context.Context, records []domain.InteractionRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, record := range records {
		contributions, err := encodeContributions(record.Contributions)
		if err != nil {
			return err
		}
		batch.Queue(upsertRecordSQL, record.GroupID, record.UserID, record.Count,
			record.CumulativeVolume, record.PeakVolume, contributions)
	}

	results := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to upsert record: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

func execUpsert(ctx context.Context, tx pgx.Tx, record domain.InteractionRecord) error {
	contributions, err := encodeContributions(record.Contributions)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, upsertRecordSQL, record.GroupID, record.UserID, record.Count,
		record.CumulativeVolume, record.PeakVolume, contributions); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (*domain.InteractionRecord, error) {
	var record domain.InteractionRecord
	var contributions []byte
	if err := row.Scan(&record.GroupID, &record.UserID, &record.Count,
		&record.CumulativeVolume, &record.PeakVolume, &contributions); err != nil {
		return nil, err
	}
	record.Contributions = make(map[string]domain.Contribution)
	if err := json.Unmarshal(contributions, &record.Contributions); err != nil {
		return nil, fmt.Errorf("failed to decode contributions: %w", err)
	}
	return &record, nil
}

func encodeContributions(c map[string]domain.Contribution) ([]byte, error) {
	if c == nil {
		c = map[string]domain.Contribution{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode contributions: %w", err)
	}
	return data, nil
}
