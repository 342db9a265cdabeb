package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pscheid92/chatledger/internal/domain"
	"github.com/pscheid92/chatledger/internal/ledger"
	apperrors "github.com/pscheid92/chatledger/internal/platform/errors"
)

const nameLookupConcurrency = 8

type RankedEntry struct {
	Rank         int
	UserID       string
	Name         string
	Value        float64
	ProducerID   string
	ProducerName string
}

type RankingView struct {
	GroupID string
	Kind    ledger.Kind
	Entries []RankedEntry
}

type ProfileView struct {
	ledger.Profile
	Name           string
	FirstActorName string
}

// Ranking returns the top entries of a group for kind, with display names.
// A group without records yields an empty ranking.
func (s *Service) Ranking(ctx context.Context, groupID string, kind ledger.Kind) (*RankingView, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, apperrors.ValidationError("group id is required")
	}

	records, err := s.records.ListGroupRecords(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	ranked := ledger.Rank(records, kind, ledger.DefaultTopK, s.weights)
	view := &RankingView{GroupID: groupID, Kind: kind, Entries: make([]RankedEntry, len(ranked))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nameLookupConcurrency)
	for i, e := range ranked {
		view.Entries[i] = RankedEntry{Rank: i + 1, UserID: e.UserID, Value: e.Value, ProducerID: e.Producer}
		entry := &view.Entries[i]
		g.Go(func() error {
			entry.Name = s.names.Resolve(gctx, groupID, entry.UserID)
			if entry.ProducerID != "" {
				entry.ProducerName = s.names.Resolve(gctx, groupID, entry.ProducerID)
			}
			return nil
		})
	}
	_ = g.Wait()

	return view, nil
}

// Profile summarizes a user's standing in a group.
func (s *Service) Profile(ctx context.Context, groupID, userID string) (*ProfileView, error) {
	groupID, userID = strings.TrimSpace(groupID), strings.TrimSpace(userID)
	if groupID == "" || userID == "" {
		return nil, apperrors.ValidationError("group id and user id are required")
	}

	record, err := s.records.GetRecord(ctx, groupID, userID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, apperrors.NotFoundError("no interactions recorded for this user").
			WithField("group", groupID).
			WithField("user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	group, err := s.records.ListGroupRecords(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	view := &ProfileView{Profile: ledger.BuildProfile(*record, group)}
	view.Name = s.names.Resolve(ctx, groupID, userID)
	if view.FirstActor != "" {
		view.FirstActorName = s.names.Resolve(ctx, groupID, view.FirstActor)
	}
	return view, nil
}
