package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/chatledger/internal/domain"
)

// MemberDirectory stores display names per group in one hash. The hash
// expires ttl after the last write, so groups that go quiet drop their
// names.
type MemberDirectory struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewMemberDirectory creates a directory. ttl of zero keeps names forever.
func NewMemberDirectory(rdb *goredis.Client, ttl time.Duration) *MemberDirectory {
	return &MemberDirectory{rdb: rdb, ttl: ttl}
}

func (d *MemberDirectory) Remember(ctx context.Context, groupID, userID, name string) error {
	key := memberNamesKey(groupID)
	_, err := d.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, userID, name)
		if d.ttl > 0 {
			pipe.Expire(ctx, key, d.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remember member: %w", err)
	}
	return nil
}

func (d *MemberDirectory) ResolveName(ctx context.Context, scope, userID string) (string, error) {
	name, err := d.rdb.HGet(ctx, memberNamesKey(scope), userID).Result()
	if errors.Is(err, goredis.Nil) {
		return "", domain.ErrNameNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve member name: %w", err)
	}
	return name, nil
}
