package memory

import (
	"context"
	"sync"

	"github.com/pscheid92/chatledger/internal/domain"
)

// MemberDirectory keeps group-scoped display names in memory.
type MemberDirectory struct {
	mu    sync.RWMutex
	names map[recordKey]string
}

func NewMemberDirectory() *MemberDirectory {
	return &MemberDirectory{names: make(map[recordKey]string)}
}

func (d *MemberDirectory) Remember(_ context.Context, groupID, userID, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names[recordKey{groupID, userID}] = name
	return nil
}

func (d *MemberDirectory) ResolveName(_ context.Context, scope, userID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if name, ok := d.names[recordKey{scope, userID}]; ok {
		return name, nil
	}
	return "", domain.ErrNameNotFound
}
