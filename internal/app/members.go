package app

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/pscheid92/chatledger/internal/platform/errors"
)

// RememberMember stores the display name a group member currently uses and
// drops the cached name so the next lookup sees it.
func (s *Service) RememberMember(ctx context.Context, groupID, userID, name string) error {
	groupID, userID, name = strings.TrimSpace(groupID), strings.TrimSpace(userID), strings.TrimSpace(name)
	if groupID == "" || userID == "" {
		return apperrors.ValidationError("group id and user id are required")
	}
	if name == "" {
		return apperrors.ValidationError("display name must not be empty")
	}

	if err := s.members.Remember(ctx, groupID, userID, name); err != nil {
		return fmt.Errorf("failed to remember member name: %w", err)
	}
	s.names.Invalidate(groupID, userID)
	return nil
}
