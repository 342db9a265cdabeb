package nickname

import (
	"context"
	"strings"

	"github.com/pscheid92/chatledger/internal/domain"
)

type hintKey struct{}

// WithHint attaches a name reported by the caller, such as the sender name
// carried by a chat event. Hints are consulted by HintResolver.
func WithHint(ctx context.Context, userID, name string) context.Context {
	if userID == "" || strings.TrimSpace(name) == "" {
		return ctx
	}
	hints := map[string]string{userID: name}
	if existing, ok := ctx.Value(hintKey{}).(map[string]string); ok {
		for id, n := range existing {
			if _, set := hints[id]; !set {
				hints[id] = n
			}
		}
	}
	return context.WithValue(ctx, hintKey{}, hints)
}

// HintResolver resolves names from hints attached with WithHint.
func HintResolver() domain.NameResolver {
	return domain.NameResolverFunc(func(ctx context.Context, _, userID string) (string, error) {
		hints, _ := ctx.Value(hintKey{}).(map[string]string)
		if name, ok := hints[userID]; ok {
			return name, nil
		}
		return "", domain.ErrNameNotFound
	})
}

// usable trims a candidate and rejects blanks and names that merely echo the ID.
func usable(candidate, userID string) (string, bool) {
	name := strings.TrimSpace(candidate)
	if name == "" || name == userID {
		return "", false
	}
	return name, true
}
