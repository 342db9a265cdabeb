package app

import (
	"context"

	"github.com/pscheid92/chatledger/internal/domain"
	"github.com/pscheid92/chatledger/internal/ledger"
	"github.com/pscheid92/chatledger/internal/nickname"
	"github.com/pscheid92/chatledger/internal/permission"
	"github.com/pscheid92/chatledger/internal/ratelimit"
)

// MemberDirectory stores display names reported for group members.
type MemberDirectory interface {
	Remember(ctx context.Context, groupID, userID, name string) error
}

// InteractionObserver receives pipeline events, typically to feed metrics.
type InteractionObserver interface {
	ObserveOutcome(status string)
	ObserveRoll(magnitude float64, critical bool)
	ObservePostHocBan()
}

type noopObserver struct{}

func (noopObserver) ObserveOutcome(string)     {}
func (noopObserver) ObserveRoll(float64, bool) {}
func (noopObserver) ObservePostHocBan()        {}

type Dependencies struct {
	Records     domain.RecordStore
	Limiter     *ratelimit.Limiter
	Policies    *ratelimit.PolicyTable
	Permissions *permission.Resolver
	Names       *nickname.Cache
	Members     MemberDirectory
	Random      domain.Random
	Observer    InteractionObserver
}

// Service is the application layer. It is the only component that talks to
// the limiter, the permission resolver, the name cache and the stores
// together.
type Service struct {
	records     domain.RecordStore
	aggregator  *ledger.Aggregator
	limiter     *ratelimit.Limiter
	policies    *ratelimit.PolicyTable
	permissions *permission.Resolver
	names       *nickname.Cache
	members     MemberDirectory
	random      domain.Random
	observer    InteractionObserver
	weights     ledger.Weights
}

func NewService(deps Dependencies) *Service {
	s := &Service{
		records:     deps.Records,
		aggregator:  ledger.NewAggregator(deps.Records),
		limiter:     deps.Limiter,
		policies:    deps.Policies,
		permissions: deps.Permissions,
		names:       deps.Names,
		members:     deps.Members,
		random:      deps.Random,
		observer:    deps.Observer,
		weights:     ledger.DefaultWeights,
	}
	if s.random == nil {
		s.random = domain.SystemRandom{}
	}
	if s.observer == nil {
		s.observer = noopObserver{}
	}
	return s
}
