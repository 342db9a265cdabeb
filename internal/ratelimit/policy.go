package ratelimit

import "time"

// Policy configures throttling for one actor. CritProbability is not used by
// the limiter itself; it travels with the policy because privileged overrides
// replace it together with the rate-limit settings.
type Policy struct {
	Window          time.Duration
	Threshold       int
	BanDuration     time.Duration
	BanProbability  float64
	CritProbability float64
}

// PolicyTable resolves the policy for an actor: a privileged override when one
// exists, the default otherwise.
type PolicyTable struct {
	def        Policy
	privileged map[string]Policy
}

func NewPolicyTable(def Policy, privileged map[string]Policy) *PolicyTable {
	table := &PolicyTable{def: def, privileged: make(map[string]Policy, len(privileged))}
	for id, p := range privileged {
		table.privileged[id] = p
	}
	return table
}

func (t *PolicyTable) For(actorID string) Policy {
	if p, ok := t.privileged[actorID]; ok {
		return p
	}
	return t.def
}

func (t *PolicyTable) IsPrivileged(actorID string) bool {
	_, ok := t.privileged[actorID]
	return ok
}

func (t *PolicyTable) Default() Policy {
	return t.def
}
