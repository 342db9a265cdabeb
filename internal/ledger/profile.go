package ledger

import "github.com/pscheid92/chatledger/internal/domain"

// Profile summarizes one user within a group.
type Profile struct {
	UserID     string
	FirstActor string
	Received   int
	Given      int
	Volume     float64
	Peak       float64
}

// BuildProfile derives a profile from the user's record and the group's
// records, which are needed for the given count.
func BuildProfile(record domain.InteractionRecord, group []domain.InteractionRecord) Profile {
	first, _ := record.FirstActor()
	given := 0
	for _, r := range group {
		given += r.Contributions[record.UserID].Count
	}
	return Profile{
		UserID:     record.UserID,
		FirstActor: first,
		Received:   record.Count,
		Given:      given,
		Volume:     record.CumulativeVolume,
		Peak:       record.EffectivePeak(),
	}
}
