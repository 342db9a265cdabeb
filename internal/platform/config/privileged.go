package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// PrivilegedActor overrides the rate-limit and roll settings for one actor.
// Zero fields fall back to the privileged defaults.
type PrivilegedActor struct {
	ID              string   `toml:"id"`
	WindowSeconds   float64  `toml:"window_seconds"`
	Threshold       int      `toml:"threshold"`
	BanSeconds      float64  `toml:"ban_seconds"`
	BanProbability  *float64 `toml:"ban_probability"`
	CritProbability *float64 `toml:"crit_probability"`
}

// Privileged defaults: effectively unthrottled, never banned post hoc,
// frequent critical rolls.
const (
	DefaultPrivilegedWindow          = 10 * time.Second
	DefaultPrivilegedThreshold       = 999
	DefaultPrivilegedBanDuration     = 60 * time.Second
	DefaultPrivilegedBanProbability  = 0.0
	DefaultPrivilegedCritProbability = 0.8
)

type privilegedFile struct {
	Actors []PrivilegedActor `toml:"actor"`
}

// LoadPrivilegedActors reads the TOML override table. An empty path yields
// no overrides.
//
//	[[actor]]
//	id = "10001"
//	threshold = 50
func LoadPrivilegedActors(path string) ([]PrivilegedActor, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read privileged actors file: %w", err)
	}

	var file privilegedFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse privileged actors file: %w", err)
	}

	for i, actor := range file.Actors {
		if actor.ID == "" {
			return nil, fmt.Errorf("privileged actor #%d has no id", i+1)
		}
	}
	return file.Actors, nil
}

func (a PrivilegedActor) Window() time.Duration {
	return secondsOr(a.WindowSeconds, DefaultPrivilegedWindow)
}

func (a PrivilegedActor) BanDuration() time.Duration {
	return secondsOr(a.BanSeconds, DefaultPrivilegedBanDuration)
}

func (a PrivilegedActor) Limit() int {
	if a.Threshold > 0 {
		return a.Threshold
	}
	return DefaultPrivilegedThreshold
}

func (a PrivilegedActor) BanChance() float64 {
	if a.BanProbability != nil {
		return *a.BanProbability
	}
	return DefaultPrivilegedBanProbability
}

func (a PrivilegedActor) CritChance() float64 {
	if a.CritProbability != nil {
		return *a.CritProbability
	}
	return DefaultPrivilegedCritProbability
}

func secondsOr(seconds float64, fallback time.Duration) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds * float64(time.Second))
	}
	return fallback
}
