// Package channel attributes committed sales across delivery and ordering
// channels and computes commission fees per channel configuration.
package channel

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	CommissionPercentage = "percentage"
	CommissionFlatFee    = "flat_fee"
)

// Channel is one configured sales channel. CommissionRate is a fraction
// (0.20 for 20%) and applies when CommissionType is percentage; FlatFeeAmount
// applies when it is flat_fee.
type Channel struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Aliases        []string `json:"aliases,omitempty"`
	CommissionType string   `json:"commission_type"`
	CommissionRate float64  `json:"commission_rate,omitempty"`
	FlatFeeAmount  float64  `json:"flat_fee_amount,omitempty"`
	Active         bool     `json:"active"`
	TeamID         string   `json:"team_id,omitempty"`
}

// Registry holds the channel configuration consulted during attribution.
type Registry struct {
	mu       sync.RWMutex
	channels []Channel
}

func NewRegistry(channels ...Channel) *Registry {
	r := &Registry{}
	for _, c := range channels {
		r.Add(c)
	}
	return r
}

func (r *Registry) Add(c Channel) Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CommissionType == "" {
		c.CommissionType = CommissionPercentage
	}
	r.channels = append(r.channels, c)
	return c
}

func (r *Registry) List(ctx context.Context, teamID string) []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Channel, 0, len(r.channels))
	for _, c := range r.channels {
		if teamID != "" && c.TeamID != "" && c.TeamID != teamID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Match finds the active channel whose name or alias matches a destination
// label. Matching is case-insensitive and ignores export decorations like an
// "EXT" prefix, so "EXT DoorDash" resolves to DoorDash.
func (r *Registry) Match(teamID, destination string) (Channel, bool) {
	norm := normalizeName(destination)
	if norm == "" {
		return Channel{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.channels {
		if !c.Active {
			continue
		}
		if teamID != "" && c.TeamID != "" && c.TeamID != teamID {
			continue
		}
		if normalizeName(c.Name) == norm {
			return c, true
		}
		for _, alias := range c.Aliases {
			if normalizeName(alias) == norm {
				return c, true
			}
		}
	}
	return Channel{}, false
}

// normalizeName lowercases, strips punctuation and collapses whitespace, and
// drops the external-channel markers POS exports prepend.
func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(".", "", ",", "", "-", " ", "_", " ").Replace(s)
	fields := strings.Fields(s)
	for len(fields) > 0 && (fields[0] == "ext" || fields[0] == "external") {
		fields = fields[1:]
	}
	return strings.Join(fields, "")
}
