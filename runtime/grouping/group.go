package grouping

import (
	"sync"
	"time"
)

// Group is a named collection of process records in the engine's store. Member
// IDs are kept ordered by insertion; duplicates are ignored.
type Group struct {
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`

	mu      sync.Mutex
	Members []string `json:"members,omitempty"`
	index   map[string]bool
}

// AddMembers appends record IDs not yet present and returns how many were added.
func (g *Group) AddMembers(ids ...string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.index == nil {
		g.index = make(map[string]bool, len(g.Members))
		for _, id := range g.Members {
			g.index[id] = true
		}
	}
	added := 0
	for _, id := range ids {
		if g.index[id] {
			continue
		}
		g.index[id] = true
		g.Members = append(g.Members, id)
		added++
	}
	return added
}

// HasMember reports whether the record ID belongs to the group.
func (g *Group) HasMember(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, member := range g.Members {
		if member == id {
			return true
		}
	}
	return false
}

// Size returns the member count.
func (g *Group) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Members)
}

// MemberIDs returns a copy of the member IDs in insertion order.
func (g *Group) MemberIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.Members...)
}
