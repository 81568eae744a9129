package app

import (
	"github.com/skyrc/skyrc/internal/core"
	"github.com/skyrc/skyrc/internal/domain"
)

// RoomListing is the public projection of an active room: counts only,
// never who is present.
type RoomListing struct {
	Name      domain.RoomName `json:"name"`
	UserCount int             `json:"userCount"`
}

// Directory exposes aggregate room listings to the unauthenticated query
// surface.
type Directory struct {
	presence *core.Presence
}

func NewDirectory(presence *core.Presence) *Directory {
	return &Directory{presence: presence}
}

// ListForClients returns every active room ordered by member count
// descending, name ascending, with member identities stripped.
func (d *Directory) ListForClients() []RoomListing {
	active := d.presence.ListActive()
	out := make([]RoomListing, 0, len(active))
	for _, snap := range active {
		out = append(out, RoomListing{Name: snap.Name, UserCount: snap.UserCount})
	}
	return out
}
