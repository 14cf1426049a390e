package evidence

import (
	"fmt"
	"sort"

	"github.com/farcloser/turnmark/internal/apperr"
	"github.com/farcloser/turnmark/internal/timebase"
)

// Bundle is a name-keyed collection of Tracks sharing one Timebase.
type Bundle struct {
	TB               timebase.Timebase
	RequireCanonical bool
	tracks           map[string]Track
}

// NewBundle constructs an empty Bundle on tb. When requireCanonical is
// true (the default per design notes — "adopt the stricter superset"),
// tb must be the canonical 10 ms grid.
func NewBundle(tb timebase.Timebase, requireCanonical bool) (*Bundle, error) {
	if requireCanonical && !tb.IsCanonical() {
		return nil, fmt.Errorf("%w: bundle requires canonical hop %v, got %v",
			apperr.ErrValidation, timebase.CanonicalHopSeconds, tb.HopSeconds())
	}

	return &Bundle{TB: tb, RequireCanonical: requireCanonical, tracks: make(map[string]Track)}, nil
}

// Add inserts or replaces a track by name. The track's hop must match the
// bundle's hop within tolerance.
func (b *Bundle) Add(track Track) error {
	if !track.TB.SameHop(b.TB) {
		return fmt.Errorf("%w: track %q has hop %v, bundle hop is %v",
			apperr.ErrValidation, track.Name, track.TB.HopSeconds(), b.TB.HopSeconds())
	}

	b.tracks[track.Name] = track

	return nil
}

// Get returns a track by name and whether it was present.
func (b *Bundle) Get(name string) (Track, bool) {
	t, ok := b.tracks[name]
	return t, ok
}

// Names returns track names in sorted order, for deterministic iteration.
func (b *Bundle) Names() []string {
	names := make([]string, 0, len(b.tracks))
	for name := range b.tracks {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Len returns the number of tracks in the bundle.
func (b *Bundle) Len() int {
	return len(b.tracks)
}
