package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimezoneResolver_Resolve(t *testing.T) {
	r := NewTimezoneResolver()

	tests := []struct {
		state string
		want  string
		ok    bool
	}{
		{"NY", "America/New_York", true},
		{"ny", "America/New_York", true},
		{" FL ", "America/New_York", true},
		{"IL", "America/Chicago", true},
		{"CO", "America/Denver", true},
		{"AZ", "America/Phoenix", true},
		{"CA", "America/Los_Angeles", true},
		{"AK", "America/Anchorage", true},
		{"HI", "Pacific/Honolulu", true},
		{"New Jersey", "America/New_York", true},
		{"", "UTC", false},
		{"ZZ", "UTC", false},
		{"Ontario", "UTC", false},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			tz, ok := r.Resolve(tt.state)
			assert.Equal(t, tt.want, tz)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestTimezoneResolver_ResolveForPrefersExplicitZone(t *testing.T) {
	r := NewTimezoneResolver()

	tz, ok := r.ResolveFor("America/Los_Angeles", "NY")
	assert.True(t, ok)
	assert.Equal(t, "America/Los_Angeles", tz)

	tz, ok = r.ResolveFor("Mars/Olympus_Mons", "NY")
	assert.True(t, ok)
	assert.Equal(t, "America/New_York", tz)

	tz, ok = r.ResolveFor("", "")
	assert.False(t, ok)
	assert.Equal(t, "UTC", tz)
}

func TestTimezoneResolver_Location(t *testing.T) {
	r := NewTimezoneResolver()

	loc, name := r.Location("America/Chicago")
	assert.Equal(t, "America/Chicago", name)
	assert.Equal(t, "America/Chicago", loc.String())

	// cached lookups return the same location
	again, _ := r.Location("America/Chicago")
	assert.Same(t, loc, again)

	loc, name = r.Location("Not/AZone")
	assert.Equal(t, time.UTC, loc)
	assert.Equal(t, "UTC", name)

	loc, name = r.Location("")
	assert.Equal(t, time.UTC, loc)
	assert.Equal(t, "UTC", name)
}

func TestTimezoneResolver_DoesNotCacheInvalidZones(t *testing.T) {
	r := NewTimezoneResolver()

	for _, tz := range []string{"Not/AZone", "Mars/Olympus_Mons", "Local", "America/Chicago"} {
		r.Location(tz)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.Len(t, r.locations, 2)
	assert.Contains(t, r.locations, "UTC")
	assert.Contains(t, r.locations, "America/Chicago")
}
