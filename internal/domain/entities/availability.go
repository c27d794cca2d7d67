package entities

import "time"

// AvailabilityState is the tri-state open/closed/unknown result
type AvailabilityState string

const (
	StateOpen    AvailabilityState = "open"
	StateClosed  AvailabilityState = "closed"
	StateUnknown AvailabilityState = "unknown"
)

// AvailabilityStatus is the derived, per-query open/closed answer for a
// restaurant. It is recomputed on every request and never stored.
type AvailabilityStatus struct {
	IsOpen           bool              `json:"is_open"`
	State            AvailabilityState `json:"status"`
	NextOpenTime     *time.Time        `json:"next_open_time"`
	CurrentTimeLocal time.Time         `json:"current_time_local"`
	Timezone         string            `json:"timezone"`
	HoursParsed      bool              `json:"hours_parsed"`
	Reason           string            `json:"status_reason"`
}

// CacheEntry is the memoized parse and timezone resolution for one
// restaurant's hours.
type CacheEntry struct {
	Schedule    WeeklySchedule `json:"schedule"`
	HoursParsed bool           `json:"hours_parsed"`
	Timezone    string         `json:"timezone"`
	HoursHash   uint64         `json:"hours_hash"`
	ExpiresAt   time.Time      `json:"expires_at"`
}

// Expired reports whether the entry is past its TTL at now
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}
