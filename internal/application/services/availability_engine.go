package services

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/kosherdirectory/discovery/internal/domain/entities"
	"github.com/kosherdirectory/discovery/internal/domain/providers"
	"github.com/kosherdirectory/discovery/internal/infrastructure/observability"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MissingDayPolicy decides how a day the hours never mention is evaluated
type MissingDayPolicy int

const (
	// MissingDayAsClosed treats unmentioned days as closed
	MissingDayAsClosed MissingDayPolicy = iota
	// MissingDayAsUnknown reports unmentioned days as unknown
	MissingDayAsUnknown
)

// AvailabilityEngine answers "is this restaurant open at this instant".
// Parsed hours and resolved timezones are memoized in the ScheduleCache;
// everything else is recomputed per call.
type AvailabilityEngine struct {
	parser   *HoursParser
	resolver *TimezoneResolver
	cache    providers.ScheduleCache
	policy   MissingDayPolicy
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// EngineOption configures an AvailabilityEngine
type EngineOption func(*AvailabilityEngine)

// WithMissingDayPolicy sets how unmentioned days are evaluated
func WithMissingDayPolicy(p MissingDayPolicy) EngineOption {
	return func(e *AvailabilityEngine) { e.policy = p }
}

// WithMetrics records cache and parse outcomes
func WithMetrics(m *observability.Metrics) EngineOption {
	return func(e *AvailabilityEngine) { e.metrics = m }
}

// WithLogger replaces the global logger
func WithLogger(l zerolog.Logger) EngineOption {
	return func(e *AvailabilityEngine) { e.logger = l }
}

// NewAvailabilityEngine creates an engine. cache may be nil, in which case
// every call reparses.
func NewAvailabilityEngine(parser *HoursParser, resolver *TimezoneResolver, cache providers.ScheduleCache, opts ...EngineOption) *AvailabilityEngine {
	e := &AvailabilityEngine{
		parser:   parser,
		resolver: resolver,
		cache:    cache,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", "availability_engine").Logger()
	return e
}

// StatusFor evaluates a catalog record at nowUTC, using cached parse
// results when the record's hours are unchanged.
func (e *AvailabilityEngine) StatusFor(r *entities.Restaurant, nowUTC time.Time) entities.AvailabilityStatus {
	entry := e.resolveHours(r)
	status := e.evaluate(entry.Schedule, entry.HoursParsed, entry.Timezone, nowUTC)

	if !entry.HoursParsed {
		if r.Hours.IsEmpty() {
			status.Reason = "No hours listed"
		}
		if r.StoredStatus != "" {
			status.Reason += fmt.Sprintf(" (last reported %s)", r.StoredStatus)
		}
	}
	return status
}

// Evaluate computes the status of a parsed schedule in timezone at nowUTC.
// An unloadable timezone is evaluated as UTC.
func (e *AvailabilityEngine) Evaluate(schedule entities.WeeklySchedule, timezone string, nowUTC time.Time) entities.AvailabilityStatus {
	return e.evaluate(schedule, true, timezone, nowUTC)
}

// Warm parses and caches r's hours without evaluating them. It reports
// whether the hours were understood.
func (e *AvailabilityEngine) Warm(r *entities.Restaurant) bool {
	return e.resolveHours(r).HoursParsed
}

// Invalidate drops any cached parse for restaurantID
func (e *AvailabilityEngine) Invalidate(restaurantID string) {
	if e.cache != nil {
		e.cache.Delete(restaurantID)
	}
}

func (e *AvailabilityEngine) resolveHours(r *entities.Restaurant) entities.CacheEntry {
	ctx := context.Background()
	hash := HoursHash(r)
	cacheable := e.cache != nil && r.ID != ""

	if cacheable {
		entry, ok := e.cache.Get(r.ID)
		switch {
		case ok && entry.HoursHash == hash:
			e.metrics.RecordCacheHit(ctx)
			return entry
		case ok:
			e.metrics.RecordCacheMiss(ctx, "stale")
			e.logger.Debug().Str("restaurant_id", r.ID).Msg("Hours changed, reparsing")
		default:
			e.metrics.RecordCacheMiss(ctx, "absent")
		}
	}

	parsed := e.parser.ParseDetailed(r.Hours)
	switch {
	case !parsed.OK && !r.Hours.IsEmpty():
		e.metrics.RecordParseFailure(ctx)
		e.logger.Warn().
			Str("restaurant_id", r.ID).
			Strs("unmatched", parsed.Unmatched).
			Msg("Could not parse hours, status will be unknown")
	case len(parsed.Unmatched) > 0:
		e.logger.Debug().
			Str("restaurant_id", r.ID).
			Strs("unmatched", parsed.Unmatched).
			Msg("Ignored unrecognized hours segments")
	}

	tz, ok := e.resolver.ResolveFor(r.Timezone, r.State)
	if !ok {
		e.metrics.RecordTimezoneFallback(ctx)
	}

	entry := entities.CacheEntry{
		Schedule:    parsed.Schedule,
		HoursParsed: parsed.OK,
		Timezone:    tz,
		HoursHash:   hash,
	}
	if cacheable {
		e.cache.Set(r.ID, entry)
	}
	return entry
}

func (e *AvailabilityEngine) evaluate(schedule entities.WeeklySchedule, parsed bool, timezone string, nowUTC time.Time) entities.AvailabilityStatus {
	loc, tzName := e.resolver.Location(timezone)
	local := nowUTC.In(loc)

	status := entities.AvailabilityStatus{
		State:            entities.StateUnknown,
		CurrentTimeLocal: local,
		Timezone:         tzName,
		HoursParsed:      parsed,
	}
	if !parsed {
		status.Reason = "Hours could not be parsed"
		return status
	}

	day := entities.WeekdayOf(local)
	minute := local.Hour()*60 + local.Minute()
	today := e.effective(schedule.Day(day))
	yesterday := e.effective(schedule.Day(day.Prev()))

	if open, reason := openAt(today, yesterday, minute); open {
		status.IsOpen = true
		status.State = entities.StateOpen
		status.Reason = reason
		return status
	}

	if today.Kind == entities.DayUnspecified {
		status.Reason = "No hours listed for " + day.String()
		return status
	}

	status.State = entities.StateClosed
	next, offset, ok := e.nextOpening(schedule, local, day, minute)
	if !ok {
		status.Reason = "Closed"
		return status
	}
	nextUTC := next.UTC()
	status.NextOpenTime = &nextUTC
	status.Reason = closedReason(next, offset)
	return status
}

// openAt applies today's hours plus any overnight spill from yesterday.
func openAt(today, yesterday entities.DayHours, minute int) (bool, string) {
	if today.Kind == entities.DayOpenAllDay {
		return true, "Open 24 hours"
	}
	if yesterday.IsOvernight() && minute < yesterday.Close {
		return true, "Open until " + entities.FormatMinute(yesterday.Close)
	}
	if today.Kind != entities.DayRange {
		return false, ""
	}

	var open bool
	if today.IsOvernight() {
		open = minute >= today.Open || minute < today.Close
	} else {
		open = minute >= today.Open && minute < today.Close
	}
	if !open {
		return false, ""
	}
	return true, "Open until " + entities.FormatMinute(today.Close)
}

// nextOpening scans up to a week ahead for the next opening after local.
func (e *AvailabilityEngine) nextOpening(schedule entities.WeeklySchedule, local time.Time, day entities.Weekday, minute int) (time.Time, int, bool) {
	for offset := 0; offset <= entities.DaysPerWeek; offset++ {
		h := e.effective(schedule.Day(day.Add(offset)))

		var openMinute int
		switch h.Kind {
		case entities.DayOpenAllDay:
			openMinute = 0
		case entities.DayRange:
			openMinute = h.Open
		default:
			continue
		}
		if offset == 0 && openMinute <= minute {
			continue
		}

		next := time.Date(local.Year(), local.Month(), local.Day()+offset,
			openMinute/60, openMinute%60, 0, 0, local.Location())
		return next, offset, true
	}
	return time.Time{}, 0, false
}

func (e *AvailabilityEngine) effective(h entities.DayHours) entities.DayHours {
	if h.Kind == entities.DayUnspecified && e.policy == MissingDayAsClosed {
		return entities.ClosedDay()
	}
	return h
}

func closedReason(next time.Time, offset int) string {
	at := entities.FormatMinute(next.Hour()*60 + next.Minute())
	switch offset {
	case 0:
		return "Closed, opens at " + at
	case 1:
		return "Closed, opens tomorrow at " + at
	}
	return fmt.Sprintf("Closed, opens %s at %s", entities.WeekdayOf(next), at)
}

// HoursHash fingerprints everything a cached entry was derived from.
func HoursHash(r *entities.Restaurant) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(r.Hours.Text)
	for _, s := range r.Hours.Structured {
		_, _ = d.WriteString("\x00" + s.Day + "\x1f" + s.Open + "\x1f" + s.Close)
	}
	_, _ = d.WriteString("\x00" + r.State + "\x00" + r.Timezone)
	return d.Sum64()
}
