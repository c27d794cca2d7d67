package services

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/kosherdirectory/discovery/internal/domain/entities"
)

// Hours formats reported in ParseResult.Format
const (
	HoursFormatStructured = "structured"
	HoursFormatText       = "text"
)

const dayToken = `(?:sun(?:day)?|mon(?:day)?|tue(?:sday|s)?|wed(?:nesday)?|thu(?:rsday|rs|r)?|fri(?:day)?|sat(?:urday)?)s?\.?`

const timeToken = `(\d{1,2})(?::(\d{2}))?(?:\s*([ap])\.?(?:\s*m\.?)?)?`

var (
	// segmentRegexp splits a segment into an optional day prefix and a body:
	// "Mon-Fri: 9AM-5PM", "Daily 24 hours", "Monday 9:00-22:00".
	segmentRegexp = regexp.MustCompile(`(?i)^(?:(` + dayToken + `)(?:\s*(?:-|–|—|to|through|thru)\s*(` + dayToken + `))?|(daily|every\s*day|all\s*week))?\s*:?\s*(.*)$`)

	rangeRegexp   = regexp.MustCompile(`(?i)^` + timeToken + `\s*(?:-|–|—|to)\s*` + timeToken + `$`)
	allDayRegexp  = regexp.MustCompile(`(?i)^(?:open\s*)?(?:24\s*hours?|24\s*/\s*7)(?:\s*a\s*day)?$`)
	allDayLoose   = regexp.MustCompile(`(?i)24\s*hours?`)
	closedRegexp  = regexp.MustCompile(`(?i)^closed$`)
	segmentSplit  = regexp.MustCompile(`[\n\r;|,]+`)
	noonRegexp    = regexp.MustCompile(`(?i)\bnoon\b`)
	midnightRegex = regexp.MustCompile(`(?i)\bmidnight\b`)
)

// ParseResult is the detailed outcome of parsing one hours input
type ParseResult struct {
	Schedule entities.WeeklySchedule
	OK       bool
	Format   string
	// Unmatched lists the input segments no pattern accepted
	Unmatched []string
}

// HoursParser turns raw hours text or structured hours into a
// WeeklySchedule. It holds no state and is safe for concurrent use.
type HoursParser struct{}

// NewHoursParser creates a new hours parser
func NewHoursParser() *HoursParser {
	return &HoursParser{}
}

// Parse returns the schedule and whether any part of the input was
// understood. Days the input never mentions are left unspecified.
func (p *HoursParser) Parse(input entities.HoursInput) (entities.WeeklySchedule, bool) {
	res := p.ParseDetailed(input)
	return res.Schedule, res.OK
}

// ParseDetailed is Parse plus the input segments that were rejected
func (p *HoursParser) ParseDetailed(input entities.HoursInput) ParseResult {
	if len(input.Structured) > 0 {
		return p.parseStructured(input.Structured)
	}

	text := strings.TrimSpace(input.Text)
	if strings.HasPrefix(text, "[") {
		var structured []entities.StructuredHours
		if err := json.Unmarshal([]byte(text), &structured); err == nil && len(structured) > 0 {
			return p.parseStructured(structured)
		}
	}
	return p.parseText(text)
}

func (p *HoursParser) parseStructured(entries []entities.StructuredHours) ParseResult {
	var (
		schedule entities.WeeklySchedule
		matched  int
		res      = ParseResult{Format: HoursFormatStructured}
	)

	for _, e := range entries {
		day, ok := weekdayFromToken(e.Day)
		if !ok {
			res.Unmatched = append(res.Unmatched, e.Day)
			continue
		}

		openRaw, closeRaw := strings.TrimSpace(e.Open), strings.TrimSpace(e.Close)
		if (openRaw == "" && closeRaw == "") || strings.EqualFold(openRaw, "closed") {
			schedule[day] = entities.ClosedDay()
			matched++
			continue
		}

		open, okOpen := parseHHMM(openRaw, false)
		closeMin, okClose := parseHHMM(closeRaw, true)
		if !okOpen || !okClose {
			res.Unmatched = append(res.Unmatched, e.Day+" "+openRaw+"-"+closeRaw)
			continue
		}
		if open == 0 && (closeMin == 0 || closeMin == entities.MinutesPerDay-1) {
			schedule[day] = entities.OpenAllDay()
		} else {
			schedule[day] = entities.NewRange(open, closeMin)
		}
		matched++
	}

	return finish(res, schedule, matched)
}

func (p *HoursParser) parseText(text string) ParseResult {
	var (
		schedule entities.WeeklySchedule
		matched  int
		pending  []entities.Weekday
		res      = ParseResult{Format: HoursFormatText}
	)

	text = strings.Map(normalizeSpace, text)
	text = noonRegexp.ReplaceAllString(text, "12:00 PM")
	text = midnightRegex.ReplaceAllString(text, "12:00 AM")

	for _, segment := range segmentSplit.Split(text, -1) {
		segment = strings.Trim(segment, " \t-•*")
		if segment == "" {
			continue
		}

		days, body, ok := splitSegment(segment)
		if !ok {
			res.Unmatched = append(res.Unmatched, segment)
			continue
		}

		if body == "" {
			if len(days) == 0 {
				res.Unmatched = append(res.Unmatched, segment)
				continue
			}
			// "Mon, Wed, Fri 9AM-5PM": hold the days for the next segment.
			pending = append(pending, days...)
			continue
		}

		hours, isAllDay, ok := parseBody(body)
		if !ok {
			res.Unmatched = append(res.Unmatched, segment)
			pending = nil
			continue
		}

		days = append(pending, days...)
		pending = nil
		if len(days) == 0 {
			if !isAllDay {
				res.Unmatched = append(res.Unmatched, segment)
				continue
			}
			days = allWeekdays()
		}

		for _, d := range days {
			schedule[d] = hours
		}
		matched++
	}

	for _, d := range pending {
		res.Unmatched = append(res.Unmatched, d.String())
	}

	return finish(res, schedule, matched)
}

func finish(res ParseResult, schedule entities.WeeklySchedule, matched int) ParseResult {
	if matched == 0 {
		res.Schedule = entities.ClosedSchedule()
		res.OK = false
		return res
	}
	res.Schedule = schedule
	res.OK = true
	return res
}

// splitSegment separates the leading day prefix from the hours body. ok is
// false when the segment does not have the day/body shape at all.
func splitSegment(segment string) ([]entities.Weekday, string, bool) {
	m := segmentRegexp.FindStringSubmatch(segment)
	if m == nil {
		return nil, "", false
	}
	body := strings.TrimSpace(m[4])

	switch {
	case m[3] != "":
		return allWeekdays(), body, true
	case m[1] == "":
		return nil, body, true
	}

	start, ok := weekdayFromToken(m[1])
	if !ok {
		return nil, "", false
	}
	if m[2] == "" {
		return []entities.Weekday{start}, body, true
	}
	end, ok := weekdayFromToken(m[2])
	if !ok {
		return nil, "", false
	}
	return expandDayRange(start, end), body, true
}

// parseBody reads "Closed", "Open 24 hours", or a single time range.
func parseBody(body string) (entities.DayHours, bool, bool) {
	switch {
	case closedRegexp.MatchString(body):
		return entities.ClosedDay(), false, true
	case allDayRegexp.MatchString(body):
		return entities.OpenAllDay(), true, true
	}

	m := rangeRegexp.FindStringSubmatch(body)
	if m == nil {
		// "Open daily 24 hours", "24 Hours Daily"
		if allDayLoose.MatchString(body) {
			return entities.OpenAllDay(), true, true
		}
		return entities.DayHours{}, false, false
	}
	openHasMeridiem, closeHasMeridiem := m[3] != "", m[6] != ""
	if openHasMeridiem != closeHasMeridiem {
		return entities.DayHours{}, false, false
	}

	open, ok := clockMinutes(m[1], m[2], m[3], false)
	if !ok {
		return entities.DayHours{}, false, false
	}
	closeMin, ok := clockMinutes(m[4], m[5], m[6], true)
	if !ok {
		return entities.DayHours{}, false, false
	}
	return entities.NewRange(open, closeMin), false, true
}

// normalizeSpace folds Unicode spaces (NBSP, narrow and thin spaces) to
// ASCII so the patterns below see them; line breaks are kept for splitting.
func normalizeSpace(r rune) rune {
	if r != '\n' && r != '\r' && unicode.IsSpace(r) {
		return ' '
	}
	return r
}

// clockMinutes converts one time token to minutes since midnight. Without a
// meridiem the token must be 24-hour "H:MM"; "24:00" is accepted as a
// closing time and means midnight.
func clockMinutes(hourStr, minStr, meridiem string, closing bool) (int, bool) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return 0, false
	}
	minute := 0
	if minStr != "" {
		if minute, err = strconv.Atoi(minStr); err != nil || minute > 59 {
			return 0, false
		}
	}

	if meridiem != "" {
		if hour < 1 || hour > 12 {
			return 0, false
		}
		hour %= 12
		if strings.EqualFold(meridiem, "p") {
			hour += 12
		}
		return hour*60 + minute, true
	}

	if minStr == "" {
		return 0, false
	}
	if hour == 24 && minute == 0 && closing {
		return 0, true
	}
	if hour > 23 {
		return 0, false
	}
	return hour*60 + minute, true
}

// parseHHMM reads structured "HHMM" (or "HH:MM") times.
func parseHHMM(s string, closing bool) (int, bool) {
	s = strings.ReplaceAll(s, ":", "")
	if len(s) < 3 || len(s) > 4 {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, false
	}
	hour, minute := v/100, v%100
	if minute > 59 {
		return 0, false
	}
	if hour == 24 && minute == 0 && closing {
		return 0, true
	}
	if hour > 23 {
		return 0, false
	}
	return hour*60 + minute, true
}

func weekdayFromToken(token string) (entities.Weekday, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	if len(t) < 3 {
		return 0, false
	}
	switch t[:3] {
	case "sun":
		return entities.Sunday, true
	case "mon":
		return entities.Monday, true
	case "tue":
		return entities.Tuesday, true
	case "wed":
		return entities.Wednesday, true
	case "thu":
		return entities.Thursday, true
	case "fri":
		return entities.Friday, true
	case "sat":
		return entities.Saturday, true
	}
	return 0, false
}

// expandDayRange lists start..end inclusive, wrapping past Saturday.
func expandDayRange(start, end entities.Weekday) []entities.Weekday {
	days := []entities.Weekday{start}
	for d := start; d != end; {
		d = d.Add(1)
		days = append(days, d)
	}
	return days
}

func allWeekdays() []entities.Weekday {
	return expandDayRange(entities.Sunday, entities.Saturday)
}
