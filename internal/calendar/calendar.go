// Package calendar implements the CalendarExporter: a hand-rolled RFC
// 5545 (iCalendar) encoder. No example repo or ecosystem dependency in
// the retrieved pack provides an iCalendar encoder, so this is the
// scheduler's one component built directly on the standard library,
// over strings.Builder in the teacher's plain-function style.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/timekit"
)

// Exporter renders sessions and constraints as an RFC 5545 calendar.
type Exporter struct {
	// Domain is the host part of every event UID, e.g. "studycompanion.app".
	Domain string
}

const dtFormat = "20060102T150405Z"

// Export renders sessions (already filtered by the caller to
// [now-7d, now+28d] per spec §4.7) and the user's full constraint set
// as one VCALENDAR document.
func (e Exporter) Export(sessions []models.StudySession, constraints []models.ScheduleConstraint, now time.Time, tz *time.Location) string {
	var b strings.Builder
	writeLine(&b, "BEGIN:VCALENDAR")
	writeLine(&b, "VERSION:2.0")
	writeLine(&b, "PRODID:-//Smart Study Companion//Calendar Export//EN")
	writeLine(&b, "CALSCALE:GREGORIAN")
	writeLine(&b, "X-WR-TIMEZONE:"+tz.String())
	writeLine(&b, "X-PUBLISHED-TTL:PT1H")

	sorted := make([]models.StudySession, len(sessions))
	copy(sorted, sessions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartTime.Before(sorted[j].StartTime) })

	for _, s := range sorted {
		e.writeSessionEvent(&b, s, now)
	}
	for _, c := range constraints {
		e.writeConstraintEvent(&b, c, now, tz)
	}

	writeLine(&b, "END:VCALENDAR")
	return b.String()
}

func (e Exporter) writeSessionEvent(b *strings.Builder, s models.StudySession, now time.Time) {
	writeLine(b, "BEGIN:VEVENT")
	writeLine(b, "UID:"+sessionUID(s.ID, e.Domain))
	writeLine(b, "DTSTAMP:"+now.UTC().Format(dtFormat))
	writeLine(b, "DTSTART:"+s.StartTime.UTC().Format(dtFormat))
	writeLine(b, "DTEND:"+s.EndTime.UTC().Format(dtFormat))
	writeLine(b, "SUMMARY:"+escapeText(sessionSummary(s)))
	writeLine(b, "STATUS:"+string(sessionEventStatus(s.Status)))
	writeLine(b, "END:VEVENT")
}

func sessionUID(id, domain string) string {
	return fmt.Sprintf("ssc-session-%s@%s", id, domain)
}

func sessionSummary(s models.StudySession) string {
	if s.Notes != "" {
		return s.Notes
	}
	return "Study session"
}

// eventStatus is the RFC 5545 STATUS property value for a VEVENT.
type eventStatus string

const (
	statusTentative eventStatus = "TENTATIVE"
	statusConfirmed eventStatus = "CONFIRMED"
	statusCancelled eventStatus = "CANCELLED"
)

// sessionEventStatus maps a session's lifecycle status to the RFC 5545
// STATUS property, per spec §4.7.
func sessionEventStatus(s models.SessionStatus) eventStatus {
	switch s {
	case models.SessionPlanned:
		return statusTentative
	case models.SessionInProgress, models.SessionCompleted, models.SessionPartial:
		return statusConfirmed
	case models.SessionSkipped:
		return statusCancelled
	default:
		return statusTentative
	}
}

func (e Exporter) writeConstraintEvent(b *strings.Builder, c models.ScheduleConstraint, now time.Time, tz *time.Location) {
	writeLine(b, "BEGIN:VEVENT")
	writeLine(b, "UID:"+fmt.Sprintf("ssc-constraint-%s@%s", c.ID, e.Domain))
	writeLine(b, "DTSTAMP:"+now.UTC().Format(dtFormat))
	writeLine(b, "SUMMARY:"+escapeText(constraintSummary(c)))

	if c.IsRecurring() {
		start, end, ok := nextRecurringOccurrence(c, now, tz)
		if !ok {
			writeLine(b, "END:VEVENT")
			return
		}
		writeLine(b, "DTSTART:"+start.UTC().Format(dtFormat))
		writeLine(b, "DTEND:"+end.UTC().Format(dtFormat))
		writeLine(b, "RRULE:FREQ=WEEKLY;BYDAY="+byDayList(c.DaysOfWeek))
	} else if c.StartDatetime != nil && c.EndDatetime != nil {
		writeLine(b, "DTSTART:"+c.StartDatetime.UTC().Format(dtFormat))
		writeLine(b, "DTEND:"+c.EndDatetime.UTC().Format(dtFormat))
	}

	writeLine(b, "END:VEVENT")
}

func constraintSummary(c models.ScheduleConstraint) string {
	switch c.Type {
	case models.ConstraintClass:
		return "Class"
	case models.ConstraintBusy:
		return "Busy"
	case models.ConstraintNoStudy:
		return "No study"
	case models.ConstraintBlocked:
		return "Blocked"
	default:
		return "Blocked"
	}
}

// nextRecurringOccurrence finds the earliest local day on or after now
// that matches one of c's days of week, and returns its UTC interval,
// per spec §4.7's "DTSTART on the next matching local day".
func nextRecurringOccurrence(c models.ScheduleConstraint, now time.Time, tz *time.Location) (start, end time.Time, ok bool) {
	if len(c.DaysOfWeek) == 0 {
		return time.Time{}, time.Time{}, false
	}
	today := timekit.LocalDateOf(now, tz)
	for offset := 0; offset < 7; offset++ {
		date := today.AddDays(offset)
		wd := models.SpecWeekday(dateWeekday(date))
		if containsInt(c.DaysOfWeek, wd) {
			s, e, err := timekit.WindowToUTCRange(date, c.StartTime, c.EndTime, tz)
			if err != nil {
				continue
			}
			return s, e, true
		}
	}
	return time.Time{}, time.Time{}, false
}

func dateWeekday(d timekit.LocalDate) time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

var byDayCodes = map[int]string{0: "MO", 1: "TU", 2: "WE", 3: "TH", 4: "FR", 5: "SA", 6: "SU"}

func byDayList(days []int) string {
	codes := make([]string, 0, len(days))
	sorted := append([]int(nil), days...)
	sort.Ints(sorted)
	for _, d := range sorted {
		if code, ok := byDayCodes[d]; ok {
			codes = append(codes, code)
		}
	}
	return strings.Join(codes, ",")
}

func escapeText(s string) string {
	r := strings.NewReplacer("\\", "\\\\", ";", "\\;", ",", "\\,", "\n", "\\n")
	return r.Replace(s)
}

// writeLine appends an unfolded content line plus CRLF, per RFC 5545's
// line terminator. Lines are not folded at 75 octets since no event
// text in this domain approaches that length.
func writeLine(b *strings.Builder, line string) {
	b.WriteString(line)
	b.WriteString("\r\n")
}
