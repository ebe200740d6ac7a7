package httpapi

import (
	"net/http"
	"time"

	"github.com/smartstudy/companion/internal/apperr"
	"github.com/smartstudy/companion/internal/calendar"
	"github.com/smartstudy/companion/internal/timekit"
)

const (
	calendarFeedLookbackDays = 7
	calendarFeedLookaheadDays = 28
)

// handleCalendarFeed implements GET /schedule/calendar/feed?token=...,
// the one public (unauthenticated) endpoint: the token in the query
// string is itself the credential, per spec §4.7. An invalid token
// returns 404 so its validity is never leaked, per spec §7.
func (s *Server) handleCalendarFeed(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, apperr.NotFound("calendar feed not found"))
		return
	}

	ctx := r.Context()
	user, err := s.Store.GetUserByCalendarToken(ctx, token)
	if err != nil {
		writeError(w, apperr.NotFound("calendar feed not found"))
		return
	}

	s.writeCalendarFeed(w, r, user.ID)
}

// handleCalendarDownload implements GET /schedule/calendar/download,
// the authenticated equivalent of the public feed (same document,
// reached via the bearer token instead of the calendar_token).
func (s *Server) handleCalendarDownload(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	s.writeCalendarFeed(w, r, userID)
}

func (s *Server) writeCalendarFeed(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()
	ref := time.Now().UTC()

	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	tz, err := timekit.LoadLocation(user.Timezone)
	if err != nil {
		writeError(w, apperr.Validationf("invalid stored timezone %q: %v", user.Timezone, err))
		return
	}

	from := ref.AddDate(0, 0, -calendarFeedLookbackDays)
	to := ref.AddDate(0, 0, calendarFeedLookaheadDays)
	sessions, err := s.Store.ListSessionsInRange(ctx, userID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	constraints, err := s.Store.ListConstraints(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	exporter := calendar.Exporter{Domain: s.CalendarDomain}
	body := exporter.Export(sessions, constraints, ref, tz)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// handleRotateCalendarToken implements POST /schedule/calendar/token.
func (s *Server) handleRotateCalendarToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)

	token, err := s.Persistence.RotateCalendarToken(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"calendar_token": token})
}

// handleDeleteCalendarToken implements DELETE /schedule/calendar/token.
func (s *Server) handleDeleteCalendarToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)

	if err := s.Persistence.ClearCalendarToken(ctx, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetCalendarToken implements GET /schedule/calendar/token: it
// reports only whether a token is set, never the token value itself,
// matching spec §7's "token validity is never leaked" policy.
func (s *Server) handleGetCalendarToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)

	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"calendar_token_set": user.CalendarTokenSet()})
}
