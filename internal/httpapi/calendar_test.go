package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartstudy/companion/internal/coach"
	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/persistence"
	"github.com/smartstudy/companion/internal/storage"
	"github.com/smartstudy/companion/internal/timekit"
)

// fakeProvider is a minimal storage.Provider double: just enough of
// each method to drive the calendar feed end-to-end through Router(),
// the same narrow-double style persistence_test.go uses for
// PersistenceProtocol.
type fakeProvider struct {
	users map[string]models.User
	byToken map[string]string // calendar token -> user ID
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{users: map[string]models.User{}, byToken: map[string]string{}}
}

func (f *fakeProvider) addUser(u models.User) {
	f.users[u.ID] = u
	if u.CalendarToken != "" {
		f.byToken[u.CalendarToken] = u.ID
	}
}

func (f *fakeProvider) BeginTx(ctx context.Context) (storage.Tx, error) { return nil, nil }
func (f *fakeProvider) GetUser(ctx context.Context, userID string) (models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return models.User{}, storage.ErrNotFound{What: "user"}
	}
	return u, nil
}
func (f *fakeProvider) GetUserByCalendarToken(ctx context.Context, token string) (models.User, error) {
	userID, ok := f.byToken[token]
	if !ok {
		return models.User{}, storage.ErrNotFound{What: "user"}
	}
	return f.users[userID], nil
}
func (f *fakeProvider) ListSubjects(ctx context.Context, userID string) ([]models.Subject, error) {
	return nil, nil
}
func (f *fakeProvider) ListSchedulableTasks(ctx context.Context, userID string) ([]models.Task, error) {
	return nil, nil
}
func (f *fakeProvider) GetTask(ctx context.Context, userID, taskID string) (models.Task, error) {
	return models.Task{}, storage.ErrNotFound{What: "task"}
}
func (f *fakeProvider) ListConstraints(ctx context.Context, userID string) ([]models.ScheduleConstraint, error) {
	return nil, nil
}
func (f *fakeProvider) GetEnergyLevels(ctx context.Context, userID string, from, to timekit.LocalDate) (map[string]models.EnergyLevel, error) {
	return nil, nil
}
func (f *fakeProvider) ListSessionsInRange(ctx context.Context, userID string, from, to time.Time) ([]models.StudySession, error) {
	return nil, nil
}
func (f *fakeProvider) ListSessionsForTask(ctx context.Context, taskID string) ([]models.StudySession, error) {
	return nil, nil
}
func (f *fakeProvider) GetSessionForUser(ctx context.Context, userID, sessionID string) (models.StudySession, error) {
	return models.StudySession{}, storage.ErrNotFound{What: "session"}
}
func (f *fakeProvider) GetReflection(ctx context.Context, userID, date string) (models.DailyReflection, bool, error) {
	return models.DailyReflection{}, false, nil
}
func (f *fakeProvider) RecentCompletionStats(ctx context.Context, userID string, since time.Time) (int, int, error) {
	return 0, 0, nil
}
func (f *fakeProvider) Close() error { return nil }

func TestHandleCalendarFeed_UnknownTokenReturns404(t *testing.T) {
	store := newFakeProvider()
	s := New(store, persistence.New(store), coach.NoopAdapter{}, "test-secret", []string{"*"}, "test.invalid")

	req := httptest.NewRequest(http.MethodGet, "/schedule/calendar/feed?token=bogus", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown token, got %d", rr.Code)
	}
}

func TestHandleCalendarFeed_MissingTokenReturns404(t *testing.T) {
	store := newFakeProvider()
	s := New(store, persistence.New(store), coach.NoopAdapter{}, "test-secret", []string{"*"}, "test.invalid")

	req := httptest.NewRequest(http.MethodGet, "/schedule/calendar/feed", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing token, got %d", rr.Code)
	}
}

func TestHandleCalendarFeed_ValidTokenReturnsCalendarDocument(t *testing.T) {
	store := newFakeProvider()
	store.addUser(models.User{ID: "user-1", Timezone: "UTC", CalendarToken: "tok-123"})
	s := New(store, persistence.New(store), coach.NoopAdapter{}, "test-secret", []string{"*"}, "test.invalid")

	req := httptest.NewRequest(http.MethodGet, "/schedule/calendar/feed?token=tok-123", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "BEGIN:VCALENDAR") {
		t.Errorf("expected a VCALENDAR document, got %s", rr.Body.String())
	}
}

func TestHandleListSessions_RequiresAuth(t *testing.T) {
	store := newFakeProvider()
	s := New(store, persistence.New(store), coach.NoopAdapter{}, "test-secret", []string{"*"}, "test.invalid")

	req := httptest.NewRequest(http.MethodGet, "/schedule/sessions", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d", rr.Code)
	}
}
