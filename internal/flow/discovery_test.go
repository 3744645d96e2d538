package flow

import (
	"context"
	"testing"

	"github.com/slotline/slotline/internal/models"
	"github.com/slotline/slotline/internal/schedule"
	"github.com/slotline/slotline/internal/session"
	"github.com/slotline/slotline/internal/store"
)

func newScanEngine(slotsByDate map[string][]string) *Engine {
	mgr := session.NewManager(store.NewInMemoryStore(), session.WithClock(testClock()))
	return NewEngine(mgr, &fakeProvider{slotsByDate: slotsByDate}, nil, nil, WithClock(testClock()))
}

func scanSession(start string) *models.Session {
	sess := &models.Session{
		ID:     "s-1",
		UserID: "u-1",
		Step:   models.StepAwaitSlot,
		Selection: models.Selection{
			ServiceID:       "svc-1",
			ServiceCategory: models.CategoryIndividual,
			StaffID:         "stf-1",
		},
	}
	resetScan(sess, start)
	return sess
}

func TestFindNextAvailablePagesAcrossDays(t *testing.T) {
	// 15 slots spread over two days: a full first page and a short second.
	slots := map[string][]string{
		"10-Mar-2026": {"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00"},
		"12-Mar-2026": {"14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00", "17:30"},
	}
	e := newScanEngine(slots)
	sess := scanSession("10-Mar-2026")

	first, hasMore, err := e.findNextAvailable(context.Background(), sess, SlotPageSize, DefaultMaxScanDays)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != SlotPageSize || !hasMore {
		t.Fatalf("first page: got %d slots hasMore=%v", len(first), hasMore)
	}
	// The page crosses the empty 11-Mar into 12-Mar.
	if first[6].Date != "10-Mar-2026" || first[7].Date != "12-Mar-2026" {
		t.Errorf("page did not cross days: %+v", first)
	}

	second, hasMore, err := e.findNextAvailable(context.Background(), sess, SlotPageSize, DefaultMaxScanDays)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 6 || hasMore {
		t.Fatalf("second page: got %d slots hasMore=%v", len(second), hasMore)
	}
	// Resumption continues exactly after the last returned slot.
	if second[0].Time != "15:00" || second[0].Date != "12-Mar-2026" {
		t.Errorf("unexpected resume point: %+v", second[0])
	}

	seen := map[string]bool{}
	for _, s := range append(first, second...) {
		if seen[s.ID] {
			t.Errorf("duplicate slot id %q across pages", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestFindNextAvailableStopsAtScanWindow(t *testing.T) {
	e := newScanEngine(nil)
	sess := scanSession("10-Mar-2026")

	calls := 0
	e.provider = providerFunc(func(q schedule.SlotQuery) []string {
		calls++
		return nil
	})

	slots, hasMore, err := e.findNextAvailable(context.Background(), sess, SlotPageSize, DefaultMaxScanDays)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 0 || hasMore {
		t.Fatalf("empty window must yield nothing, got %d hasMore=%v", len(slots), hasMore)
	}
	if calls != DefaultMaxScanDays {
		t.Errorf("expected %d day lookups, got %d", DefaultMaxScanDays, calls)
	}
}

func TestFindNextAvailableHonorsMaxDays(t *testing.T) {
	e := newScanEngine(nil)
	sess := scanSession("10-Mar-2026")

	calls := 0
	e.provider = providerFunc(func(q schedule.SlotQuery) []string {
		calls++
		return nil
	})

	if _, _, err := e.findNextAvailable(context.Background(), sess, SlotPageSize, 2); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("expected 2 day lookups, got %d", calls)
	}
}

func TestFindNextAvailableRequiresSeededCursor(t *testing.T) {
	e := newScanEngine(nil)
	sess := scanSession("10-Mar-2026")
	sess.Cursors.SlotScan = models.ScanCursor{}

	if _, _, err := e.findNextAvailable(context.Background(), sess, SlotPageSize, DefaultMaxScanDays); err == nil {
		t.Fatal("unseeded cursor must error")
	}
}

// providerFunc adapts a slot lookup function to the SchedulingProvider
// surface for scan tests.
type providerFunc func(q schedule.SlotQuery) []string

func (f providerFunc) ListServices(ctx context.Context, sess *models.Session) ([]models.Service, error) {
	return nil, nil
}

func (f providerFunc) ListStaff(ctx context.Context, sess *models.Session, serviceID string) ([]models.Staff, error) {
	return nil, nil
}

func (f providerFunc) AvailableSlots(ctx context.Context, sess *models.Session, q schedule.SlotQuery) ([]string, error) {
	return f(q), nil
}

func (f providerFunc) CreateAppointment(ctx context.Context, sess *models.Session, req schedule.AppointmentRequest) (models.BookingResult, error) {
	return models.BookingResult{}, nil
}

func (f providerFunc) CancelAppointment(ctx context.Context, sess *models.Session, ref string) (models.BookingResult, error) {
	return models.BookingResult{}, nil
}

func (f providerFunc) RescheduleAppointment(ctx context.Context, sess *models.Session, ref, date, start string) (models.BookingResult, error) {
	return models.BookingResult{}, nil
}

func (f providerFunc) FindAppointments(ctx context.Context, sess *models.Session, contact string) ([]models.Appointment, error) {
	return nil, nil
}
