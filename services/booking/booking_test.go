package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	lockRepo "salondesk/database/repository/lock"
	"salondesk/database/repository/memory"
	"salondesk/models"
	"salondesk/services/availability"
	"salondesk/services/events"
	"salondesk/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	monday     = "2025-03-10"
	customerID = "cust-1"
)

type fixture struct {
	svc       *DefaultBookingService
	dir       *memory.Directory
	appts     *memory.Appointments
	customers *memory.Customers
	events    *events.Recorder
}

func newFixture(t *testing.T, locks lockRepo.Locker) *fixture {
	t.Helper()
	dir := memory.NewDirectory()
	memory.SeedDemoSalon(dir)
	appts := memory.NewAppointments()
	customers := memory.NewCustomers()
	customers.Put(models.Customer{ID: customerID, SalonID: memory.DemoSalonID, Name: "Customer 4321", Phone: "+919812344321"})
	rec := &events.Recorder{}

	avail := availability.NewAvailabilityService(dir, appts, zap.NewNop())
	if locks == nil {
		locks = lockRepo.NewLocalLocker()
	}
	svc := NewBookingService(avail, appts, customers, locks, rec, zap.NewNop())
	svc.Now = func() time.Time { return time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, dir: dir, appts: appts, customers: customers, events: rec}
}

func haircutAt(start string) CreateRequest {
	return CreateRequest{
		SalonID:    memory.DemoSalonID,
		CustomerID: customerID,
		ServiceID:  memory.DemoServiceCut,
		Date:       monday,
		StartTime:  start,
	}
}

// grantAll never refuses, leaving the store's uniqueness as the only guard.
type grantAll struct{}

func (grantAll) TryLock(context.Context, string, string, time.Duration) (bool, error) { return true, nil }
func (grantAll) Refresh(context.Context, string, string, time.Duration) (bool, error) { return true, nil }
func (grantAll) Unlock(context.Context, string, string) error                         { return nil }

func TestTransitionTable(t *testing.T) {
	all := []models.AppointmentStatus{
		models.StatusPending, models.StatusConfirmed, models.StatusInProgress,
		models.StatusCompleted, models.StatusCancelled, models.StatusNoShow,
	}
	allowed := map[models.AppointmentStatus][]models.AppointmentStatus{
		models.StatusPending:    {models.StatusConfirmed, models.StatusCancelled, models.StatusNoShow},
		models.StatusConfirmed:  {models.StatusInProgress, models.StatusCancelled, models.StatusNoShow},
		models.StatusInProgress: {models.StatusCompleted, models.StatusCancelled},
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, contains(allowed[from], to), CanTransition(from, to), "%s -> %s", from, to)
		}
		assert.Equal(t, len(allowed[from]) == 0, IsTerminal(from), from)
	}
}

func contains(list []models.AppointmentStatus, s models.AppointmentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestCreate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, haircutAt("10:00"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, appt.Status)
	assert.Equal(t, memory.DemoStaffAsha, appt.StaffID)
	assert.Equal(t, "Asha", appt.StaffName)
	assert.Equal(t, "10:30", appt.EndTime)
	assert.Equal(t, 30, appt.Duration)
	assert.Equal(t, 300.0, appt.Price)
	assert.Equal(t, models.BookedViaDashboard, appt.BookedVia)

	evs := f.events.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeAppointmentCreated, evs[0].Type)

	// The booked start disappears for that staff member.
	res, err := f.svc.Availability.ComputeSlots(ctx, availability.Query{
		SalonID: memory.DemoSalonID, Date: monday, ServiceID: memory.DemoServiceCut, StaffID: memory.DemoStaffAsha,
	})
	require.NoError(t, err)
	for _, s := range res.Slots {
		assert.NotEqual(t, "10:00", s.StartTime)
	}
}

func TestCreate_PriceIsCopied(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, haircutAt("11:00"))
	require.NoError(t, err)

	f.dir.PutService(models.Service{ID: memory.DemoServiceCut, SalonID: memory.DemoSalonID, Name: "Haircut", Duration: 30, Price: 999, IsActive: true})
	stored, err := f.svc.Get(ctx, memory.DemoSalonID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, 300.0, stored.Price)
}

func TestCreate_Failures(t *testing.T) {
	tests := []struct {
		name string
		req  func() CreateRequest
		want error
	}{
		{
			name: "slot not on the grid",
			req:  func() CreateRequest { return haircutAt("10:15") },
			want: utils.ErrSlotUnavailable,
		},
		{
			name: "outside opening hours",
			req:  func() CreateRequest { return haircutAt("21:00") },
			want: utils.ErrSlotUnavailable,
		},
		{
			name: "closed day",
			req: func() CreateRequest {
				r := haircutAt("10:00")
				r.Date = "2025-03-09"
				return r
			},
			want: utils.ErrSlotUnavailable,
		},
		{
			name: "unknown customer",
			req: func() CreateRequest {
				r := haircutAt("10:00")
				r.CustomerID = "nobody"
				return r
			},
			want: utils.ErrNotFound,
		},
		{
			name: "unknown service",
			req: func() CreateRequest {
				r := haircutAt("10:00")
				r.ServiceID = "nope"
				return r
			},
			want: utils.ErrNotFound,
		},
		{
			name: "staff does not offer service",
			req: func() CreateRequest {
				r := haircutAt("10:00")
				r.StaffID = memory.DemoStaffBela
				return r
			},
			want: utils.ErrInvalidInput,
		},
		{
			name: "terminal initial status",
			req: func() CreateRequest {
				r := haircutAt("10:00")
				r.InitialStatus = models.StatusCompleted
				return r
			},
			want: utils.ErrInvalidInput,
		},
		{
			name: "bad start time",
			req:  func() CreateRequest { return haircutAt("ten") },
			want: utils.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			_, err := f.svc.Create(context.Background(), tt.req())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreate_StaleSlotIsRejected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, haircutAt("10:00"))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, haircutAt("10:00"))
	assert.ErrorIs(t, err, utils.ErrSlotUnavailable)
}

func TestCreate_AutoAssignFallsThroughToNextStaff(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.dir.PutStaff(models.Staff{
		ID: "staff-cara", SalonID: memory.DemoSalonID, Name: "Cara", IsActive: true,
		Services: []string{memory.DemoServiceCut},
		WorkingHours: []models.StaffHours{
			{Day: models.Monday, IsAvailable: true, StartTime: "09:00", EndTime: "21:00"},
		},
	})

	first, err := f.svc.Create(ctx, haircutAt("10:00"))
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, haircutAt("10:00"))
	require.NoError(t, err)
	assert.NotEqual(t, first.StaffID, second.StaffID)

	_, err = f.svc.Create(ctx, haircutAt("10:00"))
	assert.ErrorIs(t, err, utils.ErrSlotUnavailable)
}

func TestCreate_ConcurrentIdenticalSlot(t *testing.T) {
	lockers := map[string]lockRepo.Locker{
		"slot claim":       lockRepo.NewLocalLocker(),
		"store uniqueness": grantAll{},
	}
	for name, locker := range lockers {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, locker)
			const attempts = 8

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				succeeded int
				errs      []error
			)
			start := make(chan struct{})
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					req := haircutAt("10:00")
					req.StaffID = memory.DemoStaffAsha
					_, err := f.svc.Create(context.Background(), req)
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						succeeded++
						return
					}
					errs = append(errs, err)
				}()
			}
			close(start)
			wg.Wait()

			assert.Equal(t, 1, succeeded)
			for _, err := range errs {
				assert.ErrorIs(t, err, utils.ErrSlotUnavailable)
			}
			blocking, err := f.appts.ListBlocking(context.Background(), memory.DemoSalonID, monday, nil)
			require.NoError(t, err)
			assert.Len(t, blocking, 1)
		})
	}
}

func TestTransition(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	appt, err := f.svc.Create(ctx, haircutAt("10:00"))
	require.NoError(t, err)

	for _, next := range []models.AppointmentStatus{models.StatusConfirmed, models.StatusInProgress, models.StatusCompleted} {
		appt, err = f.svc.Transition(ctx, memory.DemoSalonID, appt.ID, next, "")
		require.NoError(t, err)
		assert.Equal(t, next, appt.Status)
	}

	customer, err := f.customers.GetByID(ctx, memory.DemoSalonID, customerID)
	require.NoError(t, err)
	assert.Equal(t, 1, customer.TotalVisits)
	require.NotNil(t, customer.LastVisit)

	// Completed is terminal: every further attempt fails, including a repeat.
	for _, target := range []models.AppointmentStatus{models.StatusCompleted, models.StatusCompleted, models.StatusCancelled, models.StatusPending} {
		_, err = f.svc.Transition(ctx, memory.DemoSalonID, appt.ID, target, "")
		assert.ErrorIs(t, err, utils.ErrInvalidTransition)
	}

	customer, err = f.customers.GetByID(ctx, memory.DemoSalonID, customerID)
	require.NoError(t, err)
	assert.Equal(t, 1, customer.TotalVisits)
}

func TestTransition_RejectsUnknownAndSkipped(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	appt, err := f.svc.Create(ctx, haircutAt("10:00"))
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, memory.DemoSalonID, appt.ID, models.StatusCompleted, "")
	assert.ErrorIs(t, err, utils.ErrInvalidTransition)

	_, err = f.svc.Transition(ctx, memory.DemoSalonID, appt.ID, "archived", "")
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	_, err = f.svc.Transition(ctx, memory.DemoSalonID, "missing", models.StatusConfirmed, "")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestTransition_CancelReleasesSlot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	appt, err := f.svc.Create(ctx, haircutAt("10:00"))
	require.NoError(t, err)

	cancelled, err := f.svc.Transition(ctx, memory.DemoSalonID, appt.ID, models.StatusCancelled, "client asked")
	require.NoError(t, err)
	assert.Equal(t, "client asked", cancelled.CancelReason)

	_, err = f.svc.Create(ctx, haircutAt("10:00"))
	assert.NoError(t, err)
}

func TestTransition_ConcurrentCompleteCountsOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	appt, err := f.svc.Create(ctx, haircutAt("10:00"))
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, memory.DemoSalonID, appt.ID, models.StatusConfirmed, "")
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, memory.DemoSalonID, appt.ID, models.StatusInProgress, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Transition(ctx, memory.DemoSalonID, appt.ID, models.StatusCompleted, "")
		}()
	}
	wg.Wait()

	customer, err := f.customers.GetByID(ctx, memory.DemoSalonID, customerID)
	require.NoError(t, err)
	assert.Equal(t, 1, customer.TotalVisits)
}

func TestCancelForCustomer(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	appt, err := f.svc.Create(ctx, haircutAt("10:00"))
	require.NoError(t, err)

	_, err = f.svc.CancelForCustomer(ctx, memory.DemoSalonID, "someone-else", appt.ID, "")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	cancelled, err := f.svc.CancelForCustomer(ctx, memory.DemoSalonID, customerID, appt.ID, "Cancelled via WhatsApp")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = f.svc.CancelForCustomer(ctx, memory.DemoSalonID, customerID, appt.ID, "")
	assert.ErrorIs(t, err, utils.ErrInvalidTransition)

	upcoming, err := f.svc.ListUpcomingForCustomer(ctx, memory.DemoSalonID, customerID, monday)
	require.NoError(t, err)
	assert.Empty(t, upcoming)
}

func TestMarkNoShows(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	early, err := f.svc.Create(ctx, haircutAt("09:00"))
	require.NoError(t, err)
	late, err := f.svc.Create(ctx, haircutAt("12:00"))
	require.NoError(t, err)
	pending, err := f.svc.Create(ctx, haircutAt("09:30"))
	require.NoError(t, err)
	for _, a := range []*models.Appointment{early, late} {
		_, err = f.svc.Transition(ctx, memory.DemoSalonID, a.ID, models.StatusConfirmed, "")
		require.NoError(t, err)
	}

	now := time.Date(2025, 3, 10, 10, 15, 0, 0, time.UTC)
	marked, err := f.svc.MarkNoShows(ctx, now, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	got, err := f.svc.Get(ctx, memory.DemoSalonID, early.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoShow, got.Status)

	for _, id := range []string{late.ID, pending.ID} {
		got, err = f.svc.Get(ctx, memory.DemoSalonID, id)
		require.NoError(t, err)
		assert.NotEqual(t, models.StatusNoShow, got.Status)
	}
}
