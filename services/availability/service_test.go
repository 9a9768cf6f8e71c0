package availability

import (
	"context"
	"testing"

	"salondesk/database/repository/memory"
	"salondesk/models"
	"salondesk/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*DefaultAvailabilityService, *memory.Directory, *memory.Appointments) {
	t.Helper()
	dir := memory.NewDirectory()
	memory.SeedDemoSalon(dir)
	appts := memory.NewAppointments()
	return NewAvailabilityService(dir, appts, zap.NewNop()), dir, appts
}

func TestService_ComputeSlots(t *testing.T) {
	svc, _, appts := newTestService(t)
	ctx := context.Background()

	res, err := svc.ComputeSlots(ctx, Query{SalonID: memory.DemoSalonID, Date: monday, ServiceID: memory.DemoServiceCut})
	require.NoError(t, err)
	assert.Len(t, res.Slots, 24)
	assert.Equal(t, "Haircut", res.Service.Name)

	require.NoError(t, appts.Create(ctx, &models.Appointment{
		ID: "a1", SalonID: memory.DemoSalonID, StaffID: memory.DemoStaffAsha, Date: monday,
		StartTime: "10:00", EndTime: "10:30", Status: models.StatusPending,
	}))

	res, err = svc.ComputeSlots(ctx, Query{SalonID: memory.DemoSalonID, Date: monday, ServiceID: memory.DemoServiceCut, StaffID: memory.DemoStaffAsha})
	require.NoError(t, err)
	assert.Len(t, res.Slots, 23)
	assert.NotContains(t, starts(res.Slots), "10:00")
}

func TestService_BufferSettingTakesEffect(t *testing.T) {
	svc, dir, appts := newTestService(t)
	ctx := context.Background()
	require.NoError(t, appts.Create(ctx, &models.Appointment{
		ID: "a1", SalonID: memory.DemoSalonID, StaffID: memory.DemoStaffAsha, Date: monday,
		StartTime: "10:00", EndTime: "10:30", Status: models.StatusConfirmed,
	}))

	buffer := 15
	_, err := dir.UpdateVenueSettings(ctx, memory.DemoSalonID, models.VenueSettings{BufferTime: &buffer})
	require.NoError(t, err)

	res, err := svc.ComputeSlots(ctx, Query{SalonID: memory.DemoSalonID, Date: monday, ServiceID: memory.DemoServiceCut})
	require.NoError(t, err)
	assert.NotContains(t, starts(res.Slots), "10:30")
	assert.Contains(t, starts(res.Slots), "11:00")
}

func TestService_EmptyResults(t *testing.T) {
	svc, dir, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.ComputeSlots(ctx, Query{SalonID: memory.DemoSalonID, Date: sunday, ServiceID: memory.DemoServiceCut})
	require.NoError(t, err)
	assert.Empty(t, res.Slots)
	assert.Equal(t, ReasonClosed, res.Reason)

	// A service nobody offers yields an empty list, not an error.
	dir.PutService(models.Service{ID: "svc-bridal", SalonID: memory.DemoSalonID, Name: "Bridal", Duration: 120, IsActive: true})
	res, err = svc.ComputeSlots(ctx, Query{SalonID: memory.DemoSalonID, Date: monday, ServiceID: "svc-bridal"})
	require.NoError(t, err)
	assert.Empty(t, res.Slots)
	assert.Equal(t, ReasonNoStaff, res.Reason)
}

func TestService_Failures(t *testing.T) {
	svc, dir, _ := newTestService(t)
	ctx := context.Background()

	dir.PutService(models.Service{ID: "svc-old", SalonID: memory.DemoSalonID, Name: "Old", Duration: 30, IsActive: false})
	retired := models.Staff{ID: "staff-gone", SalonID: memory.DemoSalonID, Name: "Gone", Services: []string{memory.DemoServiceCut}}
	dir.PutStaff(retired)

	tests := []struct {
		name string
		q    Query
		want error
	}{
		{name: "unknown salon", q: Query{SalonID: "nope", Date: monday, ServiceID: memory.DemoServiceCut}, want: utils.ErrNotFound},
		{name: "unknown service", q: Query{SalonID: memory.DemoSalonID, Date: monday, ServiceID: "nope"}, want: utils.ErrNotFound},
		{name: "inactive service", q: Query{SalonID: memory.DemoSalonID, Date: monday, ServiceID: "svc-old"}, want: utils.ErrNotFound},
		{name: "unknown staff", q: Query{SalonID: memory.DemoSalonID, Date: monday, ServiceID: memory.DemoServiceCut, StaffID: "nope"}, want: utils.ErrNotFound},
		{name: "inactive staff", q: Query{SalonID: memory.DemoSalonID, Date: monday, ServiceID: memory.DemoServiceCut, StaffID: "staff-gone"}, want: utils.ErrNotFound},
		{name: "staff does not offer service", q: Query{SalonID: memory.DemoSalonID, Date: monday, ServiceID: memory.DemoServiceCut, StaffID: memory.DemoStaffBela}, want: utils.ErrInvalidInput},
		{name: "bad date", q: Query{SalonID: memory.DemoSalonID, Date: "tomorrow", ServiceID: memory.DemoServiceCut}, want: utils.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ComputeSlots(ctx, tt.q)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
