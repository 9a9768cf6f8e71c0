package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"salondesk/config"
	"salondesk/database/repository"
	"salondesk/database/repository/memory"
	"salondesk/middleware"
	"salondesk/models"
	"salondesk/services/availability"
	"salondesk/services/booking"
	"salondesk/services/chat"
	"salondesk/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 2030-03-11 is a Monday; the demo salon is open 09:00-21:00.
const testDate = "2030-03-11"

func init() {
	gin.SetMode(gin.TestMode)
}

type dashboard struct {
	router *gin.Engine
	repos  *repository.Repositories
	token  string
}

func newDashboard(t *testing.T) *dashboard {
	t.Helper()
	config.AppConfig.JWTSecret = "handler-secret"
	t.Cleanup(func() { config.AppConfig.JWTSecret = "" })

	repos, dir := repository.NewMemoryRepositories()
	memory.SeedDemoSalon(dir)
	logger := zap.NewNop()
	avail := availability.NewAvailabilityService(repos.Directory, repos.Appointments, logger)
	svc := booking.NewBookingService(avail, repos.Appointments, repos.Customers, repos.SlotLocks, nil, logger)

	appts := NewAppointmentHandler(avail, svc, repos.Customers, "IN")
	venue := NewVenueHandler(repos.Directory)

	r := gin.New()
	api := r.Group("/api", middleware.JWTAuthSalonMiddleware(repos.Directory))
	api.GET("/appointments/slots", appts.GetSlotsHandler)
	api.GET("/appointments", appts.ListAppointmentsHandler)
	api.POST("/appointments", appts.CreateAppointmentHandler)
	api.PUT("/appointments/:id/status", appts.UpdateAppointmentStatusHandler)
	api.GET("/venue", venue.GetVenueHandler)
	api.PUT("/venue/settings", venue.UpdateVenueSettingsHandler)

	token, err := utils.GenerateToken(memory.DemoSalonID, time.Hour)
	require.NoError(t, err)
	return &dashboard{router: r, repos: repos, token: token}
}

func (d *dashboard) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+d.token)
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGetSlotsHandler(t *testing.T) {
	d := newDashboard(t)

	w := d.do(http.MethodGet, "/api/appointments/slots?date="+testDate+"&serviceId="+memory.DemoServiceCut, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[availability.Result](t, w)
	assert.Len(t, res.Slots, 24)
	assert.Equal(t, "09:00", res.Slots[0].StartTime)

	tests := []struct {
		name   string
		query  string
		status int
		code   string
	}{
		{"missing service", "?date=" + testDate, http.StatusBadRequest, utils.CodeInvalidInput},
		{"bad date", "?date=11-03-2030&serviceId=" + memory.DemoServiceCut, http.StatusBadRequest, utils.CodeInvalidInput},
		{"unknown service", "?date=" + testDate + "&serviceId=svc-nope", http.StatusNotFound, utils.CodeNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := d.do(http.MethodGet, "/api/appointments/slots"+tc.query, "")
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decode[utils.ErrorResponse](t, w).Code)
		})
	}
}

func TestAppointmentLifecycle(t *testing.T) {
	d := newDashboard(t)

	body := `{"customerPhone":"98765 43210","customerName":"Riya","serviceId":"` + memory.DemoServiceCut +
		`","date":"` + testDate + `","startTime":"10:00"}`
	w := d.do(http.MethodPost, "/api/appointments", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	appt := decode[models.Appointment](t, w)
	assert.Equal(t, models.StatusPending, appt.Status)
	assert.Equal(t, models.BookedViaDashboard, appt.BookedVia)
	assert.Equal(t, memory.DemoStaffAsha, appt.StaffID)

	customer, err := d.repos.Customers.FindByPhone(context.Background(), memory.DemoSalonID, "+919876543210")
	require.NoError(t, err)
	assert.Equal(t, "Riya", customer.Name)
	assert.Equal(t, customer.ID, appt.CustomerID)

	// The same slot is gone.
	w = d.do(http.MethodPost, "/api/appointments", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, utils.CodeSlotUnavailable, decode[utils.ErrorResponse](t, w).Code)

	w = d.do(http.MethodGet, "/api/appointments?date="+testDate, "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Appointments []models.Appointment `json:"appointments"`
		Count        int                  `json:"count"`
	}](t, w)
	assert.Equal(t, 1, list.Count)

	for _, status := range []models.AppointmentStatus{models.StatusConfirmed, models.StatusInProgress, models.StatusCompleted} {
		w = d.do(http.MethodPut, "/api/appointments/"+appt.ID+"/status", `{"status":"`+string(status)+`"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, status, decode[models.Appointment](t, w).Status)
	}

	customer, err = d.repos.Customers.GetByID(context.Background(), memory.DemoSalonID, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, customer.TotalVisits)

	w = d.do(http.MethodPut, "/api/appointments/"+appt.ID+"/status", `{"status":"cancelled"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, utils.CodeInvalidTransition, decode[utils.ErrorResponse](t, w).Code)

	w = d.do(http.MethodPut, "/api/appointments/missing/status", `{"status":"confirmed"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateAppointmentHandlerValidation(t *testing.T) {
	d := newDashboard(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing phone", `{"serviceId":"svc-haircut","date":"` + testDate + `","startTime":"10:00"}`, http.StatusBadRequest},
		{"bad status", `{"customerPhone":"9876543210","serviceId":"svc-haircut","date":"` + testDate + `","startTime":"10:00","status":"completed"}`, http.StatusBadRequest},
		{"off grid", `{"customerPhone":"9876543210","serviceId":"svc-haircut","date":"` + testDate + `","startTime":"10:10"}`, http.StatusConflict},
		{"malformed json", `{"customerPhone":`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := d.do(http.MethodPost, "/api/appointments", tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}

func TestListAppointmentsHandlerRequiresDate(t *testing.T) {
	d := newDashboard(t)
	w := d.do(http.MethodGet, "/api/appointments", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateVenueSettingsHandler(t *testing.T) {
	d := newDashboard(t)

	w := d.do(http.MethodPut, "/api/venue/settings", `{"slotDuration":60,"bufferTime":15,"holidays":["`+testDate+`"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	venue := decode[models.Venue](t, w)
	assert.Equal(t, 60, venue.SlotDuration)
	assert.Equal(t, 15, venue.BufferTime)
	assert.Equal(t, "Glow Studio", venue.Name, "untouched fields survive")

	// The holiday now blocks the day.
	w = d.do(http.MethodGet, "/api/appointments/slots?date="+testDate+"&serviceId="+memory.DemoServiceCut, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[availability.Result](t, w).Slots)

	w = d.do(http.MethodGet, "/api/venue", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 60, decode[models.Venue](t, w).SlotDuration)

	tests := []struct {
		name string
		body string
	}{
		{"slot duration off list", `{"slotDuration":25}`},
		{"negative buffer", `{"bufferTime":-5}`},
		{"bad holiday", `{"holidays":["next friday"]}`},
		{"closing before opening", `{"workingHours":[{"day":"monday","isOpen":true,"openTime":"18:00","closeTime":"09:00"}]}`},
		{"unknown day", `{"workingHours":[{"day":"funday","isOpen":false}]}`},
		{"duplicate day", `{"workingHours":[{"day":"monday","isOpen":false},{"day":"monday","isOpen":false}]}`},
		{"bad clock", `{"workingHours":[{"day":"monday","isOpen":true,"openTime":"9am","closeTime":"18:00"}]}`},
		{"zero reminder", `{"reminders":[0]}`},
		{"bad payment mode", `{"payment":{"enabled":true,"mode":"sometimes"}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := d.do(http.MethodPut, "/api/venue/settings", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

type fakeChat struct {
	msgs    []chat.InboundMessage
	err     error
	history []models.Conversation
	limit   int
}

func (f *fakeChat) HandleMessage(_ context.Context, msg chat.InboundMessage) (*chat.Result, error) {
	f.msgs = append(f.msgs, msg)
	if f.err != nil {
		return nil, f.err
	}
	return &chat.Result{Reply: chat.ReplyPayload{Text: "Hello!"}, ConversationID: "conv-1", State: models.StateGreeting}, nil
}

func (f *fakeChat) History(_ context.Context, _, _ string, limit int) ([]models.Conversation, error) {
	f.limit = limit
	return f.history, nil
}

func newChatRouter(t *testing.T, svc ChatService) (*gin.Engine, string) {
	t.Helper()
	config.AppConfig.JWTSecret = "handler-secret"
	t.Cleanup(func() { config.AppConfig.JWTSecret = "" })
	dir := memory.NewDirectory()
	memory.SeedDemoSalon(dir)

	h := NewChatHandler(svc)
	r := gin.New()
	api := r.Group("/api/chat", middleware.JWTAuthSalonMiddleware(dir))
	api.POST("/message", h.SendChatMessageHandler)
	api.GET("/history", h.ChatHistoryHandler)

	token, err := utils.GenerateToken(memory.DemoSalonID, time.Hour)
	require.NoError(t, err)
	return r, token
}

func TestSendChatMessageHandler(t *testing.T) {
	svc := &fakeChat{}
	r, token := newChatRouter(t, svc)

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send(`{"phone":"9876543210","message":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[chat.Result](t, w)
	assert.Equal(t, "Hello!", res.Reply.Text)
	require.Len(t, svc.msgs, 1)
	assert.Equal(t, memory.DemoSalonID, svc.msgs[0].SalonID, "salon comes from the token")

	w = send(`{"phone":"9876543210"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.err = utils.Upstream("language model", errors.New("boom"))
	w = send(`{"phone":"9876543210","message":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestChatHistoryHandler(t *testing.T) {
	svc := &fakeChat{history: []models.Conversation{{ID: "c2"}, {ID: "c1"}}}
	r, token := newChatRouter(t, svc)

	get := func(query string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/chat/history"+query, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("?phone=9876543210&limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, svc.limit)
	assert.Contains(t, w.Body.String(), `"count":2`)

	assert.Equal(t, http.StatusBadRequest, get("").Code)
	assert.Equal(t, http.StatusBadRequest, get("?phone=1&limit=zero").Code)
}

type fakeProcessor struct {
	mu     sync.Mutex
	bodies []string
	done   chan struct{}
}

func (f *fakeProcessor) ProcessWebhook(_ context.Context, body []byte) error {
	f.mu.Lock()
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()
	close(f.done)
	return nil
}

func TestWebhookHandler(t *testing.T) {
	proc := &fakeProcessor{done: make(chan struct{})}
	h := NewWebhookHandler(proc, "verify-me", zap.NewNop())
	r := gin.New()
	r.GET("/webhook", h.VerifyWebhookHandler)
	r.POST("/webhook", h.ReceiveWebhookHandler)

	t.Run("verification", func(t *testing.T) {
		tests := []struct {
			query  string
			status int
			body   string
		}{
			{"?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", http.StatusOK, "42"},
			{"?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42", http.StatusForbidden, ""},
			{"?hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=42", http.StatusForbidden, ""},
		}
		for _, tc := range tests {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook"+tc.query, nil))
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.body, w.Body.String())
		}
	})

	t.Run("delivery is acknowledged then processed", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"entry":[]}`)))
		assert.Equal(t, http.StatusOK, w.Code)

		select {
		case <-proc.done:
		case <-time.After(2 * time.Second):
			t.Fatal("webhook was not processed")
		}
		h.Wait()
		assert.Equal(t, []string{`{"entry":[]}`}, proc.bodies)
	})
}

type fakeWebhookPayments struct {
	signature string
	err       error
}

func (f *fakeWebhookPayments) HandleWebhook(_ context.Context, _ []byte, signature string) error {
	f.signature = signature
	return f.err
}

func TestStripeWebhookHandler(t *testing.T) {
	svc := &fakeWebhookPayments{}
	r := gin.New()
	r.POST("/api/payments/webhook", NewPaymentHandler(svc).StripeWebhookHandler)

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(`{}`))
		req.Header.Set("Stripe-Signature", "t=1,v1=abc")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t=1,v1=abc", svc.signature)

	svc.err = utils.InvalidInput("invalid webhook signature")
	assert.Equal(t, http.StatusBadRequest, post().Code)
}

func TestHealthHandler(t *testing.T) {
	failing := utils.NewHealthMonitor(map[string]utils.HealthCheck{
		"mongo": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("down") },
	})
	failing.CheckNow(context.Background())

	tests := []struct {
		name    string
		handler gin.HandlerFunc
		status  int
	}{
		{"no monitor", HealthHandler(nil), http.StatusOK},
		{"fresh monitor", HealthHandler(utils.NewHealthMonitor(nil)), http.StatusOK},
		{"dependency down", HealthHandler(failing), http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", tc.handler)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tc.status, w.Code)
		})
	}
}
