package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"salondesk/database/repository/memory"
	"salondesk/models"
	"salondesk/services/channel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sent struct {
	to      string
	reply   models.Reply
	payLink string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sent
	read    []string
	sendErr error
	seq     int
}

func (s *fakeSender) Send(_ context.Context, _ models.ChannelSettings, to string, reply models.Reply) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return "", s.sendErr
	}
	s.seq++
	s.sent = append(s.sent, sent{to: to, reply: reply})
	return fmt.Sprintf("wamid.out%d", s.seq), nil
}

func (s *fakeSender) SendPaymentLink(_ context.Context, _ models.ChannelSettings, to, link string, _ bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.sent = append(s.sent, sent{to: to, payLink: link})
	return fmt.Sprintf("wamid.out%d", s.seq), nil
}

func (s *fakeSender) MarkRead(_ context.Context, _ models.ChannelSettings, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.read = append(s.read, messageID)
	return nil
}

type fakeHandler struct {
	mu     sync.Mutex
	msgs   []InboundMessage
	result *Result
	err    error
}

func (h *fakeHandler) HandleMessage(_ context.Context, msg InboundMessage) (*Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
	if h.err != nil {
		return nil, h.err
	}
	return h.result, nil
}

func textReply(text string) *Result {
	return &Result{Reply: ReplyPayload{Text: text, WhatsApp: channel.FormatReply(text)}}
}

func webhookBody(phoneNumberID string, messages, statuses string) []byte {
	return []byte(fmt.Sprintf(`{
  "object": "whatsapp_business_account",
  "entry": [{"id": "waba", "changes": [{"field": "messages", "value": {
    "metadata": {"phone_number_id": %q},
    "contacts": [{"profile": {"name": "Riya"}, "wa_id": "919876543210"}],
    "messages": [%s],
    "statuses": [%s]
  }}]}]
}`, phoneNumberID, messages, statuses))
}

func textMessage(id, body string) string {
	return fmt.Sprintf(`{"from": "919876543210", "id": %q, "timestamp": "1741597200", "type": "text", "text": {"body": %q}}`, id, body)
}

type inboundFixture struct {
	proc    *InboundProcessor
	dir     *memory.Directory
	logs    *memory.MessageLogs
	sender  *fakeSender
	handler *fakeHandler
}

func newInboundFixture(t *testing.T) *inboundFixture {
	t.Helper()
	dir := memory.NewDirectory()
	memory.SeedDemoSalon(dir)
	logs := memory.NewMessageLogs()
	sender := &fakeSender{}
	handler := &fakeHandler{result: textReply("Hello from Glow Studio")}
	proc := &InboundProcessor{
		Directory:     dir,
		MessageLogs:   logs,
		Dedup:         channel.NewMemoryDeduplicator(time.Hour),
		Sender:        sender,
		Handler:       handler,
		DefaultRegion: "IN",
		Logger:        zap.NewNop(),
	}
	return &inboundFixture{proc: proc, dir: dir, logs: logs, sender: sender, handler: handler}
}

func logsBy(logs []models.MessageLog, dir models.MessageDirection) []models.MessageLog {
	var out []models.MessageLog
	for _, l := range logs {
		if l.Direction == dir {
			out = append(out, l)
		}
	}
	return out
}

func TestProcessWebhook_TextMessage(t *testing.T) {
	f := newInboundFixture(t)

	err := f.proc.ProcessWebhook(context.Background(), webhookBody(memory.DemoPhoneNumberID, textMessage("wamid.1", "hi"), ""))

	require.NoError(t, err)
	require.Len(t, f.handler.msgs, 1)
	got := f.handler.msgs[0]
	assert.Equal(t, memory.DemoSalonID, got.SalonID)
	assert.Equal(t, "+919876543210", got.Phone)
	assert.Equal(t, "hi", got.Text)
	assert.Equal(t, "wamid.1", got.ProviderMessageID)
	assert.Equal(t, "Riya", got.ProfileName)

	assert.Equal(t, []string{"wamid.1"}, f.sender.read)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "+919876543210", f.sender.sent[0].to)
	assert.Equal(t, "Hello from Glow Studio", f.sender.sent[0].reply.Body)

	logs := f.logs.All()
	in := logsBy(logs, models.DirectionInbound)
	out := logsBy(logs, models.DirectionOutbound)
	require.Len(t, in, 1)
	require.Len(t, out, 1)
	assert.Equal(t, models.DeliveryReceived, in[0].Status)
	assert.Equal(t, "hi", in[0].Content)
	assert.Equal(t, "wamid.out1", out[0].WAMessageID)
	assert.Equal(t, models.DeliverySent, out[0].Status)
}

func TestProcessWebhook_DuplicateDelivery(t *testing.T) {
	f := newInboundFixture(t)
	body := webhookBody(memory.DemoPhoneNumberID, textMessage("wamid.1", "hi"), "")

	require.NoError(t, f.proc.ProcessWebhook(context.Background(), body))
	require.NoError(t, f.proc.ProcessWebhook(context.Background(), body))

	assert.Len(t, f.handler.msgs, 1)

	// Without the fast-path claim the message log still rejects the repeat.
	f.proc.Dedup = nil
	require.NoError(t, f.proc.ProcessWebhook(context.Background(), body))
	assert.Len(t, f.handler.msgs, 1)
}

func TestProcessWebhook_UnsupportedType(t *testing.T) {
	f := newInboundFixture(t)
	image := `{"from": "919876543210", "id": "wamid.img", "type": "image"}`

	require.NoError(t, f.proc.ProcessWebhook(context.Background(), webhookBody(memory.DemoPhoneNumberID, image, "")))

	assert.Empty(t, f.handler.msgs)
	assert.Empty(t, f.sender.sent)
	assert.Equal(t, []string{"wamid.img"}, f.sender.read)
	in := logsBy(f.logs.All(), models.DirectionInbound)
	require.Len(t, in, 1)
	assert.Equal(t, "image", in[0].Type)
}

func TestProcessWebhook_UnknownOrDisconnectedSalon(t *testing.T) {
	f := newInboundFixture(t)

	require.NoError(t, f.proc.ProcessWebhook(context.Background(), webhookBody("unknown-number", textMessage("wamid.1", "hi"), "")))
	assert.Empty(t, f.handler.msgs)

	v := memory.DemoVenue()
	v.WhatsApp.IsConnected = false
	f.dir.PutVenue(v)
	require.NoError(t, f.proc.ProcessWebhook(context.Background(), webhookBody(memory.DemoPhoneNumberID, textMessage("wamid.2", "hi"), "")))
	assert.Empty(t, f.handler.msgs)
	assert.Empty(t, f.logs.All())
}

func TestProcessWebhook_PaymentLinkIsSecondMessage(t *testing.T) {
	f := newInboundFixture(t)
	res := textReply("Booked for 10:00!")
	res.PaymentLink = "https://pay.example.com/appt-1"
	res.PaymentRequired = true
	f.handler.result = res

	require.NoError(t, f.proc.ProcessWebhook(context.Background(), webhookBody(memory.DemoPhoneNumberID, textMessage("wamid.1", "yes"), "")))

	require.Len(t, f.sender.sent, 2)
	assert.Equal(t, "Booked for 10:00!", f.sender.sent[0].reply.Body)
	assert.Equal(t, "https://pay.example.com/appt-1", f.sender.sent[1].payLink)
	out := logsBy(f.logs.All(), models.DirectionOutbound)
	require.Len(t, out, 2)
	assert.Equal(t, channel.PaymentLinkText(true), out[1].Content)
}

func TestProcessWebhook_HandlerFailureSendsApology(t *testing.T) {
	f := newInboundFixture(t)
	f.handler.err = errors.New("model down")

	require.NoError(t, f.proc.ProcessWebhook(context.Background(), webhookBody(memory.DemoPhoneNumberID, textMessage("wamid.1", "hi"), "")))

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, fallbackFailureReply, f.sender.sent[0].reply.Body)
}

func TestProcessWebhook_SendFailureIsLogged(t *testing.T) {
	f := newInboundFixture(t)
	f.sender.sendErr = errors.New("401 invalid token")

	require.NoError(t, f.proc.ProcessWebhook(context.Background(), webhookBody(memory.DemoPhoneNumberID, textMessage("wamid.1", "hi"), "")))

	out := logsBy(f.logs.All(), models.DirectionOutbound)
	require.Len(t, out, 1)
	assert.Equal(t, models.DeliveryFailed, out[0].Status)
	assert.Contains(t, out[0].ErrorMessage, "invalid token")
}

func TestProcessWebhook_StatusUpdates(t *testing.T) {
	f := newInboundFixture(t)
	require.NoError(t, f.proc.ProcessWebhook(context.Background(), webhookBody(memory.DemoPhoneNumberID, textMessage("wamid.1", "hi"), "")))

	statuses := `{"id": "wamid.out1", "status": "delivered", "timestamp": "1741597300"},
	             {"id": "wamid.out1", "status": "read", "timestamp": "1741597310"}`
	require.NoError(t, f.proc.ProcessWebhook(context.Background(), webhookBody(memory.DemoPhoneNumberID, "", statuses)))

	out := logsBy(f.logs.All(), models.DirectionOutbound)
	require.Len(t, out, 1)
	assert.Equal(t, models.DeliveryRead, out[0].Status)
	assert.Equal(t, time.Unix(1741597310, 0), out[0].UpdatedAt)
}

func TestProcessWebhook_InvalidJSON(t *testing.T) {
	f := newInboundFixture(t)
	assert.Error(t, f.proc.ProcessWebhook(context.Background(), []byte("{")))
}
