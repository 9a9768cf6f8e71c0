package channel

import (
	"testing"
	"time"

	"salondesk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "waba-1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "919800000000", "phone_number_id": "pn-1"},
        "contacts": [{"profile": {"name": "Riya"}, "wa_id": "919876543210"}],
        "messages": [
          {"from": "919876543210", "id": "wamid.A", "timestamp": "1741597200", "type": "text", "text": {"body": " hi there "}},
          {"from": "919876543210", "id": "wamid.B", "timestamp": "1741597210", "type": "interactive",
           "interactive": {"type": "button_reply", "button_reply": {"id": "confirm_yes", "title": "Yes, book it"}}},
          {"from": "919876543210", "id": "wamid.C", "timestamp": "1741597220", "type": "interactive",
           "interactive": {"type": "list_reply", "list_reply": {"id": "item_2", "title": "Facial"}}},
          {"from": "919876543210", "id": "wamid.D", "type": "button", "button": {"text": "Reschedule", "payload": "r"}},
          {"from": "919876543210", "id": "wamid.E", "type": "image"}
        ]
      }
    }, {
      "field": "messages",
      "value": {
        "metadata": {"phone_number_id": "pn-1"},
        "statuses": [
          {"id": "wamid.OUT", "status": "failed", "timestamp": "1741597300", "recipient_id": "919876543210",
           "errors": [{"code": 131047, "title": "Re-engagement message"}]},
          {"id": "wamid.OUT2", "status": "deleted"}
        ]
      }
    }, {
      "field": "account_update",
      "value": {"metadata": {"phone_number_id": "pn-1"}}
    }]
  }]
}`

func TestParseWebhook(t *testing.T) {
	batches, err := ParseWebhook([]byte(samplePayload))
	require.NoError(t, err)
	require.Len(t, batches, 2)

	msgs := batches[0].Messages
	require.Len(t, msgs, 5)
	assert.Equal(t, "pn-1", batches[0].PhoneNumberID)
	assert.Equal(t, "Riya", batches[0].ContactNames["919876543210"])

	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		texts = append(texts, m.ExtractText())
	}
	assert.Equal(t, []string{"hi there", "Yes, book it", "Facial", "Reschedule", ""}, texts)
	assert.Equal(t, time.Unix(1741597200, 0), msgs[0].SentAt())

	statuses := batches[1].Statuses
	require.Len(t, statuses, 2)
	st, ok := statuses[0].DeliveryStatus()
	assert.True(t, ok)
	assert.Equal(t, models.DeliveryFailed, st)
	assert.Equal(t, "131047: Re-engagement message", statuses[0].ErrorMessage())
	_, ok = statuses[1].DeliveryStatus()
	assert.False(t, ok)
}

func TestParseWebhook_OtherObjects(t *testing.T) {
	batches, err := ParseWebhook([]byte(`{"object":"page","entry":[]}`))
	require.NoError(t, err)
	assert.Empty(t, batches)

	_, err = ParseWebhook([]byte(`{not json`))
	assert.Error(t, err)
}
