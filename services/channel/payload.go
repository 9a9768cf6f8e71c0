package channel

import "salondesk/models"

// OutboundMessage is a Cloud API message body.
type OutboundMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type,omitempty"`
	To               string       `json:"to,omitempty"`
	Type             string       `json:"type,omitempty"`
	Text             *textBody    `json:"text,omitempty"`
	Interactive      *interactive `json:"interactive,omitempty"`
	Status           string       `json:"status,omitempty"`
	MessageID        string       `json:"message_id,omitempty"`
}

type textBody struct {
	Body string `json:"body"`
}

type interactive struct {
	Type   string            `json:"type"`
	Body   interactiveBody   `json:"body"`
	Action interactiveAction `json:"action"`
}

type interactiveBody struct {
	Text string `json:"text"`
}

type interactiveAction struct {
	Buttons    []actionButton `json:"buttons,omitempty"`
	Button     string         `json:"button,omitempty"`
	Sections   []listSection  `json:"sections,omitempty"`
	Name       string         `json:"name,omitempty"`
	Parameters *ctaParameters `json:"parameters,omitempty"`
}

type actionButton struct {
	Type  string             `json:"type"`
	Reply models.ReplyButton `json:"reply"`
}

type listSection struct {
	Title string    `json:"title"`
	Rows  []listRow `json:"rows"`
}

// listRow always carries a description, which the API accepts empty.
type listRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ctaParameters struct {
	DisplayText string `json:"display_text"`
	URL         string `json:"url"`
}

func baseMessage(to string) OutboundMessage {
	return OutboundMessage{MessagingProduct: "whatsapp", RecipientType: "individual", To: to}
}

// BuildMessage converts a formatted reply into an API message addressed to to.
func BuildMessage(to string, reply models.Reply) OutboundMessage {
	msg := baseMessage(to)
	switch reply.Type {
	case models.ReplyTypeButton:
		buttons := make([]actionButton, 0, len(reply.Buttons))
		for _, b := range reply.Buttons {
			buttons = append(buttons, actionButton{Type: "reply", Reply: b})
		}
		msg.Type = "interactive"
		msg.Interactive = &interactive{Type: "button", Body: interactiveBody{Text: reply.Body}, Action: interactiveAction{Buttons: buttons}}
	case models.ReplyTypeList:
		sections := make([]listSection, 0, len(reply.Sections))
		for _, s := range reply.Sections {
			rows := make([]listRow, 0, len(s.Rows))
			for _, r := range s.Rows {
				rows = append(rows, listRow{ID: r.ID, Title: r.Title, Description: r.Description})
			}
			sections = append(sections, listSection{Title: s.Title, Rows: rows})
		}
		msg.Type = "interactive"
		msg.Interactive = &interactive{
			Type:   "list",
			Body:   interactiveBody{Text: reply.Body},
			Action: interactiveAction{Button: reply.ButtonText, Sections: sections},
		}
	default:
		msg.Type = "text"
		msg.Text = &textBody{Body: reply.Body}
	}
	return msg
}

// PaymentLinkText is the body of the pay-now call to action.
func PaymentLinkText(required bool) string {
	if required {
		return "Please complete the payment to confirm your appointment:"
	}
	return "You can pay online here, or at the salon:"
}

// BuildPaymentMessage is the call-to-action button carrying a payment link.
func BuildPaymentMessage(to, link string, required bool) OutboundMessage {
	msg := baseMessage(to)
	msg.Type = "interactive"
	msg.Interactive = &interactive{
		Type: "cta_url",
		Body: interactiveBody{Text: PaymentLinkText(required)},
		Action: interactiveAction{
			Name:       "cta_url",
			Parameters: &ctaParameters{DisplayText: "Pay Now", URL: link},
		},
	}
	return msg
}

func buildReadReceipt(messageID string) OutboundMessage {
	return OutboundMessage{MessagingProduct: "whatsapp", Status: "read", MessageID: messageID}
}
