package chat

import (
	"fmt"
	"strings"
	"time"

	"salondesk/models"
	"salondesk/utils"
)

// Briefing is the per-turn snapshot of salon data the model is grounded on.
type Briefing struct {
	Venue    *models.Venue
	Services []models.Service
	Offers   []models.Offer
	Now      time.Time
}

// SystemPrompt renders the briefing. It is rebuilt on every turn so catalog
// and hour edits apply to the next message.
func (b Briefing) SystemPrompt() string {
	v := b.Venue
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are the WhatsApp booking assistant for %s, a salon.\n", v.Name)
	fmt.Fprintf(&sb, "You help customers book, reschedule and cancel appointments, answer questions about services and prices, and share current offers.\n\n")

	sb.WriteString("SALON INFO:\n")
	fmt.Fprintf(&sb, "- Name: %s\n", v.Name)
	if addr := v.Address.String(); addr != "" {
		fmt.Fprintf(&sb, "- Address: %s\n", addr)
	}
	if v.Phone != "" {
		fmt.Fprintf(&sb, "- Phone: %s\n", v.Phone)
	}
	fmt.Fprintf(&sb, "- Working hours: %s\n", openHours(v))
	if closed := closedDays(v); closed != "" {
		fmt.Fprintf(&sb, "- Closed on: %s\n", closed)
	}
	fmt.Fprintf(&sb, "- Slot duration: %d minutes\n\n", v.SlotDuration)

	sb.WriteString("SERVICES:\n")
	if len(b.Services) == 0 {
		sb.WriteString("No services are listed yet.\n")
	}
	symbol := currencySymbol(v.Payment.Currency)
	for _, s := range b.Services {
		fmt.Fprintf(&sb, "- %s (%s) [id: %s] - %s%s, %d min\n", s.Name, s.Category, s.ID, symbol, formatAmount(s.Price), s.Duration)
	}
	sb.WriteString("\n")

	sb.WriteString("CURRENT OFFERS:\n")
	if len(b.Offers) == 0 {
		sb.WriteString("No offers are running right now.\n")
	}
	for _, o := range b.Offers {
		fmt.Fprintf(&sb, "- %s: %s (valid till %s)\n", o.Title, describeDiscount(o, symbol), o.ValidTo.Format(utils.DateLayout))
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "TODAY: %s (%s)\n\n", b.Now.Format("Monday, 2 January 2006"), b.Now.Format(utils.DateLayout))

	sb.WriteString(`RULES:
1. Reply in the customer's language. Hindi, English and Hinglish are all fine.
2. Keep replies short and friendly; this is WhatsApp.
3. Only offer services from the list above. Never invent services, prices or times.
4. Always check availability with get_available_slots before suggesting a time.
5. Confirm the service, date and time with the customer before calling create_booking.
6. When showing options, use a numbered list ("1. ...").
7. Dates passed to tools use YYYY-MM-DD and times use HH:MM (24-hour).
8. If you cannot help, call handoff_to_human.
`)

	if v.Payment.Enabled {
		sb.WriteString("\nPAYMENT:\n")
		if v.Payment.Mode == models.PaymentRequired {
			sb.WriteString("Online payment is required to secure a booking.\n")
		} else {
			sb.WriteString("Online payment is optional; customers may also pay at the salon.\n")
		}
		sb.WriteString("A payment link is sent automatically after a booking is created. Do not write payment links yourself.\n")
	}
	return sb.String()
}

func openHours(v *models.Venue) string {
	var parts []string
	for _, wh := range v.WorkingHours {
		if wh.IsOpen {
			parts = append(parts, fmt.Sprintf("%s %s-%s", dayLabel(wh.Day), wh.OpenTime, wh.CloseTime))
		}
	}
	if len(parts) == 0 {
		return "not set"
	}
	return strings.Join(parts, ", ")
}

func closedDays(v *models.Venue) string {
	var days []string
	for _, wh := range v.WorkingHours {
		if !wh.IsOpen {
			days = append(days, dayLabel(wh.Day))
		}
	}
	return strings.Join(days, ", ")
}

func dayLabel(d models.Weekday) string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

func currencySymbol(code string) string {
	switch strings.ToLower(code) {
	case "", "inr":
		return "₹"
	case "usd":
		return "$"
	case "eur":
		return "€"
	case "gbp":
		return "£"
	default:
		return strings.ToUpper(code) + " "
	}
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func describeDiscount(o models.Offer, symbol string) string {
	var discount string
	if o.DiscountType == models.DiscountPercentage {
		discount = formatAmount(o.DiscountValue) + "% off"
	} else {
		discount = symbol + formatAmount(o.DiscountValue) + " off"
	}
	if o.Description != "" {
		return o.Description + ", " + discount
	}
	return discount
}
