package channel

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"salondesk/models"
)

const (
	maxButtonTitle    = 24
	maxRowDescription = 72
	maxButtons        = 3
	listButtonText    = "View options"
	listSectionTitle  = "Options"
)

var confirmationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)confirm\s*kar`),
	regexp.MustCompile(`(?i)book\s*kar`),
	regexp.MustCompile(`(?i)pakka\s*hai`),
	regexp.MustCompile(`(?i)proceed\s*kar`),
	regexp.MustCompile(`(?i)shall\s*i\s*(book|confirm)`),
	regexp.MustCompile(`(?i)want\s*to\s*(confirm|book|proceed)`),
	regexp.MustCompile(`(?i)\bconfirm\b.*\?`),
	regexp.MustCompile(`(?i)\bcancel\b.*\?`),
}

var (
	numberedLine = regexp.MustCompile(`^\s*(\d+)[.)]\s*(.+)`)
	dashSplit    = regexp.MustCompile(`\s*[—–-]\s*`)
)

type numberedItem struct {
	id          string
	title       string
	description string
}

// FormatReply shapes assistant text for WhatsApp: a yes/no question becomes two
// buttons, two or three numbered options become buttons, four or more become a
// list, anything else stays plain text.
func FormatReply(text string) models.Reply {
	if text == "" {
		return models.Reply{Type: models.ReplyTypeText}
	}

	if isConfirmationQuestion(text) {
		return models.Reply{
			Type: models.ReplyTypeButton,
			Body: text,
			Buttons: []models.ReplyButton{
				{ID: "confirm_yes", Title: "Yes, book it"},
				{ID: "confirm_no", Title: "No, cancel"},
			},
		}
	}

	items := numberedItems(text)
	if items == nil {
		return models.Reply{Type: models.ReplyTypeText, Body: text}
	}

	if len(items) <= maxButtons {
		buttons := make([]models.ReplyButton, 0, len(items))
		for _, it := range items {
			buttons = append(buttons, models.ReplyButton{ID: it.id, Title: it.title})
		}
		return models.Reply{Type: models.ReplyTypeButton, Body: text, Buttons: buttons}
	}

	rows := make([]models.ListRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, models.ListRow{ID: it.id, Title: it.title, Description: it.description})
	}
	return models.Reply{
		Type:       models.ReplyTypeList,
		Body:       listHeader(text),
		ButtonText: listButtonText,
		Sections:   []models.ListSection{{Title: listSectionTitle, Rows: rows}},
	}
}

func isConfirmationQuestion(text string) bool {
	for _, p := range confirmationPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// numberedItems returns the "1. Title - description" lines, or nil when fewer than two.
func numberedItems(text string) []numberedItem {
	var items []numberedItem
	for _, line := range strings.Split(text, "\n") {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		parts := dashSplit.Split(strings.TrimSpace(m[2]), -1)
		items = append(items, numberedItem{
			id:          "item_" + m[1],
			title:       truncate(parts[0], maxButtonTitle),
			description: truncate(strings.Join(parts[1:], " — "), maxRowDescription),
		})
	}
	if len(items) < 2 {
		return nil
	}
	return items
}

// listHeader is the first line that is not a numbered option.
func listHeader(text string) string {
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		if !numberedLine.MatchString(line) && strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line)
		}
	}
	return lines[0]
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
