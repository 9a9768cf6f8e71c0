package models

type ReplyType string

const (
	ReplyTypeText   ReplyType = "text"
	ReplyTypeButton ReplyType = "button"
	ReplyTypeList   ReplyType = "list"
)

type ReplyButton struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type ListSection struct {
	Title string    `json:"title"`
	Rows  []ListRow `json:"rows"`
}

// Reply is a channel-ready message: plain text, a short button set or a scrollable list.
type Reply struct {
	Type       ReplyType     `json:"type"`
	Body       string        `json:"body"`
	Buttons    []ReplyButton `json:"buttons,omitempty"`
	ButtonText string        `json:"buttonText,omitempty"`
	Sections   []ListSection `json:"sections,omitempty"`
}
