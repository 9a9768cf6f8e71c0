package intelligence

import (
	"context"

	"salondesk/models"
)

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
)

// Param is one named argument of a tool.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Enum        []string
}

// ToolSpec declares a tool the model may call.
type ToolSpec struct {
	Name        string
	Description string
	Params      []Param
}

// Request is one round trip to the model.
type Request struct {
	System          string
	Turns           models.Transcript
	Tools           []ToolSpec
	Temperature     float32
	MaxOutputTokens int32
}

// Response holds the model's text and the tool calls it wants resolved first.
// An empty ToolCalls means Text is final.
type Response struct {
	Text      string
	ToolCalls []models.ToolCall
}

// Model is a chat-completion backend with tool calling.
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, req Request) (*Response, error)

func (f ModelFunc) Complete(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
