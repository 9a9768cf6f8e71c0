package intelligence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"salondesk/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

var errEmptyTranscript = errors.New("transcript has no turns to send")

// GeminiModel talks to Gemini through one shared client created at startup.
type GeminiModel struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient opens the API client. Close it on shutdown.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

func NewGeminiModel(client *genai.Client, modelName string) *GeminiModel {
	return &GeminiModel{client: client, modelName: modelName}
}

func (g *GeminiModel) Complete(ctx context.Context, req Request) (*Response, error) {
	contents, err := toContents(req.Turns)
	if err != nil {
		return nil, err
	}
	last := contents[len(contents)-1]
	if last.Role != roleUser {
		return nil, fmt.Errorf("last turn must come from the user side, got %q", last.Role)
	}

	// GenerativeModel carries per-request settings, so build one per call.
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(req.Temperature)
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(req.MaxOutputTokens)
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if len(req.Tools) > 0 {
		model.Tools = []*genai.Tool{toGenaiTool(req.Tools)}
	}

	session := model.StartChat()
	session.History = contents[:len(contents)-1]
	resp, err := session.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate error: %w", err)
	}
	return fromGenaiResponse(resp)
}

func toGenaiTool(specs []ToolSpec) *genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		schema := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
		for _, p := range spec.Params {
			schema.Properties[p.Name] = &genai.Schema{
				Type:        genaiType(p.Type),
				Description: p.Description,
				Enum:        p.Enum,
			}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  schema,
		})
	}
	return &genai.Tool{FunctionDeclarations: decls}
}

func genaiType(t ParamType) genai.Type {
	switch t {
	case ParamInteger:
		return genai.TypeInteger
	case ParamNumber:
		return genai.TypeNumber
	case ParamBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

// toContents maps the transcript onto Gemini's two roles. Tool results travel
// as function responses on the user side, and adjacent turns of the same role
// are merged because Gemini expects the roles to alternate.
func toContents(turns models.Transcript) ([]*genai.Content, error) {
	var out []*genai.Content
	appendParts := func(role string, parts ...genai.Part) {
		if len(parts) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, parts...)
			return
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}

	for _, turn := range turns {
		switch t := turn.(type) {
		case models.UserTurn:
			if strings.TrimSpace(t.Text) != "" {
				appendParts(roleUser, genai.Text(t.Text))
			}
		case models.AssistantTurn:
			var parts []genai.Part
			if t.Text != "" {
				parts = append(parts, genai.Text(t.Text))
			}
			for _, call := range t.ToolCalls {
				args, err := decodeObject(call.Arguments)
				if err != nil {
					return nil, fmt.Errorf("tool call %s: %w", call.ID, err)
				}
				parts = append(parts, genai.FunctionCall{Name: call.Name, Args: args})
			}
			appendParts(roleModel, parts...)
		case models.ToolResultTurn:
			payload, err := decodeObject(t.Payload)
			if err != nil {
				payload = map[string]any{"result": t.Payload}
			}
			appendParts(roleUser, genai.FunctionResponse{Name: t.ToolName, Response: payload})
		}
	}
	if len(out) == 0 {
		return nil, errEmptyTranscript
	}
	return out, nil
}

// decodeObject parses a JSON object. Non-object JSON is wrapped under "result".
func decodeObject(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	if obj, ok := v.(map[string]any); ok {
		return obj, nil
	}
	return map[string]any{"result": v}, nil
}

// fromGenaiResponse reads the first candidate. Gemini has no call ids, so each
// function call gets a fresh one.
func fromGenaiResponse(resp *genai.GenerateContentResponse) (*Response, error) {
	out := &Response{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out, nil
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			sb.WriteString(string(p))
		case genai.FunctionCall:
			args, err := json.Marshal(p.Args)
			if err != nil {
				return nil, fmt.Errorf("encode arguments for %s: %w", p.Name, err)
			}
			if p.Args == nil {
				args = []byte("{}")
			}
			out.ToolCalls = append(out.ToolCalls, models.ToolCall{
				ID:        "call_" + uuid.NewString(),
				Name:      p.Name,
				Arguments: string(args),
			})
		}
	}
	out.Text = strings.TrimSpace(sb.String())
	return out, nil
}
