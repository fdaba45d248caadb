package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/m2tx/margin_agent/internal/agent"
	"github.com/m2tx/margin_agent/internal/model"
	"google.golang.org/genai"
)

// Host runs reasoning cycles against the Gemini API and streams text as it
// arrives.
type Host struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, apiKey, modelName string) (*Host, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &Host{client: client, model: modelName}, nil
}

func (h *Host) Generate(ctx context.Context, req *agent.ModelRequest) (*model.Content, error) {
	config := &genai.GenerateContentConfig{
		Tools: toTools(req.Tools),
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		}
	}

	out := &model.Content{Role: model.RoleModel}
	for resp, err := range h.client.Models.GenerateContentStream(ctx, h.model, toGenAIContents(req.History), config) {
		if err != nil {
			return nil, fmt.Errorf("gemini: generate: %w", err)
		}
		parts, err := collectParts(resp)
		if err != nil {
			return nil, err
		}
		for _, p := range parts {
			if p.Text != "" {
				if err := req.Emit(p.Text); err != nil {
					return nil, err
				}
			}
			out.Parts = appendPart(out.Parts, p)
		}
	}
	return out, nil
}

func toTools(specs []agent.ToolSpec) []*genai.Tool {
	if len(specs) == 0 {
		return nil
	}
	functions := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, s := range specs {
		functions = append(functions, &genai.FunctionDeclaration{
			Name:                 s.Name,
			Description:          s.Description,
			ParametersJsonSchema: s.ParametersSchema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: functions}}
}

// collectParts converts the first candidate of one streamed chunk. Thought
// parts are skipped; signatures on function calls are kept for replay.
func collectParts(resp *genai.GenerateContentResponse) ([]model.Part, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return nil, nil
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil, nil
	}

	parts := make([]model.Part, 0, len(candidate.Content.Parts))
	for _, p := range candidate.Content.Parts {
		switch {
		case p == nil || p.Thought:
		case p.FunctionCall != nil:
			parts = append(parts, model.Part{
				FunctionCall: &model.FunctionCall{
					ID:   p.FunctionCall.ID,
					Name: p.FunctionCall.Name,
					Args: p.FunctionCall.Args,
				},
				ThoughtSignature: p.ThoughtSignature,
			})
		case p.Text != "":
			parts = append(parts, model.Part{Text: p.Text})
		}
	}
	return parts, nil
}

// appendPart merges consecutive text chunks into one part.
func appendPart(parts []model.Part, p model.Part) []model.Part {
	if p.Text != "" && len(parts) > 0 {
		last := &parts[len(parts)-1]
		if last.FunctionCall == nil && last.FunctionResponse == nil {
			last.Text += p.Text
			return parts
		}
	}
	return append(parts, p)
}

// toGenAIContents converts model history to genai contents. Tool turns are
// sent as user-role function responses; plain-text tool turns from the UI
// become user text.
func toGenAIContents(contents []*model.Content) []*genai.Content {
	result := make([]*genai.Content, 0, len(contents))
	for _, c := range contents {
		if c == nil {
			continue
		}
		role := genai.RoleUser
		if c.Role == model.RoleModel {
			role = genai.RoleModel
		}
		gc := &genai.Content{Role: role, Parts: make([]*genai.Part, 0, len(c.Parts))}
		for _, p := range c.Parts {
			gp := &genai.Part{Text: p.Text}
			if p.FunctionCall != nil {
				gp.FunctionCall = &genai.FunctionCall{
					ID:   p.FunctionCall.ID,
					Name: p.FunctionCall.Name,
					Args: p.FunctionCall.Args,
				}
				gp.ThoughtSignature = p.ThoughtSignature
			}
			if p.FunctionResponse != nil {
				gp.FunctionResponse = &genai.FunctionResponse{
					ID:       p.FunctionResponse.ID,
					Name:     p.FunctionResponse.Name,
					Response: p.FunctionResponse.Response,
				}
			}
			gc.Parts = append(gc.Parts, gp)
		}
		result = append(result, gc)
	}
	return result
}
