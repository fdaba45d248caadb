package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m2tx/margin_agent/internal/agent"
	"github.com/m2tx/margin_agent/internal/model"
)

const defaultMaxTokens = 4096

// Host runs reasoning cycles against the Anthropic Messages API. The API is
// called without streaming, so each cycle's text is emitted in one chunk.
type Host struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

func New(apiKey, modelName string, opts ...option.RequestOption) (*Host, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &Host{
		client:    &client,
		model:     modelName,
		maxTokens: defaultMaxTokens,
	}, nil
}

func (h *Host) Generate(ctx context.Context, req *agent.ModelRequest) (*model.Content, error) {
	messages, err := toMessages(req.History)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(h.model),
		MaxTokens: h.maxTokens,
		Messages:  messages,
		Tools:     toTools(req.Tools),
	}
	if req.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemInstruction}}
	}

	response, err := h.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: messages: %w", err)
	}

	out := &model.Content{Role: model.RoleModel}
	for _, block := range response.Content {
		switch block := block.AsAny().(type) {
		case anthropic.TextBlock:
			if block.Text == "" {
				continue
			}
			if err := req.Emit(block.Text); err != nil {
				return nil, err
			}
			out.Parts = append(out.Parts, model.Part{Text: block.Text})
		case anthropic.ToolUseBlock:
			args := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return nil, fmt.Errorf("anthropic: decode tool input for %s: %w", block.Name, err)
				}
			}
			out.Parts = append(out.Parts, model.Part{
				FunctionCall: &model.FunctionCall{ID: block.ID, Name: block.Name, Args: args},
			})
		}
	}
	return out, nil
}

func toTools(specs []agent.ToolSpec) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, s := range specs {
		schema := inputSchema(s.ParametersSchema)
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        s.Name,
				Description: anthropic.String(s.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: schema.Properties,
					Required:   schema.Required,
				},
			},
		})
	}
	return tools
}

type objectSchema struct {
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required"`
}

// inputSchema extracts properties and required fields from any
// JSON-marshalable schema.
func inputSchema(schema any) objectSchema {
	out := objectSchema{Properties: map[string]any{}}
	if schema == nil {
		return out
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return out
	}
	var decoded objectSchema
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return out
	}
	if decoded.Properties != nil {
		out.Properties = decoded.Properties
	}
	out.Required = decoded.Required
	return out
}

// toMessages converts model history to Anthropic messages. Tool results
// travel in user messages; consecutive same-role contents are merged since
// the API expects alternating roles.
func toMessages(contents []*model.Content) ([]anthropic.MessageParam, error) {
	var messages []anthropic.MessageParam
	var lastRole anthropic.MessageParamRole

	for _, c := range contents {
		if c == nil {
			continue
		}
		blocks, err := toBlocks(c)
		if err != nil {
			return nil, err
		}
		if len(blocks) == 0 {
			continue
		}

		role := anthropic.MessageParamRoleUser
		if c.Role == model.RoleModel {
			role = anthropic.MessageParamRoleAssistant
		}

		if len(messages) > 0 && role == lastRole {
			messages[len(messages)-1].Content = append(messages[len(messages)-1].Content, blocks...)
			continue
		}
		if role == anthropic.MessageParamRoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		} else {
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		}
		lastRole = role
	}
	return messages, nil
}

func toBlocks(c *model.Content) ([]anthropic.ContentBlockParamUnion, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, p := range c.Parts {
		switch {
		case p.FunctionCall != nil:
			args := p.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    p.FunctionCall.ID,
					Name:  p.FunctionCall.Name,
					Input: args,
				},
			})
		case p.FunctionResponse != nil:
			raw, err := json.Marshal(p.FunctionResponse.Response)
			if err != nil {
				return nil, fmt.Errorf("anthropic: encode result of %s: %w", p.FunctionResponse.Name, err)
			}
			result := &anthropic.ToolResultBlockParam{
				ToolUseID: p.FunctionResponse.ID,
				Content: []anthropic.ToolResultBlockParamContentUnion{
					{OfText: &anthropic.TextBlockParam{Text: string(raw)}},
				},
			}
			if p.FunctionResponse.IsError {
				result.IsError = anthropic.Bool(true)
			}
			blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolResult: result})
		case p.Text != "":
			blocks = append(blocks, anthropic.NewTextBlock(p.Text))
		}
	}
	return blocks, nil
}
