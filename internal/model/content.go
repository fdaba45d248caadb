package model

import "strings"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleModel     = "model"
	RoleTool      = "tool"
)

// Turn is a conversation turn as exchanged with the UI.
type Turn struct {
	Role    string `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

// FunctionCall represents a function invocation requested by the model.
type FunctionCall struct {
	ID   string         `json:"id,omitempty" bson:"id,omitempty"`
	Name string         `json:"name" bson:"name"`
	Args map[string]any `json:"args,omitempty" bson:"args,omitempty"`
}

// FunctionResponse represents the result of a function invocation.
type FunctionResponse struct {
	ID       string         `json:"id,omitempty" bson:"id,omitempty"`
	Name     string         `json:"name" bson:"name"`
	Response map[string]any `json:"response,omitempty" bson:"response,omitempty"`
	IsError  bool           `json:"is_error,omitempty" bson:"is_error,omitempty"`
}

// Part is a single piece of a conversation turn.
type Part struct {
	Text             string            `json:"text,omitempty" bson:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty" bson:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty" bson:"function_response,omitempty"`

	// ThoughtSignature is opaque provider state that must be replayed with
	// the function call it arrived on.
	ThoughtSignature []byte `json:"thought_signature,omitempty" bson:"thought_signature,omitempty"`
}

// Content is a single conversation turn, composed of one or more parts.
type Content struct {
	Parts []Part `json:"parts" bson:"parts"`
	Role  string `json:"role" bson:"role"`
}

// Text joins the text parts of c.
func (c *Content) Text() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// FunctionCalls returns the function calls requested in c, in order.
func (c *Content) FunctionCalls() []*FunctionCall {
	if c == nil {
		return nil
	}
	var calls []*FunctionCall
	for _, p := range c.Parts {
		if p.FunctionCall != nil {
			calls = append(calls, p.FunctionCall)
		}
	}
	return calls
}

// FromTurns converts UI turns into model history. Assistant turns become
// model-role content; turns with no text are dropped.
func FromTurns(turns []Turn) []*Content {
	contents := make([]*Content, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		role := t.Role
		switch role {
		case RoleAssistant, RoleModel:
			role = RoleModel
		case RoleTool:
		default:
			role = RoleUser
		}
		contents = append(contents, &Content{
			Role:  role,
			Parts: []Part{{Text: t.Content}},
		})
	}
	return contents
}
