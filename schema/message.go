package schema

import "strings"

// Role identifies who produced a Message.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleTool   Role = "tool"
)

// Message is the common interface for every turn in a conversation.
type Message interface {
	GetRole() Role
	GetContent() []ContentPart
	GetMetadata() map[string]any
	Text() string
}

// Usage reports token accounting for a model call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	CachedTokens int
}

func textOf(parts []ContentPart) string {
	var b strings.Builder
	first := true
	for _, p := range parts {
		tp, ok := p.(TextPart)
		if !ok {
			continue
		}
		if !first {
			b.WriteByte('\n')
		}
		b.WriteString(tp.Text)
		first = false
	}
	return b.String()
}

// SystemMessage carries instructions that set model behavior.
type SystemMessage struct {
	Parts    []ContentPart
	Metadata map[string]any
}

func NewSystemMessage(text string) *SystemMessage {
	return &SystemMessage{Parts: []ContentPart{TextPart{Text: text}}}
}

func (m *SystemMessage) GetRole() Role                { return RoleSystem }
func (m *SystemMessage) GetContent() []ContentPart     { return m.Parts }
func (m *SystemMessage) GetMetadata() map[string]any   { return m.Metadata }
func (m *SystemMessage) Text() string                  { return textOf(m.Parts) }

// HumanMessage is a turn authored by the end user.
type HumanMessage struct {
	Parts    []ContentPart
	Metadata map[string]any
}

func NewHumanMessage(text string) *HumanMessage {
	return &HumanMessage{Parts: []ContentPart{TextPart{Text: text}}}
}

func (m *HumanMessage) GetRole() Role              { return RoleHuman }
func (m *HumanMessage) GetContent() []ContentPart   { return m.Parts }
func (m *HumanMessage) GetMetadata() map[string]any { return m.Metadata }
func (m *HumanMessage) Text() string                { return textOf(m.Parts) }

// AIMessage is a turn produced by the model, optionally requesting tools.
type AIMessage struct {
	Parts     []ContentPart
	Metadata  map[string]any
	ToolCalls []ToolCall
	Usage     Usage
	ModelID   string
}

func NewAIMessage(text string) *AIMessage {
	return &AIMessage{Parts: []ContentPart{TextPart{Text: text}}}
}

func (m *AIMessage) GetRole() Role              { return RoleAI }
func (m *AIMessage) GetContent() []ContentPart   { return m.Parts }
func (m *AIMessage) GetMetadata() map[string]any { return m.Metadata }
func (m *AIMessage) Text() string                { return textOf(m.Parts) }

// ToolMessage carries the result of a tool invocation back to the model.
type ToolMessage struct {
	Parts      []ContentPart
	Metadata   map[string]any
	ToolCallID string
}

func NewToolMessage(toolCallID, text string) *ToolMessage {
	return &ToolMessage{
		Parts:      []ContentPart{TextPart{Text: text}},
		ToolCallID: toolCallID,
	}
}

func (m *ToolMessage) GetRole() Role              { return RoleTool }
func (m *ToolMessage) GetContent() []ContentPart   { return m.Parts }
func (m *ToolMessage) GetMetadata() map[string]any { return m.Metadata }
func (m *ToolMessage) Text() string                { return textOf(m.Parts) }
