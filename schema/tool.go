package schema

// ToolCall is a model's request to invoke a named tool with the given
// arguments, encoded as a JSON string (not a parsed map, since the
// model is the only one required to produce valid JSON for it).
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolResult is the outcome of executing a ToolCall.
type ToolResult struct {
	CallID  string
	Content []ContentPart
	IsError bool
}

// ToolDefinition describes a tool a ChatModel may be bound to, in the
// shape most providers expect: a name, a human description, and a JSON
// Schema object for the arguments.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}
