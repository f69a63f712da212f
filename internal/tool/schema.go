package tool

// ToolParameter describes a single parameter of a tool. Instances are
// produced by the model during schema extraction and never mutated.
type ToolParameter struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required" yaml:"required"`
}

// ToolSchema is the structured description of a tool: its name, what it
// does, up to three relevance-ranked tags, and its parameters. In the normal
// flow it is derived by the model from a function's signature and
// documentation, never hand-constructed.
type ToolSchema struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Tags        []string        `json:"tags" yaml:"tags"`
	Parameters  []ToolParameter `json:"parameters" yaml:"parameters"`
}

// RegisteredTool is a materialized tool: the uniformly-invocable wrapper,
// the derived entry point, the content hash of the function's source text
// (the deduplication key) and the model-derived schema. Created only inside
// Materialize and never mutated afterwards.
type RegisteredTool struct {
	Invocable  *Invocable
	EntryPoint string
	CodeID     string
	Schema     ToolSchema
}
