package tools

import (
	"sort"

	"github.com/kvit-s/kvit-agent/internal/llm"
)

// Registry manages enabled tools.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Enable adds a tool to the registry (makes it available for use)
func (r *Registry) Enable(t Tool) {
	r.tools[t.Name()] = t
}

// Disable removes a tool from the registry
func (r *Registry) Disable(name string) {
	delete(r.tools, name)
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

// IsEnabled returns true if a tool with the given name is enabled
func (r *Registry) IsEnabled(name string) bool {
	return r.tools[name] != nil
}

// ListTools returns a sorted list of all enabled tool names
func (r *Registry) ListTools() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns the API tool manifest in deterministic sorted order.
func (r *Registry) Specs() []llm.ToolSpec {
	names := r.ListTools()
	specs := make([]llm.ToolSpec, 0, len(names))
	for _, name := range names {
		tool := r.tools[name]
		specs = append(specs, llm.ToolSpec{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}
	return specs
}
