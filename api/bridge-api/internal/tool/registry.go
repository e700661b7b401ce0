// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_tool accumulates streamed tool invocations from the AI
// peer, runs the locally registered implementation, and hands the result back
// so the conversation can continue.
package internal_tool

import (
	"fmt"
	"sort"
	"sync"

	internal_realtime "github.com/voxbridgeai/api/bridge-api/internal/realtime"
	internal_type "github.com/voxbridgeai/api/bridge-api/internal/type"
)

// Registry maps function names to local tool implementations. Registration
// happens at startup; lookups are concurrent.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]internal_type.Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]internal_type.Tool)}
}

func (r *Registry) Register(tool internal_type.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("tool %q already registered", tool.Name())
	}
	r.tools[tool.Name()] = tool
	return nil
}

func (r *Registry) Get(name string) (internal_type.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Definitions renders the catalog advertised to the AI peer, sorted by name
// for deterministic session updates.
func (r *Registry) Definitions() []internal_realtime.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]internal_realtime.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, internal_realtime.ToolDefinition{
			Type:        "function",
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Schema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
