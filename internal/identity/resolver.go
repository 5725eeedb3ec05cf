// Package identity maps chat handles to platform user IDs. The status engine
// consumes resolution best-effort; a miss never blocks a workflow operation.
package identity

import (
	"context"
	"fmt"
	"strings"

	"hiretrack/pkg/sentinel"
)

// StaticResolver answers lookups from a fixed handle directory, typically
// loaded from configuration. Handles are matched case-insensitively.
type StaticResolver struct {
	byHandle map[string]int64
}

// NewStatic builds a resolver over the given handle to user ID directory.
func NewStatic(directory map[string]int64) *StaticResolver {
	byHandle := make(map[string]int64, len(directory))
	for handle, id := range directory {
		byHandle[strings.ToLower(strings.TrimPrefix(handle, "@"))] = id
	}
	return &StaticResolver{byHandle: byHandle}
}

// Resolve returns the user ID registered for the handle.
func (r *StaticResolver) Resolve(_ context.Context, handle string) (int64, error) {
	id, ok := r.byHandle[strings.ToLower(strings.TrimPrefix(handle, "@"))]
	if !ok {
		return 0, fmt.Errorf("handle %q: %w", handle, sentinel.ErrNotFound)
	}
	return id, nil
}
