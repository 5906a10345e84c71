package tools

import (
	"fmt"
	"strings"
)

// #region resolver

const memoryRef = "from_memory"

// ResolveInputs replaces every {"from_memory": "dot.path"} reference in
// input with the value found by walking memory along the path. A path
// that cannot be walked degrades to a sentinel error string so a
// malformed chain reference surfaces in the tool output instead of
// crashing the run.
func ResolveInputs(input map[string]any, memory map[string]any) map[string]any {
	resolved := make(map[string]any, len(input))
	for k, v := range input {
		resolved[k] = resolveValue(v, memory)
	}
	return resolved
}

func resolveValue(v any, memory map[string]any) any {
	ref, ok := v.(map[string]any)
	if !ok {
		return v
	}
	path, ok := ref[memoryRef].(string)
	if !ok {
		return v
	}

	var cur any = memory
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return sentinel(path, seg)
		}
		cur, ok = m[seg]
		if !ok {
			return sentinel(path, seg)
		}
	}
	return cur
}

func sentinel(path, segment string) string {
	return fmt.Sprintf("<error: path %q not found in memory (missing segment %q)>", path, segment)
}

// #endregion resolver
