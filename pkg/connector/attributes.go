package connector

import (
	"encoding/json"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
)

// FoldPath turns a dotted attribute path and a value into a nested object:
// "a.b.c" becomes {"a": {"b": {"c": value}}}. A path without dots yields a
// single-key object.
func FoldPath(path string, value interface{}) map[string]interface{} {
	segments := strings.Split(path, ".")

	var node interface{} = value
	for i := len(segments) - 1; i >= 0; i-- {
		node = map[string]interface{}{segments[i]: node}
	}
	return node.(map[string]interface{})
}

// MergeFragments deep-merges object fragments left to right with JSON merge
// patch semantics. Sibling keys under a shared parent survive; later scalars
// and arrays replace earlier ones.
func MergeFragments(fragments ...map[string]interface{}) (map[string]interface{}, error) {
	doc := []byte("{}")
	for _, f := range fragments {
		if len(f) == 0 {
			continue
		}
		patch, err := json.Marshal(f)
		if err != nil {
			return nil, ErrValidation("attribute value is not serializable").WithCause(err)
		}
		doc, err = jsonpatch.MergePatch(doc, patch)
		if err != nil {
			return nil, ErrInternal("failed to merge attribute fragments").WithCause(err)
		}
	}

	out := make(map[string]interface{})
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, ErrInternal("failed to decode merged attributes").WithCause(err)
	}
	return out, nil
}
