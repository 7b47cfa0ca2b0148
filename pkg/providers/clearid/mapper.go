package clearid

import (
	"sort"

	"github.com/anirudhbiyani/clearid-connector/pkg/connector"
)

// rolesAttribute is the multi-valued account attribute holding role tokens.
const rolesAttribute = "roles"

// AttributeMapper turns flat account attribute paths into ClearID identity
// documents.
type AttributeMapper struct {
	// ApproverAttribute maps to the first entry of companyData.approvers.
	ApproverAttribute string
}

// Fragment returns the nested document for one attribute path and value.
func (m AttributeMapper) Fragment(path string, value interface{}) map[string]interface{} {
	if path == m.ApproverAttribute {
		return map[string]interface{}{
			"companyData": map[string]interface{}{
				"approvers": []interface{}{
					map[string]interface{}{"approverId": value},
				},
			},
		}
	}
	return connector.FoldPath(path, value)
}

// CreateDocument merges the fragments of every attribute except roles.
// Paths are merged in sorted order so the result does not depend on map
// iteration.
func (m AttributeMapper) CreateDocument(attributes map[string]interface{}) (map[string]interface{}, error) {
	paths := make([]string, 0, len(attributes))
	for path := range attributes {
		if path == rolesAttribute {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	fragments := make([]map[string]interface{}, 0, len(paths))
	for _, path := range paths {
		fragments = append(fragments, m.Fragment(path, attributes[path]))
	}
	return connector.MergeFragments(fragments...)
}

// SetPatch returns the patch document for a single-value set, carrying eTag
// at the top level.
func (m AttributeMapper) SetPatch(path string, value interface{}, eTag string) map[string]interface{} {
	patch := m.Fragment(path, value)
	patch["eTag"] = eTag
	return patch
}
