package utils

import (
	"encoding/json"
)

// SafeJSONObject decodes a backend JSON column into a map, tolerating NULL,
// empty and malformed payloads. Stored payload shapes drift; readers must not
// crash on a bad row.
func SafeJSONObject(raw []byte) map[string]interface{} {
	if len(raw) == 0 {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]interface{}{}
	}
	return out
}

// SafeJSONStringList decodes a JSON array column into []string, coercing
// non-string members via fmt-free best effort and dropping anything else.
func SafeJSONStringList(raw []byte) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var members []interface{}
	if err := json.Unmarshal(raw, &members); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		if s, ok := m.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// MustJSON marshals or returns "{}" on failure. For log payloads only.
func MustJSON(obj interface{}) []byte {
	b, err := json.Marshal(obj)
	if err != nil {
		return []byte("{}")
	}
	return b
}
