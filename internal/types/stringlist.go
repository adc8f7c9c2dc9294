package types

import (
	"encoding/json"
	"sort"
)

// StringList is the domain representation of set-valued columns (granted
// scopes, tags, auth methods) that are persisted as serialized JSON text.
type StringList []string

// ParseStringList deserializes a stored list column. Malformed or empty
// input parses to an empty list so read paths stay resilient to partial
// writes; it never returns an error into business logic.
func ParseStringList(raw string) StringList {
	if raw == "" {
		return StringList{}
	}
	var out StringList
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return StringList{}
	}
	if out == nil {
		return StringList{}
	}
	return out
}

// Serialize renders the list for storage. An empty list serializes to "[]"
// rather than "" so round-trips are stable.
func (l StringList) Serialize() string {
	if l == nil {
		l = StringList{}
	}
	buf, err := json.Marshal(l)
	if err != nil {
		return "[]"
	}
	return string(buf)
}

func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// Normalize returns a sorted copy with duplicates removed.
func (l StringList) Normalize() StringList {
	seen := make(map[string]struct{}, len(l))
	out := make(StringList, 0, len(l))
	for _, v := range l {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Intersect returns the elements of l that are also in other, normalized.
func (l StringList) Intersect(other StringList) StringList {
	out := make(StringList, 0, len(l))
	for _, v := range l {
		if other.Contains(v) {
			out = append(out, v)
		}
	}
	return out.Normalize()
}

// Union returns the normalized union of l and other.
func (l StringList) Union(other StringList) StringList {
	return append(append(StringList{}, l...), other...).Normalize()
}
