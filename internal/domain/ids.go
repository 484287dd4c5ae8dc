package domain

import "slices"

// ContainsID reports whether id is in ids.
func ContainsID(ids []string, id string) bool {
	return slices.Contains(ids, id)
}

// AddID appends id unless it is already present. The bool reports whether ids changed.
func AddID(ids []string, id string) ([]string, bool) {
	if slices.Contains(ids, id) {
		return ids, false
	}
	return append(ids, id), true
}

// RemoveID drops every occurrence of id. The bool reports whether ids changed.
func RemoveID(ids []string, id string) ([]string, bool) {
	if !slices.Contains(ids, id) {
		return ids, false
	}
	out := make([]string, 0, len(ids)-1)
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out, true
}

// SameIDs reports whether a and b hold the same ids regardless of order and duplicates.
func SameIDs(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	other := make(map[string]struct{}, len(b))
	for _, v := range b {
		if _, ok := set[v]; !ok {
			return false
		}
		other[v] = struct{}{}
	}
	return len(set) == len(other)
}

// NonNil returns ids, or an empty slice when ids is nil.
func NonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
