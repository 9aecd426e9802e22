package task

import "sort"

// ArgType restricts the value kinds an argument may carry.
type ArgType int

const (
	ArgInt ArgType = iota
	ArgFloat
	ArgBool
	ArgString
	ArgNull
)

// ArgSpec is the class-level mapping of argument name to allowed kind.
type ArgSpec map[string]ArgType

// Args is an ordered name-to-value mapping. Order is insertion order,
// preserved so Task identity stringification lists keys the way they were
// first set, matching the source language's dict ordering guarantee.
type Args struct {
	order []string
	vals  map[string]any
}

// NewArgs returns an empty Args ready for Set.
func NewArgs() Args {
	return Args{vals: map[string]any{}}
}

// Set assigns key, appending it to insertion order the first time it is
// seen.
func (a *Args) Set(key string, val any) {
	if a.vals == nil {
		a.vals = map[string]any{}
	}
	if _, exists := a.vals[key]; !exists {
		a.order = append(a.order, key)
	}
	a.vals[key] = val
}

// Get returns the value for key and whether it was present.
func (a Args) Get(key string) (any, bool) {
	v, ok := a.vals[key]
	return v, ok
}

// Keys returns argument names in insertion order.
func (a Args) Keys() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// SortedKeys returns argument names sorted lexically. The graph's
// deduplication key does not use it: that key is built from String, which
// lists keys in insertion order.
func (a Args) SortedKeys() []string {
	ks := a.Keys()
	sort.Strings(ks)
	return ks
}

// Len reports the number of arguments set.
func (a Args) Len() int { return len(a.order) }

// Clone returns a shallow copy: the same values, a distinct backing map and
// order slice, mirroring the source language's shallow dict copy.
func (a Args) Clone() Args {
	out := NewArgs()
	for _, k := range a.order {
		out.Set(k, a.vals[k])
	}
	return out
}
