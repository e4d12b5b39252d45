package catalog

import "strings"

// View holds a fetched result set and filters it in memory. The lowercase
// search text of every item is built once when the view is created.
type View[T any] struct {
	items []T
	index []string
}

func NewView[T any](items []T, fields func(T) []string) *View[T] {
	v := &View[T]{items: items, index: make([]string, len(items))}
	for i, it := range items {
		v.index[i] = strings.ToLower(strings.Join(fields(it), "\x00"))
	}
	return v
}

func (v *View[T]) All() []T {
	out := make([]T, len(v.items))
	copy(out, v.items)
	return out
}

func (v *View[T]) Len() int {
	return len(v.items)
}

// Filter keeps the items whose search fields contain term, case-insensitively,
// in their original order. A blank term returns the full set.
func (v *View[T]) Filter(term string) []T {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return v.All()
	}
	out := make([]T, 0, len(v.items))
	for i, hay := range v.index {
		if strings.Contains(hay, term) {
			out = append(out, v.items[i])
		}
	}
	return out
}

// Where narrows the view with an extra predicate; used for the package category chips.
func (v *View[T]) Where(keep func(T) bool) *View[T] {
	out := &View[T]{}
	for i, it := range v.items {
		if keep(it) {
			out.items = append(out.items, it)
			out.index = append(out.index, v.index[i])
		}
	}
	return out
}
