package ecs

import (
	"reflect"
	"slices"
	"strings"
)

// DataKind distinguishes component data from resource data.
type DataKind uint8

const (
	// ComponentData is a component column.
	ComponentData DataKind = iota + 1
	// ResourceData is a singleton resource.
	ResourceData
)

func (k DataKind) String() string {
	switch k {
	case ComponentData:
		return "component"
	case ResourceData:
		return "resource"
	default:
		return "unknown"
	}
}

// DataID names one category of data in a World.
type DataID struct {
	Kind DataKind
	Type reflect.Type
}

// ComponentID returns the DataID of component type T.
func ComponentID[T any]() DataID {
	return DataID{Kind: ComponentData, Type: reflect.TypeFor[T]()}
}

// ResourceID returns the DataID of resource type T.
func ResourceID[T any]() DataID {
	return DataID{Kind: ResourceData, Type: reflect.TypeFor[T]()}
}

func (id DataID) String() string {
	return id.Kind.String() + " " + id.Type.String()
}

// AccessEntry is one declared read or write.
type AccessEntry struct {
	ID    DataID
	Write bool
}

// Access lists the data a parameter touches. Entries are kept with
// multiplicity so merging two parameters that read the same data stays
// visible to Conflicts.
type Access struct {
	entries []AccessEntry
}

// Read returns a copy of a with a read of id appended.
func (a Access) Read(id DataID) Access {
	return a.with(AccessEntry{ID: id})
}

// Write returns a copy of a with a write of id appended.
func (a Access) Write(id DataID) Access {
	return a.with(AccessEntry{ID: id, Write: true})
}

// Merge returns the concatenation of a and b.
func (a Access) Merge(b Access) Access {
	out := make([]AccessEntry, 0, len(a.entries)+len(b.entries))
	out = append(out, a.entries...)
	out = append(out, b.entries...)
	return Access{entries: out}
}

// Entries returns a copy of the declared entries.
func (a Access) Entries() []AccessEntry {
	return slices.Clone(a.entries)
}

// IsEmpty reports whether no data is declared.
func (a Access) IsEmpty() bool {
	return len(a.entries) == 0
}

// Conflicts returns every DataID written by one entry and touched by
// another. Two reads of the same data never conflict. The result is sorted
// by its string form.
func (a Access) Conflicts() []DataID {
	type tally struct {
		reads, writes int
	}
	counts := make(map[DataID]*tally)
	var order []DataID
	for _, e := range a.entries {
		t, ok := counts[e.ID]
		if !ok {
			t = &tally{}
			counts[e.ID] = t
			order = append(order, e.ID)
		}
		if e.Write {
			t.writes++
		} else {
			t.reads++
		}
	}

	var out []DataID
	for _, id := range order {
		t := counts[id]
		if t.writes > 0 && t.reads+t.writes > 1 {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, func(x, y DataID) int {
		return strings.Compare(x.String(), y.String())
	})
	return out
}

func (a Access) with(e AccessEntry) Access {
	out := make([]AccessEntry, 0, len(a.entries)+1)
	out = append(out, a.entries...)
	out = append(out, e)
	return Access{entries: out}
}
