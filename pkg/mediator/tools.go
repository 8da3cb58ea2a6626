package mediator

import "fmt"

// Tool enumerates the external operations the mediator may run.
type Tool int

const (
	ListAttrs Tool = iota
	GetAttr
	SetAttr
	DeleteAttr
	Search
	Reindex
	GetMetadata
)

// toolSpec binds a tool to its one allow-listed binary.
type toolSpec struct {
	name   string
	binary string
}

var toolSpecs = map[Tool]toolSpec{
	ListAttrs:   {name: "list-attrs", binary: "xattr"},
	GetAttr:     {name: "get-attr", binary: "xattr"},
	SetAttr:     {name: "set-attr", binary: "xattr"},
	DeleteAttr:  {name: "delete-attr", binary: "xattr"},
	Search:      {name: "search", binary: "mdfind"},
	Reindex:     {name: "reindex", binary: "mdimport"},
	GetMetadata: {name: "get-metadata", binary: "mdls"},
}

// Tools returns every known tool in declaration order.
func Tools() []Tool {
	return []Tool{ListAttrs, GetAttr, SetAttr, DeleteAttr, Search, Reindex, GetMetadata}
}

func (t Tool) String() string {
	if spec, ok := toolSpecs[t]; ok {
		return spec.name
	}
	return fmt.Sprintf("Tool(%d)", int(t))
}

// Binary returns the executable name bound to t, or "" for unknown tools.
func (t Tool) Binary() string {
	return toolSpecs[t].binary
}

// Valid reports whether t is one of the enumerated tools.
func (t Tool) Valid() bool {
	_, ok := toolSpecs[t]
	return ok
}

// Binaries returns the distinct allow-listed executable names.
func Binaries() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range Tools() {
		b := t.Binary()
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	return out
}

func isAllowedBinary(binary string) bool {
	for _, b := range Binaries() {
		if b == binary {
			return true
		}
	}
	return false
}
