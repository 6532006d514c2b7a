// Package subagent holds the fixed catalog of agent specializations:
// each one a system prompt, a tool subset and routing trigger phrases,
// executed through the shared agent engine.
package subagent

import (
	"context"
)

// Handler runs one sub-agent invocation and returns its textual answer.
type Handler func(ctx context.Context, message string) (string, error)

// Definition is one sub-agent: defined once at startup, immutable,
// looked up by key.
type Definition struct {
	Key         string
	Description string
	Triggers    []string // phrases for keyword fast-path routing
	Handler     Handler
}

// Catalog is an ordered set of definitions. Iteration order is the
// definition order, which is also the routing tie-break order.
type Catalog struct {
	defs  []Definition
	byKey map[string]int
}

// NewCatalog builds a catalog. Duplicate keys: last definition wins but
// keeps the first position, mirroring the tool registry's overwrite rule.
func NewCatalog(defs ...Definition) *Catalog {
	c := &Catalog{byKey: make(map[string]int, len(defs))}
	for _, d := range defs {
		if i, ok := c.byKey[d.Key]; ok {
			c.defs[i] = d
			continue
		}
		c.byKey[d.Key] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	return c
}

// Get looks a definition up by key.
func (c *Catalog) Get(key string) (Definition, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// All returns the definitions in catalog order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Keys returns the keys in catalog order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.defs))
	for i, d := range c.defs {
		keys[i] = d.Key
	}
	return keys
}

// Len returns the number of definitions.
func (c *Catalog) Len() int { return len(c.defs) }
