// Package capabilities implements embedding policy loading and
// enforcement. A policy restricts which syntax node kinds a program
// may use and which registered functions it may call, so hosts can
// run untrusted programs with a reduced surface.
package capabilities

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/remexlang/remex/pkg/compiler"
	"github.com/remexlang/remex/pkg/registry"
)

// Policy is a resolved embedding policy.
type Policy struct {
	nodes         compiler.NodeSet
	deniedFuncs   map[string]bool
	allowedFuncs  map[string]bool
	restrictFuncs bool
}

// PolicyFile is the JSON structure of a policy file. Deny entries
// override allow entries; an absent allowNodes list allows every node
// kind, and an absent allowFunctions list allows every function.
type PolicyFile struct {
	AllowNodes     []string `json:"allowNodes,omitempty"`
	DenyNodes      []string `json:"denyNodes,omitempty"`
	AllowFunctions []string `json:"allowFunctions,omitempty"`
	DenyFunctions  []string `json:"denyFunctions,omitempty"`
}

// AllowAll returns the default policy: every node kind and every
// registered function is permitted.
func AllowAll() *Policy {
	return &Policy{nodes: compiler.AllNodes()}
}

// LoadPolicy reads and resolves a policy file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	var pf PolicyFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	return Build(&pf)
}

// Build resolves a policy file into an enforceable Policy.
func Build(pf *PolicyFile) (*Policy, error) {
	all := compiler.AllNodes()

	nodes := compiler.NodeSet{}
	if len(pf.AllowNodes) == 0 {
		nodes = all
	} else {
		for kind := range all {
			nodes[kind] = false
		}
		for _, kind := range pf.AllowNodes {
			if _, known := all[kind]; !known {
				return nil, fmt.Errorf("policy allows unknown node kind %q", kind)
			}
			nodes[kind] = true
		}
	}
	for _, kind := range pf.DenyNodes {
		if _, known := all[kind]; !known {
			return nil, fmt.Errorf("policy denies unknown node kind %q", kind)
		}
		nodes[kind] = false
	}

	p := &Policy{
		nodes:       nodes,
		deniedFuncs: make(map[string]bool, len(pf.DenyFunctions)),
	}
	if len(pf.AllowFunctions) > 0 {
		p.restrictFuncs = true
		p.allowedFuncs = make(map[string]bool, len(pf.AllowFunctions))
		for _, name := range pf.AllowFunctions {
			p.allowedFuncs[name] = true
		}
	}
	for _, name := range pf.DenyFunctions {
		p.deniedFuncs[name] = true
	}
	return p, nil
}

// Nodes returns the node kinds this policy enables, in the form the
// compiler consumes.
func (p *Policy) Nodes() compiler.NodeSet {
	return p.nodes
}

// AllowsFunction reports whether the named function may be called
// under this policy.
func (p *Policy) AllowsFunction(name string) bool {
	if p.deniedFuncs[name] {
		return false
	}
	if p.restrictFuncs {
		return p.allowedFuncs[name]
	}
	return true
}

// Filter returns a registry holding only the functions this policy
// permits. Calls to filtered functions fail compilation as unknown,
// surfacing the restriction as an ordinary diagnostic.
func (p *Policy) Filter(base *registry.Registry) *registry.Registry {
	out := registry.NewRegistry()
	for _, name := range base.Names() {
		if !p.AllowsFunction(name) {
			continue
		}
		if fn, ok := base.Get(name); ok {
			out.Register(*fn)
		}
	}
	return out
}
