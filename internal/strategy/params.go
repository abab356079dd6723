package strategy

import (
	"fmt"
	"sort"

	"quantpak/internal/domain"
)

// Params is a named set of numeric strategy parameters. The set of names is
// fixed at construction; lookups and updates on names outside that set fail
// with domain.ErrUnknownParameter.
type Params struct {
	values map[string]float64
}

// NewParams creates a Params holding a copy of the given values.
func NewParams(values map[string]float64) Params {
	m := make(map[string]float64, len(values))
	for k, v := range values {
		m[k] = v
	}
	return Params{values: m}
}

// Get returns the value of the named parameter.
func (p Params) Get(name string) (float64, error) {
	v, ok := p.values[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownParameter, name)
	}
	return v, nil
}

// Set updates the value of an existing parameter. New names cannot be
// introduced after construction.
func (p Params) Set(name string, value float64) error {
	if _, ok := p.values[name]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownParameter, name)
	}
	p.values[name] = value
	return nil
}

// Names returns the sorted parameter names.
func (p Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for name := range p.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
