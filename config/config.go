// Package config provides the immutable description of offices and
// documents that the simulation runs against.
package config

import (
	"fmt"
	"time"
)

// OfficeSpec describes a single service counter: how many parallel workers
// ("counters") it runs, the service-time window those workers draw from,
// and how long a break lasts once one is taken.
type OfficeSpec struct {
	// Name uniquely identifies the office.
	Name string

	// Counters is the number of parallel workers serving this office's queue.
	// Must be >= 1.
	Counters int

	// MinService and MaxService bound the per-task service delay.
	// MaxService must be >= MinService.
	MinService time.Duration
	MaxService time.Duration

	// BreakDuration is how long the office pauses admissions once a break
	// transitions from pending to active. Zero means breaks are instantaneous.
	BreakDuration time.Duration
}

// DocumentSpec describes a named artifact, the office that issues it, and
// the other documents a customer must already hold before it can be issued.
type DocumentSpec struct {
	// Name uniquely identifies the document.
	Name string

	// IssuingOffice is the name of the OfficeSpec that produces this document.
	IssuingOffice string

	// Dependencies lists prerequisite document names in the order they
	// should be checked and, if missing, resolved.
	Dependencies []string
}

// CustomerProfile describes an applicant: the documents they want and how
// long after simulation start they arrive.
type CustomerProfile struct {
	ID                 string
	RequestedDocuments []string
	ArrivalDelay       time.Duration
}

// Config is the immutable, validated description of a running system: every
// office and document, indexed for O(1) lookup by name.
type Config struct {
	offices   map[string]OfficeSpec
	documents map[string]DocumentSpec

	officeOrder   []string
	documentOrder []string
}

// Build validates and assembles a Config from the given office and document
// lists. It rejects duplicate names, dangling office/document references,
// and cyclic dependency graphs.
func Build(offices []OfficeSpec, documents []DocumentSpec) (*Config, error) {
	c := &Config{
		offices:   make(map[string]OfficeSpec, len(offices)),
		documents: make(map[string]DocumentSpec, len(documents)),
	}

	for _, o := range offices {
		if o.Name == "" {
			return nil, fmt.Errorf("config: office with empty name")
		}
		if _, dup := c.offices[o.Name]; dup {
			return nil, fmt.Errorf("config: duplicate office %q", o.Name)
		}
		if o.Counters < 1 {
			return nil, fmt.Errorf("config: office %q must have at least 1 counter", o.Name)
		}
		if o.MaxService < o.MinService {
			return nil, fmt.Errorf("config: office %q maxService < minService", o.Name)
		}
		if o.BreakDuration < 0 {
			return nil, fmt.Errorf("config: office %q has negative breakDuration", o.Name)
		}
		c.offices[o.Name] = o
		c.officeOrder = append(c.officeOrder, o.Name)
	}

	for _, d := range documents {
		if d.Name == "" {
			return nil, fmt.Errorf("config: document with empty name")
		}
		if _, dup := c.documents[d.Name]; dup {
			return nil, fmt.Errorf("config: duplicate document %q", d.Name)
		}
		if _, ok := c.offices[d.IssuingOffice]; !ok {
			return nil, fmt.Errorf("config: document %q issuing office %q not found: %w", d.Name, d.IssuingOffice, ErrUnknownOffice)
		}
		c.documents[d.Name] = d
		c.documentOrder = append(c.documentOrder, d.Name)
	}

	for _, d := range documents {
		for _, dep := range d.Dependencies {
			if _, ok := c.documents[dep]; !ok {
				return nil, fmt.Errorf("config: document %q depends on unknown document %q: %w", d.Name, dep, ErrUnknownDocument)
			}
		}
	}

	if err := checkAcyclic(c.documents, c.documentOrder); err != nil {
		return nil, err
	}

	return c, nil
}

// Office looks up an OfficeSpec by name.
func (c *Config) Office(name string) (OfficeSpec, bool) {
	o, ok := c.offices[name]
	return o, ok
}

// Document looks up a DocumentSpec by name.
func (c *Config) Document(name string) (DocumentSpec, bool) {
	d, ok := c.documents[name]
	return d, ok
}

// Offices returns office names in the order they were supplied to Build.
func (c *Config) Offices() []string {
	out := make([]string, len(c.officeOrder))
	copy(out, c.officeOrder)
	return out
}

// Documents returns document names in the order they were supplied to Build.
func (c *Config) Documents() []string {
	out := make([]string, len(c.documentOrder))
	copy(out, c.documentOrder)
	return out
}

// checkAcyclic runs a depth-first topological check over the doc -> deps
// graph, returning ErrCyclicDependency if a cycle is found.
func checkAcyclic(docs map[string]DocumentSpec, order []string) error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(docs))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("config: cyclic document dependency at %q (path %v): %w", name, append(path, name), ErrCyclicDependency)
		}
		state[name] = visiting
		for _, dep := range docs[name].Dependencies {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, name := range order {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}
