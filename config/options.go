package config

import (
	"bytes"
	"io"
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultQuantum   = 0.01
	DefaultTolerance = 1e-6
)

// Reparent moves Child under Parent. An empty Parent means the character root.
type Reparent struct {
	Child  string `yaml:"child"`
	Parent string `yaml:"parent"`
}

func (r Reparent) String() string {
	return r.Child + "," + r.Parent
}

// UnmarshalYAML accepts both the command line form "child,parent" and a
// {child, parent} mapping.
func (r *Reparent) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		p, err := ParseReparent(node.Value)
		if err != nil {
			return errors.Wrapf(err, "line %d", node.Line)
		}
		*r = p
		return nil
	}
	type plain Reparent
	return node.Decode((*plain)(r))
}

type Options struct {
	ListHierarchy           bool       `yaml:"list_hierarchy"`
	ListHierarchyAsCommands bool       `yaml:"list_hierarchy_as_commands"`
	Keep                    []string   `yaml:"keep"`
	Expose                  []string   `yaml:"expose"`
	KeepAll                 bool       `yaml:"keep_all"`
	Reparent                []Reparent `yaml:"reparent"`
	Dump                    bool       `yaml:"dump"`

	// Quantum is the joint membership rounding unit, 0 keeps the normalized values.
	Quantum float64 `yaml:"quantum"`

	// Tolerance is the threshold used when comparing matrices and slider values.
	Tolerance float64 `yaml:"tolerance"`
}

func Default() Options {
	return Options{
		Quantum:   DefaultQuantum,
		Tolerance: DefaultTolerance,
	}
}

// LoadFile reads a YAML directive file on top of the defaults.
func LoadFile(path string) (Options, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Options{}, errors.Wrapf(err, "Cannot read directive file %q", path)
	}
	opts, err := Parse(data)
	if err != nil {
		return Options{}, errors.Wrapf(err, "Directive file %q", path)
	}
	return opts, nil
}

func Parse(data []byte) (Options, error) {
	opts := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil {
		if errors.Is(err, io.EOF) {
			return opts, nil
		}
		return Options{}, errors.Wrapf(err, "Unmarshaling error")
	}
	return opts, opts.Validate()
}

func (o Options) Validate() error {
	if o.Quantum < 0 {
		return errors.Errorf("Quantum must not be negative, got %v", o.Quantum)
	}
	if o.Tolerance < 0 {
		return errors.Errorf("Tolerance must not be negative, got %v", o.Tolerance)
	}
	if o.ListHierarchy && o.ListHierarchyAsCommands {
		return errors.Errorf("Only one listing mode may be requested")
	}
	for _, r := range o.Reparent {
		if r.Child == "" {
			return errors.Errorf("Reparent %q has no joint name", r.String())
		}
	}
	return nil
}

// Merge overlays the set values of other onto o. Lists are appended, flags
// are or-ed and numbers override only when set.
func (o Options) Merge(other Options, quantumSet, toleranceSet bool) Options {
	o.ListHierarchy = o.ListHierarchy || other.ListHierarchy
	o.ListHierarchyAsCommands = o.ListHierarchyAsCommands || other.ListHierarchyAsCommands
	o.KeepAll = o.KeepAll || other.KeepAll
	o.Dump = o.Dump || other.Dump
	o.Keep = append(append([]string(nil), o.Keep...), other.Keep...)
	o.Expose = append(append([]string(nil), o.Expose...), other.Expose...)
	o.Reparent = append(append([]Reparent(nil), o.Reparent...), other.Reparent...)
	if quantumSet {
		o.Quantum = other.Quantum
	}
	if toleranceSet {
		o.Tolerance = other.Tolerance
	}
	return o
}

// SplitNames splits a "joint[,joint...]" argument, dropping empty entries.
func SplitNames(arg string) []string {
	var names []string
	for _, n := range strings.Split(arg, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// ParseReparent parses "joint,parent". "joint," moves the joint to the root.
func ParseReparent(arg string) (Reparent, error) {
	words := strings.Split(arg, ",")
	if len(words) != 2 {
		return Reparent{}, errors.Errorf("-p requires a pair of strings separated by a comma, got %q", arg)
	}
	r := Reparent{Child: strings.TrimSpace(words[0]), Parent: strings.TrimSpace(words[1])}
	if r.Child == "" {
		return Reparent{}, errors.Errorf("-p requires a joint name, got %q", arg)
	}
	return r, nil
}
