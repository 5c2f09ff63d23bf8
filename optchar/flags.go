package optchar

import (
	"strings"

	"github.com/pkg/errors"
)

// Flags is the set of classification and decision marks of one component.
type Flags uint8

const (
	FlagStatic Flags = 1 << iota
	FlagIdentity
	FlagEmpty
	FlagKeep
	FlagRemove
	FlagExpose
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagStatic, "static"},
	{FlagIdentity, "identity"},
	{FlagEmpty, "empty"},
	{FlagKeep, "keep"},
	{FlagRemove, "remove"},
	{FlagExpose, "expose"},
}

func (f Flags) Has(o Flags) bool { return f&o == o }
func (f Flags) IsStatic() bool   { return f.Has(FlagStatic) }
func (f Flags) IsIdentity() bool { return f.Has(FlagIdentity) }
func (f Flags) IsEmpty() bool    { return f.Has(FlagEmpty) }
func (f Flags) IsKeep() bool     { return f.Has(FlagKeep) }
func (f Flags) IsRemove() bool   { return f.Has(FlagRemove) }
func (f Flags) IsExpose() bool   { return f.Has(FlagExpose) }
func (f Flags) Removable() bool  { return f&(FlagStatic|FlagEmpty) != 0 }

// Mark sets a keep/remove decision. Keep and remove exclude each other, the
// later call wins.
func (f Flags) Mark(o Flags) Flags {
	switch {
	case o.Has(FlagKeep):
		f &^= FlagRemove
	case o.Has(FlagRemove):
		f &^= FlagKeep | FlagExpose
	}
	return f | o
}

func (f Flags) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

func (f Flags) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText parses the "|" separated names written by MarshalText.
func (f *Flags) UnmarshalText(text []byte) error {
	var out Flags
	if len(text) != 0 {
	next:
		for _, part := range strings.Split(string(text), "|") {
			for _, fn := range flagNames {
				if fn.name == part {
					out |= fn.flag
					continue next
				}
			}
			return errors.Errorf("Unknown flag %q", part)
		}
	}
	*f = out
	return nil
}
