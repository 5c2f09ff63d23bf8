package optchar

import (
	"fmt"
	"io"
)

// Result collects what every phase of a Run did. Nothing is printed while the
// algorithm runs; WriteReport and WriteListings format it afterwards.
type Result struct {
	Reparented  bool
	ListOnly    bool
	Warnings    []Warning
	Listings    []Listing
	Compactions []CompactResult
	Sliders     []SliderResult
	Quantized   []QuantizeResult

	Annotations *Annotations `json:"-"`
}

// Summary is the report line of one character.
func (r CompactResult) Summary() string {
	if r.Joints == r.Kept {
		return fmt.Sprintf("%s: keeping %d joints.", r.Character, r.Joints)
	}
	return fmt.Sprintf("%s: of %d joints, removing %d identity, %d static, and %d empty joints, leaving %d.",
		r.Character, r.Joints, r.Identity, r.Static, r.Empty, r.Kept)
}

func (r SliderResult) Summary() string {
	return fmt.Sprintf("%s: of %d sliders, removing %d, leaving %d.", r.Character, r.Sliders, len(r.Removed), r.Kept)
}

// WriteReport prints the human readable progress lines.
func (r *Result) WriteReport(w io.Writer) error {
	if r.Reparented {
		if _, err := fmt.Fprintln(w, "Reparenting hierarchy."); err != nil {
			return err
		}
	}
	for _, warn := range r.Warnings {
		if _, err := fmt.Fprintln(w, warn.String()); err != nil {
			return err
		}
	}
	for _, c := range r.Compactions {
		if _, err := fmt.Fprintln(w, c.Summary()); err != nil {
			return err
		}
	}
	for _, s := range r.Sliders {
		if s.Sliders == 0 {
			continue
		}
		if _, err := fmt.Fprintln(w, s.Summary()); err != nil {
			return err
		}
	}
	return nil
}

func (r *Result) WriteListings(w io.Writer) error {
	for _, l := range r.Listings {
		if _, err := l.WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}
