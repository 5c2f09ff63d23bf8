// Package optchar optimizes character rigs: it classifies joints and sliders
// by their animation, removes the ones that do not contribute to the visible
// result, reattaches what hung below them and requantizes vertex joint
// memberships.
package optchar

import (
	"log"

	"github.com/pkg/errors"

	"github.com/mogaika/optchar/character"
	"github.com/mogaika/optchar/config"
	"github.com/mogaika/optchar/utils"
)

type Optimizer struct {
	Options config.Options
}

func New(opts config.Options) *Optimizer {
	return &Optimizer{Options: opts}
}

// Run performs the whole pass over coll:
// user reparents (committed right away), classification, and then either the
// requested listing or removal planning, compaction, commit and quantization.
// Characters are processed one after another.
func (o *Optimizer) Run(coll *character.Collection) (*Result, error) {
	if err := o.Options.Validate(); err != nil {
		return nil, err
	}
	opts := o.Options
	res := &Result{Annotations: NewAnnotations()}

	if moved, warnings := ApplyUserReparents(coll, opts.Reparent); moved || len(warnings) != 0 {
		res.Warnings = append(res.Warnings, warnings...)
		if moved {
			res.Reparented = true
			for _, ch := range coll.Characters {
				if _, err := ch.DoReparent(); err != nil {
					return res, errors.Wrapf(err, "Failed to apply user reparents")
				}
			}
		}
	}

	for _, ch := range coll.Characters {
		Classify(ch, res.Annotations, opts.Tolerance)
	}

	if opts.ListHierarchy || opts.ListHierarchyAsCommands {
		res.ListOnly = true
		for _, ch := range coll.Characters {
			l := Hierarchy(ch, res.Annotations)
			l.AsCommands = opts.ListHierarchyAsCommands
			res.Listings = append(res.Listings, l)
		}
		return res, nil
	}

	plan := PlanRemovals(coll, res.Annotations, opts.Keep, opts.Expose, opts.KeepAll)
	res.Warnings = append(res.Warnings, plan.Warnings...)
	if opts.Dump {
		log.Printf("[optchar] plan:\n%s", utils.SDump(plan))
	}

	for _, ch := range coll.Characters {
		cr, err := Compact(ch, res.Annotations)
		if err != nil {
			return res, err
		}
		if _, err := ch.DoReparent(); err != nil {
			return res, errors.Wrapf(err, "Failed to restructure %q", ch.Name)
		}
		res.Compactions = append(res.Compactions, cr)
		res.Sliders = append(res.Sliders, CompactSliders(ch, res.Annotations))
	}

	// also run with a zero quantum: it normalizes
	for _, ch := range coll.Characters {
		qr, err := Quantize(ch, opts.Quantum)
		if err != nil {
			return res, err
		}
		res.Quantized = append(res.Quantized, qr)
	}

	if opts.Dump {
		log.Printf("[optchar] result:\n%s", utils.SDump(res.Compactions, res.Sliders, res.Quantized))
	}
	return res, nil
}
