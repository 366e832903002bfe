// Package migrate upgrades versioned documents one schema step at a time.
//
// A document is the generic map a TOML or JSON decoder produces. Each Step
// edits it in place to reach the next version; a Chain holds the steps of
// one file format and runs the ones a document still needs.
package migrate

import (
	"fmt"
	"log/slog"
	"sort"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Step upgrades a document from To-1 to To.
type Step struct {
	To int
	// Name is logged when the step runs.
	Name  string
	Apply func(doc map[string]any) error
}

// StepError reports the step that failed. Steps before it have already
// edited the document.
type StepError struct {
	Target string
	To     int
	Name   string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s migration to v%d (%s): %v", e.Target, e.To, e.Name, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ///////////////////////////////////////////////
// Chain
// ///////////////////////////////////////////////

// Chain is the upgrade path of one file format.
type Chain struct {
	// Target names the format in logs and errors.
	Target string
	// Latest is the version the program reads and writes.
	Latest int

	steps []Step
}

// Add registers s. Steps may be added in any order; a second step to the
// same version, or one past Latest, is a programming error and panics.
func (c *Chain) Add(s Step) {
	if s.To < 2 || s.To > c.Latest {
		panic(fmt.Sprintf("migrate: %s step %q targets v%d outside 2..%d", c.Target, s.Name, s.To, c.Latest))
	}
	for _, have := range c.steps {
		if have.To == s.To {
			panic(fmt.Sprintf("migrate: %s has two steps to v%d (%q, %q)", c.Target, s.To, have.Name, s.Name))
		}
	}
	c.steps = append(c.steps, s)
	sort.Slice(c.steps, func(i, j int) bool { return c.steps[i].To < c.steps[j].To })
}

// Pending returns the steps a document at version from still needs.
func (c *Chain) Pending(from int) []Step {
	var out []Step
	for _, s := range c.steps {
		if s.To > from {
			out = append(out, s)
		}
	}
	return out
}

// Upgrade applies the pending steps to doc and returns the version reached.
// A document newer than Latest is left untouched. On failure the returned
// version is the last one that applied cleanly.
func (c *Chain) Upgrade(doc map[string]any, from int) (int, error) {
	at := from
	for _, s := range c.Pending(from) {
		slog.Info("migrating", "target", c.Target, "from", at, "to", s.To, "step", s.Name)
		if err := s.Apply(doc); err != nil {
			return at, &StepError{Target: c.Target, To: s.To, Name: s.Name, Err: err}
		}
		at = s.To
	}
	return at, nil
}
