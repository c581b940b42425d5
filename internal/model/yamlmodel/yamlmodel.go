// Package yamlmodel loads a statechart declaration from YAML into a
// model.Builder, for machines whose shape is data rather than Go source.
// Grounded on the teacher's internal/primitives.MachineConfig/StateConfig
// (same yaml-tagged field shapes: Initial, On, Entry, Exit, Children) and
// internal/production's YAML persister, using gopkg.in/yaml.v3 for decoding
// exactly as the teacher does. Entry/exit/effect/guard/timer behaviors
// cannot themselves be serialized, so a StateDecl names them by string ID
// and Build resolves each name against a caller-supplied Registry — the
// same string-ID-or-func ActionRef/GuardRef duality the teacher's
// TransitionConfig uses, specialized here to names-only since YAML can only
// ever supply the string half of that union.
package yamlmodel

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hsmrt/hsm/internal/model"
)

// TransitionDecl is one declared transition out of a state, or one guarded
// branch out of a choice pseudostate (only Guard and Target are read for a
// choice branch — see applyChild).
type TransitionDecl struct {
	Target   string `yaml:"target,omitempty"`
	Guard    string `yaml:"guard,omitempty"`
	Effect   string `yaml:"effect,omitempty"`
	Internal bool   `yaml:"internal,omitempty"`
	Local    bool   `yaml:"local,omitempty"`
	After    string `yaml:"after,omitempty"`
	Every    string `yaml:"every,omitempty"`
}

// StateDecl declares one vertex: a state (atomic or compound), or a choice
// pseudostate when Choice is non-empty.
type StateDecl struct {
	Initial  string                      `yaml:"initial,omitempty"`
	Final    bool                        `yaml:"final,omitempty"`
	Entry    []string                    `yaml:"entry,omitempty"`
	Exit     []string                    `yaml:"exit,omitempty"`
	Activity []string                    `yaml:"activity,omitempty"`
	Defer    []string                    `yaml:"defer,omitempty"`
	On       map[string][]TransitionDecl `yaml:"on,omitempty"`
	Choice   []TransitionDecl            `yaml:"choice,omitempty"`
	Children map[string]*StateDecl       `yaml:"children,omitempty"`
}

// MachineDecl is the top-level document: an ID (for diagnostics only) and
// the root state's declaration.
type MachineDecl struct {
	ID   string    `yaml:"id"`
	Root StateDecl `yaml:"root"`
}

// Parse decodes YAML source into a MachineDecl.
func Parse(src []byte) (*MachineDecl, error) {
	var decl MachineDecl
	if err := yaml.Unmarshal(src, &decl); err != nil {
		return nil, fmt.Errorf("yamlmodel: parse: %w", err)
	}
	return &decl, nil
}

// Registry resolves the string names a StateDecl/TransitionDecl uses for
// behaviors, guards and timer durations to the actual Go callbacks invoked
// at runtime. Build returns an error naming any reference it cannot
// resolve.
type Registry[E any] struct {
	Actions   map[string]model.ActionFunc[E]
	Guards    map[string]model.GuardFunc[E]
	Durations map[string]model.DurationFunc[E]
}

// Build elaborates decl against reg into a *model.Model[E], the same Model
// hsm.NewInstance/cthsm.Compile consume — a YAML-declared machine runs
// through the identical dispatcher as a Go-declared one.
func Build[E any](decl *MachineDecl, reg Registry[E]) (*model.Model[E], error) {
	rootName := decl.ID
	if rootName == "" {
		rootName = "Machine"
	}
	b := model.NewBuilder[E](rootName)
	errs := &errList{}
	applyState(errs, reg, b.Root(), &decl.Root)
	if err := errs.err(); err != nil {
		return nil, err
	}
	return b.Build()
}

type errList struct{ errs []error }

func (e *errList) add(err error) {
	if err != nil {
		e.errs = append(e.errs, err)
	}
}
func (e *errList) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	msg := "yamlmodel: "
	for i, err := range e.errs {
		if i > 0 {
			msg += "; "
		}
		msg += err.Error()
	}
	return errors.New(msg)
}

// applyState fills in one already-added composite or leaf vertex's
// behaviors, deferrals, transitions and children. Final and choice
// vertices never reach here: applyChild adds and finishes them directly,
// since neither takes entry/exit/activity/on declarations.
func applyState[E any](errs *errList, reg Registry[E], sb *model.StateBuilder[E], decl *StateDecl) {
	for _, name := range decl.Entry {
		fn, ok := reg.Actions[name]
		if !ok {
			errs.add(fmt.Errorf("unknown entry action %q", name))
			continue
		}
		sb.Entry(name, fn)
	}
	for _, name := range decl.Exit {
		fn, ok := reg.Actions[name]
		if !ok {
			errs.add(fmt.Errorf("unknown exit action %q", name))
			continue
		}
		sb.Exit(name, fn)
	}
	for _, name := range decl.Activity {
		fn, ok := reg.Actions[name]
		if !ok {
			errs.add(fmt.Errorf("unknown activity %q", name))
			continue
		}
		sb.Activity(name, fn)
	}
	if len(decl.Defer) > 0 {
		sb.Defer(decl.Defer...)
	}

	for eventName, transitions := range decl.On {
		for _, td := range transitions {
			applyTransition(errs, reg, sb.On(eventName), td)
		}
	}

	for childName, childDecl := range decl.Children {
		applyChild(errs, reg, sb, childName, childDecl)
	}

	if len(decl.Children) > 0 && decl.Initial != "" {
		sb.Initial(decl.Initial)
	}
}

func applyChild[E any](errs *errList, reg Registry[E], parent *model.StateBuilder[E], name string, decl *StateDecl) {
	switch {
	case len(decl.Choice) > 0:
		cb := parent.Choice(name)
		for _, branch := range decl.Choice {
			if branch.Guard == "" {
				cb.Default(branch.Target)
				continue
			}
			fn, ok := reg.Guards[branch.Guard]
			if !ok {
				errs.add(fmt.Errorf("unknown guard %q on choice %q", branch.Guard, name))
				continue
			}
			cb.Branch(branch.Guard, fn, branch.Target)
		}
	case decl.Final:
		parent.Final(name)
	case len(decl.Children) > 0:
		child := parent.Composite(name)
		applyState(errs, reg, child, decl)
	default:
		child := parent.Leaf(name)
		applyState(errs, reg, child, decl)
	}
}

func applyTransition[E any](errs *errList, reg Registry[E], tb *model.TransitionBuilder[E], td TransitionDecl) {
	if td.Target != "" {
		tb.To(td.Target)
	}
	if td.Internal {
		tb.Internal()
	}
	if td.Local {
		tb.Local()
	}
	if td.Guard != "" {
		fn, ok := reg.Guards[td.Guard]
		if !ok {
			errs.add(fmt.Errorf("unknown guard %q", td.Guard))
		} else {
			tb.Guard(td.Guard, fn)
		}
	}
	if td.Effect != "" {
		fn, ok := reg.Actions[td.Effect]
		if !ok {
			errs.add(fmt.Errorf("unknown effect %q", td.Effect))
		} else {
			tb.Effect(td.Effect, fn)
		}
	}
	if td.After != "" {
		fn, ok := reg.Durations[td.After]
		if !ok {
			errs.add(fmt.Errorf("unknown duration %q", td.After))
		} else {
			tb.After(fn)
		}
	}
	if td.Every != "" {
		fn, ok := reg.Durations[td.Every]
		if !ok {
			errs.add(fmt.Errorf("unknown duration %q", td.Every))
		} else {
			tb.Every(fn)
		}
	}
	tb.Build()
}
