package task

import (
	"errors"
	"sort"

	"github.com/hashicorp/go-multierror"

	"taskrun/internal/config"
)

// DebugFunc is a named gather-debug hook, invoked on a failed task instance
// before teardown. Name is used both for deduplication across the base
// hierarchy and as the subcontext title when it runs.
type DebugFunc struct {
	Name string
	Fn   func(Task) error
}

// Class is the merged, immutable schema for one Task type: the
// metaclass-equivalent aggregate spec.md requires to exist "as if it were a
// class constant" before any instance is built. It is produced once by
// NewClass and shared by every instance of the type.
type Class struct {
	Name           string
	Arguments      ArgSpec
	ConfigDefaults map[string]any
	PresentedAttrs []string
	Parents        []*Class
	DebugFuncs     []DebugFunc
	SetupDefined   bool
	RunDefined     bool
	Discover       bool

	// New constructs a fresh instance from args. It must bind the instance
	// to this Class (see BaseTask.Bind).
	New func(Args) Task
}

// ClassSpec is what a Task author declares; NewClass merges it against the
// schemas of Bases to produce a Class, playing the role the metaclass plays
// in the source language.
type ClassSpec struct {
	Name string
	// Bases lists the direct parent Task classes this one inherits its
	// merged schema from; it also becomes Class.Parents, defining graph
	// edges (spec: PARENTS = direct base classes that are themselves
	// Tasks).
	Bases          []*Class
	Arguments      ArgSpec
	ConfigDefaults map[string]any
	PresentedAttrs []string
	DebugFuncs     []DebugFunc
	SetupDefined   bool
	RunDefined     bool
	Discover       bool
	New            func(Args) Task
}

// NewClass merges spec against its Bases and validates the result.
func NewClass(spec ClassSpec) (*Class, error) {
	var errs *multierror.Error
	if spec.Name == "" {
		errs = multierror.Append(errs, errors.New("task: ClassSpec.Name is required"))
	}
	if spec.New == nil {
		errs = multierror.Append(errs, errors.New("task: ClassSpec.New is required"))
	}

	args := ArgSpec{}
	baseCfg := map[string]any{}
	presented := map[string]struct{}{}
	parents := make([]*Class, 0, len(spec.Bases))
	var debugFuncs []DebugFunc
	seenDebug := map[string]struct{}{}

	for _, base := range spec.Bases {
		if base == nil {
			continue
		}
		for k, v := range base.Arguments {
			args[k] = v
		}
		baseCfg = config.MergeDefaults(base.ConfigDefaults, baseCfg)
		for _, p := range base.PresentedAttrs {
			presented[p] = struct{}{}
		}
		parents = append(parents, base)
		for _, df := range base.DebugFuncs {
			if _, ok := seenDebug[df.Name]; !ok {
				seenDebug[df.Name] = struct{}{}
				debugFuncs = append(debugFuncs, df)
			}
		}
	}
	for k, v := range spec.Arguments {
		args[k] = v
	}
	mergedCfg := config.MergeDefaults(spec.ConfigDefaults, baseCfg)
	for _, p := range spec.PresentedAttrs {
		presented[p] = struct{}{}
	}
	for _, df := range spec.DebugFuncs {
		if _, ok := seenDebug[df.Name]; !ok {
			seenDebug[df.Name] = struct{}{}
			debugFuncs = append(debugFuncs, df)
		}
	}

	presentedList := make([]string, 0, len(presented))
	for p := range presented {
		presentedList = append(presentedList, p)
	}
	sort.Strings(presentedList)

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	return &Class{
		Name:           spec.Name,
		Arguments:      args,
		ConfigDefaults: mergedCfg,
		PresentedAttrs: presentedList,
		Parents:        parents,
		DebugFuncs:     debugFuncs,
		SetupDefined:   spec.SetupDefined,
		RunDefined:     spec.RunDefined,
		Discover:       spec.Discover,
		New:            spec.New,
	}, nil
}
