package graph

import (
	"errors"
	"fmt"
	"reflect"

	"taskrun/internal/runopts"
	"taskrun/internal/task"
)

// NodeIndex addresses a RunnerNode inside a RunnerGraph's arena. Using an
// index rather than a pointer lets parent/child edges (which are mutually
// cyclic in general: a node's parents point at it and it points back at
// them as a child) live in plain slices without the graph becoming
// self-referential in a way the garbage collector has to reason about.
type NodeIndex int

const noIndex NodeIndex = -1

// sentinelTask is the synthetic root every RunnerGraph constructs: it never
// runs setup/run/teardown of its own, but it gives every top-level task
// passed to NewRunnerGraph a single common parent, so the "placeholder
// root" language in the execution algorithm (a trivial base task whose
// execute_teardown unconditionally succeeds) has one concrete node to mean,
// regardless of how many independent top-level tasks were supplied.
type sentinelTask struct {
	task.BaseTask
}

var sentinelClass *task.Class

func init() {
	var err error
	sentinelClass, err = task.NewClass(task.ClassSpec{
		Name: "RunnerGraph.root",
		New: func(args task.Args) task.Task {
			t := &sentinelTask{BaseTask: task.NewBaseTask(sentinelClass, args)}
			t.Bind(t)
			return t
		},
	})
	if err != nil {
		panic(fmt.Sprintf("graph: building sentinel root class: %v", err))
	}
}

func newSentinel() task.Task {
	return sentinelClass.New(task.NewArgs())
}

func isSentinel(t task.Task) bool {
	return t.Class() == sentinelClass
}

// nodeKey computes the identity spec.md's RunnerGraph uses for
// deduplication: the task's fully-qualified type name plus its string
// form, so that two tasks of the same class constructed with the same
// arguments collapse to one node unless the caller opts out.
func nodeKey(t task.Task) string {
	rt := reflect.TypeOf(t)
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	return fmt.Sprintf("%s.%s", rt.PkgPath()+"."+rt.Name(), t.String())
}

// RunnerGraph owns the arena of RunnerNodes and the registry used to
// deduplicate tasks by identity.
type RunnerGraph struct {
	nodes []*RunnerNode
	byKey map[string]NodeIndex
	root  NodeIndex
}

// NewRunnerGraph builds a graph rooted at a synthetic sentinel, with each of
// tasks added as one of its children.
func NewRunnerGraph(tasks []task.Task) (*RunnerGraph, error) {
	g := &RunnerGraph{byKey: map[string]NodeIndex{}, root: noIndex}
	rootIdx := g.newNode(newSentinel())
	g.root = rootIdx

	for _, t := range tasks {
		idx, err := g.addNode(t, false, map[string]bool{})
		if err != nil {
			return nil, err
		}
		g.linkParentChild(rootIdx, idx)
	}
	return g, nil
}

// Root returns the graph's synthetic root node.
func (g *RunnerGraph) Root() *RunnerNode {
	if g.root == noIndex {
		return nil
	}
	return g.nodes[g.root]
}

func (g *RunnerGraph) newNode(t task.Task) NodeIndex {
	n := &RunnerNode{
		graph:    g,
		idx:      NodeIndex(len(g.nodes)),
		task:     t,
		runAttrs: map[string]any{},
	}
	g.nodes = append(g.nodes, n)
	return n.idx
}

func (g *RunnerGraph) node(idx NodeIndex) *RunnerNode {
	if idx == noIndex {
		return nil
	}
	return g.nodes[idx]
}

// Node exposes arena lookup by index for callers (inspection tooling, the
// graph subcommand) that walk Children()/Parents() results.
func (g *RunnerGraph) Node(idx NodeIndex) *RunnerNode { return g.node(idx) }

// AddTask registers t (and, recursively, its declared parent classes) into
// the graph as a child of the sentinel root, returning the resulting node.
func (g *RunnerGraph) AddTask(t task.Task, allowDuplicate bool) (*RunnerNode, error) {
	idx, err := g.addNode(t, allowDuplicate, map[string]bool{})
	if err != nil {
		return nil, err
	}
	g.linkParentChild(g.root, idx)
	return g.nodes[idx], nil
}

// addNode implements spec.md's add_task: build (and register) parents
// before the node itself, then link the node as each parent's child.
// building guards against classes whose PARENTS declarations form a cycle:
// revisiting a key still under construction is an error rather than an
// infinite recursion.
func (g *RunnerGraph) addNode(t task.Task, allowDuplicate bool, building map[string]bool) (NodeIndex, error) {
	key := nodeKey(t)

	if !allowDuplicate {
		if idx, ok := g.byKey[key]; ok {
			return idx, nil
		}
	}
	if building[key] {
		return noIndex, cycleError(key)
	}
	building[key] = true
	defer delete(building, key)

	parentIdxs := make([]NodeIndex, 0, len(t.Class().Parents))
	for _, parentClass := range t.Class().Parents {
		if parentClass == nil {
			return noIndex, unknownParentError(key)
		}
		parentArgs := task.NewArgs()
		for name := range parentClass.Arguments {
			if v, ok := t.Args().Get(name); ok {
				parentArgs.Set(name, v)
			}
		}
		parentTask := parentClass.New(parentArgs)
		pIdx, err := g.addNode(parentTask, false, building)
		if err != nil {
			return noIndex, err
		}
		parentIdxs = append(parentIdxs, pIdx)
	}

	idx := g.newNode(t)
	g.nodes[idx].parents = parentIdxs
	if !allowDuplicate {
		g.byKey[key] = idx
	}
	for _, pIdx := range parentIdxs {
		g.linkChild(pIdx, idx)
	}
	return idx, nil
}

func (g *RunnerGraph) linkChild(parent, child NodeIndex) {
	p := g.node(parent)
	for _, c := range p.children {
		if c == child {
			return
		}
	}
	p.children = append(p.children, child)
}

// linkParentChild links parent and child in both directions. Declared
// PARENTS edges (computed in addNode) already populate a node's own
// .parents slice directly, so only the sentinel-to-top-level-task edge
// needs this: without it, the top-level task would know its parent is the
// sentinel only through the sentinel's children slice, and CleanGraph
// (which walks a removed node's .parents to prune it out of its parents'
// children lists) would leave a dangling index behind in the sentinel.
func (g *RunnerGraph) linkParentChild(parent, child NodeIndex) {
	g.linkChild(parent, child)
	c := g.node(child)
	for _, p := range c.parents {
		if p == parent {
			return
		}
	}
	c.parents = append(c.parents, parent)
}

// Reset recursively resets every reachable node to fresh state, replacing
// each node's Task with a clone, exactly like a fresh graph that has not
// yet run.
func (g *RunnerGraph) Reset() {
	if g.root == noIndex {
		return
	}
	visited := map[NodeIndex]bool{}
	g.node(g.root).reset(visited)
}

// CleanGraph removes every completed node from the arena bookkeeping
// (byKey and parents' children lists), clearing root if it is itself
// complete. It returns the removed nodes.
func (g *RunnerGraph) CleanGraph() []*RunnerNode {
	var removed []*RunnerNode
	for key, idx := range g.byKey {
		n := g.node(idx)
		if n == nil || !n.complete {
			continue
		}
		removed = append(removed, n)
		delete(g.byKey, key)
		for _, pIdx := range n.parents {
			p := g.node(pIdx)
			p.children = removeIndex(p.children, idx)
		}
	}
	if g.root != noIndex && g.node(g.root).complete {
		g.root = noIndex
	}
	return removed
}

func removeIndex(s []NodeIndex, target NodeIndex) []NodeIndex {
	out := s[:0]
	for _, v := range s {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

// Run drives the graph to completion, following spec.md's top-level loop:
// execute the root, tear down any still-standing branches, and optionally
// rerun failed nodes a bounded number of times.
func (g *RunnerGraph) Run(opts *runopts.Options) (bool, error) {
	failureIters := 0
	if opts.RerunFailures != nil {
		failureIters = *opts.RerunFailures
	}

	success := true
	for {
		if g.root == noIndex {
			break
		}
		root := g.node(g.root)

		_, err := root.Execute(map[NodeIndex]bool{}, map[NodeIndex]bool{}, opts)
		if err != nil {
			switch {
			case isFinishRun(err):
				root.teardownAll(opts)
				success = false
			case isStopRun(err):
				success = false
			default:
				g.finalize(opts)
				return false, err
			}
			break
		}
		root.teardownAll(opts)

		if g.root == noIndex {
			break
		}

		for _, n := range g.reachable() {
			if !n.task.Status().IsTerminalSuccess() && n.task.Status().IsSet() {
				success = false
			}
		}

		if opts.RerunFailures != nil && failureIters > 0 {
			failed := g.failedNodes()
			if len(failed) > 0 {
				for _, n := range failed {
					g.resetFailedAndAncestors(n)
				}
				failureIters--
				success = true
				continue
			}
		}

		if root.complete {
			break
		}
	}

	g.finalize(opts)
	return success, nil
}

func isFinishRun(err error) bool { return errors.Is(err, runopts.ErrFinishRun) }
func isStopRun(err error) bool   { return errors.Is(err, runopts.ErrStopRun) }

func (g *RunnerGraph) finalize(opts *runopts.Options) {
	for _, e := range opts.Emitters {
		e.Finalize()
	}
}

// reachable returns every node reachable from root by following both
// children and parents, skipping the sentinel itself. Declared ancestors of
// a top-level task are not children of the sentinel, so a children-only
// walk would miss them.
func (g *RunnerGraph) reachable() []*RunnerNode {
	if g.root == noIndex {
		return nil
	}
	var out []*RunnerNode
	visited := map[NodeIndex]bool{}
	queue := []NodeIndex{g.root}
	for len(queue) > 0 {
		n := g.node(queue[0])
		queue = queue[1:]
		if visited[n.idx] {
			continue
		}
		visited[n.idx] = true
		if !isSentinel(n.task) {
			out = append(out, n)
		}
		queue = append(append(queue, n.children...), n.parents...)
	}
	return out
}

func (g *RunnerGraph) failedNodes() []*RunnerNode {
	var out []*RunnerNode
	for _, n := range g.reachable() {
		if n.task.Status().IsSet() && !n.task.Status().IsTerminalSuccess() {
			out = append(out, n)
		}
	}
	return out
}

// resetFailedAndAncestors resets n (recursively) and every ancestor above
// it, so the next pass re-executes the whole chain that fed into the
// failure -- except n's own task identity is preserved by reset's clone
// semantics same as any other node.
func (g *RunnerGraph) resetFailedAndAncestors(n *RunnerNode) {
	visited := map[NodeIndex]bool{}
	n.reset(visited)
	for _, pIdx := range n.parents {
		g.resetAncestorChain(g.node(pIdx), visited)
	}
}

func (g *RunnerGraph) resetAncestorChain(n *RunnerNode, visited map[NodeIndex]bool) {
	if visited[n.idx] {
		return
	}
	n.reset(visited)
	for _, pIdx := range n.parents {
		g.resetAncestorChain(g.node(pIdx), visited)
	}
}
