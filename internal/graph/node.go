package graph

import (
	"math/rand"
	"reflect"

	"taskrun/internal/runopts"
	"taskrun/internal/task"
)

// RunnerNode is one task's place in a RunnerGraph. Parent/child edges are
// held as indices into the owning graph's arena rather than as direct
// pointers, since a node's parents reference it as a child and it
// references them as parents -- a cycle a pointer-based design would have
// to break some other way.
type RunnerNode struct {
	graph *RunnerGraph
	idx   NodeIndex

	task task.Task

	parents  []NodeIndex
	children []NodeIndex

	runComplete      bool
	childrenComplete bool
	complete         bool

	// runAttrs accumulates PRESENTED_ATTRS values inherited from completed
	// parents, to be patched onto this node's task before it runs.
	runAttrs map[string]any
}

func (n *RunnerNode) Task() task.Task        { return n.task }
func (n *RunnerNode) Parents() []NodeIndex   { return n.parents }
func (n *RunnerNode) Children() []NodeIndex  { return n.children }
func (n *RunnerNode) RunComplete() bool      { return n.runComplete }
func (n *RunnerNode) ChildrenComplete() bool { return n.childrenComplete }
func (n *RunnerNode) Complete() bool         { return n.complete }

func (n *RunnerNode) parentNodes() []*RunnerNode {
	out := make([]*RunnerNode, len(n.parents))
	for i, p := range n.parents {
		out[i] = n.graph.node(p)
	}
	return out
}

func (n *RunnerNode) childNodes() []*RunnerNode {
	out := make([]*RunnerNode, len(n.children))
	for i, c := range n.children {
		out[i] = n.graph.node(c)
	}
	return out
}

// reset restores fresh state and replaces task with a clone, recursing
// into children. visited guards against revisiting a node already reset
// via another path (the graph is not a tree: a node may have more than one
// parent).
func (n *RunnerNode) reset(visited map[NodeIndex]bool) {
	if visited[n.idx] {
		return
	}
	visited[n.idx] = true

	n.task = n.task.Clone()
	n.runComplete = false
	n.childrenComplete = false
	n.complete = false
	n.runAttrs = map[string]any{}

	for _, c := range n.childNodes() {
		c.reset(visited)
	}
}

// Forwards yields this node then recursively every child, skipping any
// node already yielded -- cycle-safe via a shared visited set (a node may
// be reachable from more than one parent, through diamonds that are not
// true cycles).
func (n *RunnerNode) Forwards() []*RunnerNode {
	var out []*RunnerNode
	visited := map[NodeIndex]bool{}
	n.collect(visited, &out, false)
	return out
}

// Reversed is Forwards but walking parents instead of children -- used to
// compute a node's full ancestor set.
func (n *RunnerNode) Reversed() []*RunnerNode {
	var out []*RunnerNode
	visited := map[NodeIndex]bool{}
	n.collect(visited, &out, true)
	return out
}

func (n *RunnerNode) collect(visited map[NodeIndex]bool, out *[]*RunnerNode, reversed bool) {
	if visited[n.idx] {
		return
	}
	visited[n.idx] = true
	*out = append(*out, n)
	next := n.childNodes()
	if reversed {
		next = n.parentNodes()
	}
	for _, nx := range next {
		nx.collect(visited, out, reversed)
	}
}

// CheckCanRun reports whether this node still needs to run -- i.e. it
// isn't already complete. Kept as a named predicate (rather than an inline
// check at the one callsite) because spec.md names it as its own step.
func (n *RunnerNode) CheckCanRun() bool { return !n.complete }

// FindOutstandingNodes walks upward from parents, skipping any node
// already in path, collecting ancestors that are run_complete (i.e. have
// run but not yet been torn down).
func (n *RunnerNode) FindOutstandingNodes(path map[NodeIndex]bool) map[NodeIndex]bool {
	out := map[NodeIndex]bool{}
	visited := map[NodeIndex]bool{}
	n.findOutstanding(path, visited, out)
	return out
}

func (n *RunnerNode) findOutstanding(path, visited, out map[NodeIndex]bool) {
	if visited[n.idx] {
		return
	}
	visited[n.idx] = true
	for _, p := range n.parentNodes() {
		if path[p.idx] {
			continue
		}
		if p.runComplete {
			out[p.idx] = true
		}
		p.findOutstanding(path, visited, out)
	}
}

// Execute orchestrates one node's setup/run/children/teardown cycle and
// returns the outstanding-ancestor set that still needs tearing down by
// whichever node invoked this one.
func (n *RunnerNode) Execute(outstandingNodes, path map[NodeIndex]bool, opts *runopts.Options) (map[NodeIndex]bool, error) {
	outstanding, err := n.executeRun(outstandingNodes, path, opts)
	if err != nil {
		return outstanding, err
	}
	if !n.runComplete {
		return outstanding, nil
	}

	path[n.idx] = true
	if opts.BetweenTasks != nil {
		opts.BetweenTasks()
	}

	for {
		before := append([]NodeIndex(nil), n.children...)
		if err := n.saveTheChildren(path, opts); err != nil {
			delete(path, n.idx)
			return outstanding, err
		}
		if sameIndexSet(before, n.children) {
			break
		}
		n.childrenComplete = false
	}

	delete(path, n.idx)

	if err := n.executeTeardown(opts); err != nil {
		return outstanding, err
	}
	return outstanding, nil
}

func sameIndexSet(a, b []NodeIndex) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[NodeIndex]bool{}
	for _, x := range a {
		seen[x] = true
	}
	for _, x := range b {
		if !seen[x] {
			return false
		}
	}
	return true
}

// executeRun implements spec.md's 4.5.3: clear surplus ancestors, bring
// every parent up to date, inherit their presented attrs, then run this
// node's own task.
func (n *RunnerNode) executeRun(outstandingNodes, path map[NodeIndex]bool, opts *runopts.Options) (map[NodeIndex]bool, error) {
	if len(outstandingNodes) > 0 {
		if err := n.graph.teardownOutstanding(outstandingNodes, n, opts); err != nil {
			return nil, err
		}
	}

	for _, p := range n.parentNodes() {
		if !p.runComplete {
			if _, err := p.executeRun(nil, path, opts); err != nil {
				return nil, err
			}
			if !p.runComplete {
				return n.FindOutstandingNodes(path), nil
			}
		}
		if p.task.Status().IsSet() {
			return n.FindOutstandingNodes(path), nil
		}
		patchMap(n.runAttrs, p.runAttrs)
	}

	outstanding := n.FindOutstandingNodes(path)

	if !n.CheckCanRun() {
		return outstanding, nil
	}

	if isSentinel(n.task) {
		n.runComplete = true
		return outstanding, nil
	}

	if opts.ConfigFilepath != "" {
		if err := n.task.SetConfigFilepath(opts.ConfigFilepath); err != nil {
			return nil, err
		}
	}
	for _, e := range opts.Emitters {
		n.task.Context().AddEmitter(e)
	}
	for _, e := range opts.Emitters {
		e.StartTask(n.task)
	}

	n.task.PatchAttrs(n.runAttrs)
	n.task.ExecuteRun(opts.Debug)

	if err := n.updateStatus(opts); err != nil {
		return outstanding, err
	}

	for _, name := range n.task.Class().PresentedAttrs {
		if v, ok := getFieldValue(n.task, name); ok {
			n.runAttrs[name] = v
		}
	}

	return outstanding, nil
}

// saveTheChildren selects runnable children -- in insertion order, or
// shuffled when opts.RandomOrder is set -- and drives each through
// Execute, repeating passes while progress is being made. It tears down
// any outstanding nodes left over once no further progress is possible and
// sets ChildrenComplete only if every child finished.
func (n *RunnerNode) saveTheChildren(path map[NodeIndex]bool, opts *runopts.Options) error {
	order := append([]NodeIndex(nil), n.children...)
	if opts.RandomOrder {
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	outstanding := map[NodeIndex]bool{}
	leftover := order

	for {
		if len(leftover) == 0 {
			break
		}
		tried := 0
		var nextLeftover []NodeIndex
		progressed := false

		for _, idx := range leftover {
			c := n.graph.node(idx)
			if c.complete {
				continue
			}
			tried++
			newOutstanding, err := c.Execute(outstanding, path, opts)
			if err != nil {
				return err
			}
			outstanding = newOutstanding
			if c.complete {
				progressed = true
			} else {
				nextLeftover = append(nextLeftover, idx)
			}
		}

		if tried == 0 {
			break
		}
		if !progressed && sameIndexSet(nextLeftover, leftover) {
			leftover = nextLeftover
			break
		}
		leftover = nextLeftover
	}

	if len(outstanding) > 0 {
		if err := n.graph.teardownOutstanding(outstanding, n, opts); err != nil {
			return err
		}
	}

	n.childrenComplete = len(leftover) == 0
	return nil
}

// updateStatus runs immediately after task.ExecuteRun: it marks
// run_complete, honors failfast, and -- when the task reported a terminal
// status -- short-circuits the whole subtree by stamping every descendant
// with the same outcome without ever running it.
func (n *RunnerNode) updateStatus(opts *runopts.Options) error {
	n.runComplete = true

	status := n.task.Status()
	if opts.Failfast && status.IsSet() && status != task.StatusSkip {
		if err := n.executeTeardown(opts); err != nil {
			return err
		}
		return runopts.ErrFinishRun
	}

	if !status.IsSet() {
		return nil
	}

	n.childrenComplete = true
	for _, d := range n.descendants() {
		d.childrenComplete = true
		d.complete = true
		d.task.SetFailure(status, n.task.LastError(), n.task.ErrorText())
	}
	return nil
}

// descendants returns every node reachable by following children,
// excluding self.
func (n *RunnerNode) descendants() []*RunnerNode {
	all := n.Forwards()
	out := make([]*RunnerNode, 0, len(all))
	for _, d := range all {
		if d.idx != n.idx {
			out = append(out, d)
		}
	}
	return out
}

// executeTeardown runs the task's teardown phase (skipped, unconditionally
// successful, for the synthetic sentinel root) and finishes the node. A
// CATASTROPHIC outcome aborts the whole run: it walks the ancestor chain
// calling finish_node on each so partially-built state is still marked
// complete, then raises StopRun.
func (n *RunnerNode) executeTeardown(opts *runopts.Options) error {
	if !isSentinel(n.task) {
		for _, e := range opts.Emitters {
			e.StartTask(n.task)
		}
		n.task.PatchAttrs(n.runAttrs)
		n.task.ExecuteTeardown(opts.Debug)
		for _, e := range opts.Emitters {
			e.EndTask(n.task)
		}

		if n.task.Status() == task.StatusCatastrophic {
			n.runComplete = false
			for _, a := range n.Reversed() {
				a.finishNode(opts)
			}
			return runopts.ErrStopRun
		}
	} else {
		n.task.SetFailure(task.StatusSuccess, nil, "")
	}

	n.runComplete = false
	n.finishNode(opts)
	return nil
}

// finishNode marks children_complete from the current child set. If not
// every child is complete, this node isn't done either: reset it to fresh
// so it can be visited again along another path. Otherwise mark complete.
func (n *RunnerNode) finishNode(opts *runopts.Options) {
	allComplete := true
	for _, c := range n.childNodes() {
		if !c.complete {
			allComplete = false
			break
		}
	}
	n.childrenComplete = allComplete

	if !allComplete {
		n.reset(map[NodeIndex]bool{})
		return
	}

	n.complete = true
	if opts.BetweenTasks != nil {
		opts.BetweenTasks()
	}
}

// teardownAll tears down this node and everything still standing beneath
// it, used by the top-level run loop to clean up after a full pass.
func (n *RunnerNode) teardownAll(opts *runopts.Options) error {
	outstanding := map[NodeIndex]bool{}
	for _, d := range n.Forwards() {
		if d.runComplete {
			outstanding[d.idx] = true
		}
	}
	if len(outstanding) == 0 {
		return nil
	}
	return n.graph.teardownOutstanding(outstanding, n, opts)
}

// teardownOutstanding tears down exactly those candidate nodes that are
// not ancestors of wrt, bottom-up: popping one at a time, tearing it down
// if it is surplus, and queuing its parents (which may now be surplus
// themselves once their only remaining child is gone).
func (g *RunnerGraph) teardownOutstanding(outstanding map[NodeIndex]bool, wrt *RunnerNode, opts *runopts.Options) error {
	ancestors := map[NodeIndex]bool{}
	for _, a := range wrt.Reversed() {
		ancestors[a.idx] = true
	}

	work := make([]NodeIndex, 0, len(outstanding))
	for idx := range outstanding {
		work = append(work, idx)
	}

	for len(work) > 0 {
		var idx NodeIndex
		if opts.RandomOrder {
			i := rand.Intn(len(work))
			idx = work[i]
			work = append(work[:i], work[i+1:]...)
		} else {
			idx = work[len(work)-1]
			work = work[:len(work)-1]
		}

		if ancestors[idx] {
			continue
		}
		n := g.node(idx)
		if !n.runComplete {
			continue
		}
		// A child still standing goes first; tearing it down re-queues n.
		standingChild := false
		for _, c := range n.childNodes() {
			if c.runComplete {
				standingChild = true
				break
			}
		}
		if standingChild {
			continue
		}
		if err := n.executeTeardown(opts); err != nil {
			return err
		}
		for _, pIdx := range n.parents {
			work = append(work, pIdx)
		}
	}
	return nil
}

func patchMap(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

// getFieldValue reads a PRESENTED_ATTRS value off the task's concrete
// struct by name via reflection, the same mechanism PatchAttrs uses to
// write them.
func getFieldValue(t task.Task, name string) (any, bool) {
	v := reflect.ValueOf(t)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	f := v.FieldByName(name)
	if !f.IsValid() || !f.CanInterface() {
		return nil, false
	}
	return f.Interface(), true
}
