package dump

import (
	"sync"

	"github.com/sirkon/pcg/internal/engine"
	"github.com/sirkon/pcg/internal/mir"
)

// Data is a serializable form of analysis results.
type Data struct {
	Name         string        `json:"name"`
	Blocks       []Block       `json:"blocks"`
	Instructions []Instruction `json:"instructions"`
	Successors   []Successor   `json:"successors"`
	Iterations   []Iteration   `json:"iterations"`
	Reports      []Report      `json:"reports"`
}

// State is a domain snapshot.
type State struct {
	// Capabilities maps places to capability names.
	Capabilities map[string]string `json:"capabilities"`
	Edges        []Edge            `json:"edges"`

	// Latest maps places to locations of their latest writes.
	Latest map[string]string `json:"latest"`
}

// Edge is a borrow graph edge.
type Edge struct {
	Kind       string `json:"kind"`
	Edge       string `json:"edge"`
	Conditions string `json:"conditions,omitempty"`
}

// Block is the fixpoint outcome of a reached block.
type Block struct {
	Block      int   `json:"block"`
	Iterations int   `json:"iterations"`
	Entry      State `json:"entry"`
	Exit       State `json:"exit"`
}

// Instruction holds states after every phase of an instruction and actions
// done in each, both keyed by phase name.
type Instruction struct {
	Block       int                 `json:"block"`
	Statement   int                 `json:"statement"`
	Instruction string              `json:"instruction"`
	States      map[string]State    `json:"states"`
	Actions     map[string][]string `json:"actions"`
}

// Successor holds capability actions turning a block exit state into the
// entry state of a successor.
type Successor struct {
	From    int      `json:"from"`
	To      int      `json:"to"`
	Actions []string `json:"actions"`
}

// Iteration is the entry state of a block at a fixpoint visit.
type Iteration struct {
	Block     int   `json:"block"`
	Iteration int   `json:"iteration"`
	Entry     State `json:"entry"`
}

// Report is a failed consistency check.
type Report struct {
	Phase   string `json:"phase"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Recorder collects fixpoint iterations. It implements engine.Recorder.
type Recorder struct {
	mu         sync.Mutex
	iterations []Iteration
}

var _ engine.Recorder = &Recorder{}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordIteration implements engine.Recorder.
func (r *Recorder) RecordIteration(block mir.BlockID, iteration int, entry *engine.Domain) {
	it := Iteration{
		Block:     int(block),
		Iteration: iteration,
		Entry:     stateOf(entry),
	}

	r.mu.Lock()
	r.iterations = append(r.iterations, it)
	r.mu.Unlock()
}

// Iterations returns recorded iterations in recording order.
func (r *Recorder) Iterations() []Iteration {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Iteration(nil), r.iterations...)
}

// Collect converts results. The recorder may be nil.
func Collect(res *engine.Results, rec *Recorder) *Data {
	data := &Data{Name: res.Body().Name}

	for _, b := range res.Blocks() {
		br, _ := res.Block(b)
		data.Blocks = append(data.Blocks, Block{
			Block:      int(b),
			Iterations: br.Iterations,
			Entry:      stateOf(br.Entry),
			Exit:       stateOf(br.Exit),
		})

		for i := range br.Instructions {
			data.Instructions = append(data.Instructions, instructionOf(&br.Instructions[i]))
		}

		for _, s := range br.Successors {
			data.Successors = append(data.Successors, Successor{
				From:    int(b),
				To:      int(s.To),
				Actions: actionStrings(s.Actions),
			})
		}
	}

	if rec != nil {
		data.Iterations = rec.Iterations()
	}

	for _, r := range res.Reports() {
		data.Reports = append(data.Reports, Report{
			Phase:   r.Phase.String(),
			Rule:    r.RuleCode.String(),
			Message: r.Message,
		})
	}

	return data
}

func instructionOf(ir *engine.InstructionResult) Instruction {
	res := Instruction{
		Block:       int(ir.Location.Block),
		Statement:   ir.Location.Statement,
		Instruction: ir.Instruction,
		States:      map[string]State{},
		Actions:     map[string][]string{},
	}
	for _, p := range engine.Phases {
		if d := ir.Snapshots.Of(p); d != nil {
			res.States[p.String()] = stateOf(d)
		}
		res.Actions[p.String()] = actionStrings(ir.Actions.Of(p))
	}

	return res
}

func stateOf(d *engine.Domain) State {
	res := State{
		Capabilities: map[string]string{},
		Latest:       map[string]string{},
	}

	caps := d.Caps.Capabilities()
	for _, p := range caps.Places() {
		res.Capabilities[p.String()] = caps[p].String()
	}

	arena := d.Borrows.Arena()
	for _, id := range d.Borrows.Edges() {
		e := Edge{
			Kind: arena.EdgeAt(id).Kind.String(),
			Edge: arena.EdgeString(id),
		}
		if pc, ok := d.Borrows.Conditions(id); ok && !pc.IsUnconditional() {
			e.Conditions = pc.String()
		}
		res.Edges = append(res.Edges, e)
	}

	latest := d.Borrows.Latest()
	for _, p := range latest.Places() {
		res.Latest[p.String()] = latest[p].String()
	}

	return res
}

func actionStrings(actions []engine.Action) []string {
	var res []string
	for _, a := range actions {
		res = append(res, a.String())
	}

	return res
}
