package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/tools/container/intsets"

	"github.com/sirkon/pcg/internal/borrows"
	"github.com/sirkon/pcg/internal/capability"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/oracle"
	"github.com/sirkon/pcg/internal/validity"
)

// ErrNoFixpoint is returned when block entry states keep changing after the
// configured number of block visits.
var ErrNoFixpoint = errors.New("no fixpoint reached")

// Engine runs analyses.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an engine.
func New(cfg Config) *Engine {
	if cfg.Validity == 0 {
		cfg.Validity = validity.ModeWarn
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "engine")),
	}
}

// Analyze computes the place capability graph of every reachable point of
// the body.
func (e *Engine) Analyze(ctx context.Context, body *mir.Body, o oracle.Oracle) (res *Results, err error) {
	if err := body.Validate(); err != nil {
		return nil, fmt.Errorf("analyze %s: %w", body.Name, err)
	}

	check := validity.NewChecker(e.cfg.Validity, e.logger)
	v := NewVisitor(body, o, check, e.cfg.Diverging, e.logger)

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("analyze %s: %w", body.Name, validity.Recover(r))
		}
	}()

	entries, iterations, err := e.fixpoint(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", body.Name, err)
	}

	res, err = e.replay(v, entries, iterations)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: replay: %w", body.Name, err)
	}
	res.reports = check.Reporter().Reports()

	return res, nil
}

func (e *Engine) fixpoint(ctx context.Context, v *Visitor) ([]*Domain, []int, error) {
	body := v.Body()
	r := v.Repacker()

	entries := make([]*Domain, len(body.Blocks))
	iterations := make([]int, len(body.Blocks))
	entries[mir.StartBlock] = v.StartState()

	dom := body.Dominators()
	for _, head := range body.LoopHeads() {
		e.logger.Debug("loop head", slog.String("body", body.Name), slog.String("block", head.String()))
	}

	var (
		work   intsets.Sparse
		visits int
	)
	work.Insert(int(mir.StartBlock))
	for !work.IsEmpty() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		var next int
		work.TakeMin(&next)
		block := mir.BlockID(next)

		visits++
		if visits > e.cfg.MaxIterations {
			return nil, nil, fmt.Errorf("%w after %d block visits", ErrNoFixpoint, e.cfg.MaxIterations)
		}
		iterations[block]++
		e.logger.Debug(
			"visit block",
			slog.String("body", body.Name),
			slog.String("block", block.String()),
			slog.Int("iteration", iterations[block]),
		)
		if e.cfg.Recording && e.cfg.Recorder != nil {
			e.cfg.Recorder.RecordIteration(block, iterations[block], entries[block])
		}

		exit, err := v.EvalBlock(entries[block], block)
		if err != nil {
			return nil, nil, err
		}

		for _, succ := range v.Successors(block) {
			incoming := exit.Clone()
			incoming.Borrows.AddPathCondition(borrows.BlockEdge{From: block, To: succ})
			preds := v.Predecessors(succ)

			cur := entries[succ]
			if cur == nil {
				incoming.Borrows.NormalizePathConditions(succ, preds)
				entries[succ] = incoming
				work.Insert(int(succ))
				continue
			}

			joined := cur.Clone()
			joined.Join(r, incoming, succ)
			joined.Borrows.NormalizePathConditions(succ, preds)
			if joined.Equal(cur) {
				continue
			}
			if body.IsBackEdge(dom, block, succ) {
				e.logger.Debug(
					"loop entry state changed",
					slog.String("body", body.Name),
					slog.String("from", block.String()),
					slog.String("head", succ.String()),
				)
			}
			entries[succ] = joined
			work.Insert(int(succ))
		}
	}

	return entries, iterations, nil
}

// replay evaluates every reached block once more from its final entry state
// recording snapshots and actions.
func (e *Engine) replay(v *Visitor, entries []*Domain, iterations []int) (*Results, error) {
	body := v.Body()
	res := &Results{
		body:     body,
		repacker: v.Repacker(),
		blocks:   make([]*BlockResult, len(body.Blocks)),
	}

	for i, entry := range entries {
		if entry == nil {
			continue
		}

		block := mir.BlockID(i)
		blk := &body.Blocks[i]
		br := &BlockResult{
			Block:      block,
			Entry:      entry,
			Iterations: iterations[i],
		}

		cur := entry
		for j := range blk.Statements {
			loc := mir.Location{Block: block, Statement: j}
			snaps, acts, err := v.Eval(cur, &blk.Statements[j], loc)
			if err != nil {
				return nil, err
			}
			br.Instructions = append(br.Instructions, InstructionResult{
				Location:    loc,
				Instruction: blk.Statements[j].String(),
				Snapshots:   snaps,
				Actions:     acts,
			})
			cur = snaps.After
		}

		loc := body.TerminatorLocation(block)
		snaps, acts, err := v.Eval(cur, &blk.Terminator, loc)
		if err != nil {
			return nil, err
		}
		br.Instructions = append(br.Instructions, InstructionResult{
			Location:    loc,
			Instruction: blk.Terminator.String(),
			Snapshots:   snaps,
			Actions:     acts,
		})
		br.Exit = snaps.After

		for _, succ := range v.Successors(block) {
			br.Successors = append(br.Successors, SuccessorResult{
				To:      succ,
				Actions: capabilityActions(capability.Diff(v.Repacker(), br.Exit.Caps, entries[succ].Caps)),
			})
		}

		res.blocks[i] = br
	}

	return res, nil
}
