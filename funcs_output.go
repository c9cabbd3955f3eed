package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirkon/pcg/internal/borrows"
	"github.com/sirkon/pcg/internal/config"
	"github.com/sirkon/pcg/internal/dump"
	"github.com/sirkon/pcg/internal/engine"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/oracle"
	"github.com/sirkon/pcg/internal/validity"
)

func writeResults(w io.Writer, format OutputFormat, res *engine.Results, rec *dump.Recorder) error {
	switch format {
	case OutputFormatText:
		writeText(w, res)
		return nil
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(dump.Collect(res, rec)); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: output format %s", errUsage, format)
	}
}

func writeText(w io.Writer, res *engine.Results) {
	fmt.Fprintf(w, "%s: %d blocks reached after %d visits\n", res.Body().Name, len(res.Blocks()), res.Iterations())
	for _, b := range res.Blocks() {
		br, _ := res.Block(b)
		fmt.Fprintf(w, "%s entry %s\n", b, br.Entry.Caps.Capabilities())
		for _, ir := range br.Instructions {
			fmt.Fprintf(w, "  %s %s\n", ir.Location, ir.Instruction)
			for _, p := range engine.Phases {
				if acts := ir.Actions.Of(p); len(acts) > 0 {
					fmt.Fprintf(w, "    %s: %s\n", p, joinActions(acts))
				}
			}
			fmt.Fprintf(w, "    %s\n", ir.Snapshots.After.Caps.Capabilities())
		}
		for _, s := range br.Successors {
			fmt.Fprintf(w, "  -> %s", s.To)
			if len(s.Actions) > 0 {
				fmt.Fprintf(w, ": %s", joinActions(s.Actions))
			}
			fmt.Fprintln(w)
		}
	}

	validity.PrintSummary(w, res.Reports())
}

func joinActions(acts []engine.Action) string {
	parts := make([]string, len(acts))
	for i, a := range acts {
		parts[i] = a.String()
	}

	return strings.Join(parts, ", ")
}

// writeCoupling prints coupling graphs at the entries of returning blocks.
func writeCoupling(w io.Writer, res *engine.Results, facts *oracle.Facts) error {
	live := oracle.NewLiveness(facts)
	for _, b := range res.Blocks() {
		if res.Body().Blocks[b].Terminator.Kind != mir.TerminatorReturn {
			continue
		}

		g, err := res.CouplingGraph(b, live)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "coupling at %s:\n", b)
		for _, e := range g.Edges(borrows.Node.Cmp) {
			fmt.Fprintf(w, "  %s -> %s\n", e.From, e.To)
		}
	}

	return nil
}

// writeDump stores results under dir in the configured format.
func writeDump(dir string, format config.DumpFormat, res *engine.Results, rec *dump.Recorder) error {
	data := dump.Collect(res, rec)

	if format == config.DumpFormatJSON || format == config.DumpFormatBoth {
		if err := dump.WriteJSON(dir, data, res); err != nil {
			return fmt.Errorf("write json dump: %w", err)
		}
	}

	if format == config.DumpFormatSQLite || format == config.DumpFormatBoth {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dump directory: %w", err)
		}
		store, err := dump.OpenStore(filepath.Join(dir, dumpDatabase))
		if err != nil {
			return fmt.Errorf("open dump store: %w", err)
		}
		if err := store.Write(data); err != nil {
			_ = store.Close()
			return fmt.Errorf("write dump store: %w", err)
		}
		if err := store.Close(); err != nil {
			return fmt.Errorf("close dump store: %w", err)
		}
	}

	return nil
}
