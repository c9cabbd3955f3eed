package dump

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirkon/pcg/internal/borrows"
	"github.com/sirkon/pcg/internal/engine"
	"github.com/sirkon/pcg/internal/mir"
)

// WriteJSON writes data into the directory, creating it if needed. Borrow
// graphs of block entries are rendered from results.
func WriteJSON(dir string, data *Data, res *engine.Results) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dump directory: %w", err)
	}

	iterations := map[int][]Iteration{}
	for _, it := range data.Iterations {
		iterations[it.Block] = append(iterations[it.Block], it)
	}
	for block, its := range iterations {
		if err := writeJSONFile(dir, fmt.Sprintf("block_%d_iterations.json", block), its); err != nil {
			return err
		}
	}

	for _, ins := range data.Instructions {
		name := InstructionFile(mir.Location{Block: mir.BlockID(ins.Block), Statement: ins.Statement})
		if err := writeJSONFile(dir, name, ins); err != nil {
			return err
		}
	}

	for _, s := range data.Successors {
		name := fmt.Sprintf("block_%d_term_block_%d_pcg_data.json", s.From, s.To)
		if err := writeJSONFile(dir, name, s); err != nil {
			return err
		}
	}

	if err := writeJSONFile(dir, "reports.json", data.Reports); err != nil {
		return err
	}

	for _, b := range res.Blocks() {
		entry, _ := res.Entry(b)
		err := writeDOTFile(dir, fmt.Sprintf("block_%d_entry.dot", b), func(w io.Writer) error {
			return entry.Borrows.WriteDOT(w, b.String())
		})
		if err != nil {
			return err
		}
	}

	if err := writeDOTFile(dir, "node_legend.dot", borrows.WriteNodeLegend); err != nil {
		return err
	}
	if err := writeDOTFile(dir, "edge_legend.dot", borrows.WriteEdgeLegend); err != nil {
		return err
	}

	return nil
}

// InstructionFile returns the name of the JSON file of the instruction at
// the location.
func InstructionFile(loc mir.Location) string {
	return fmt.Sprintf("block_%d_stmt_%d_pcg_data.json", loc.Block, loc.Statement)
}

func writeJSONFile(dir, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	return nil
}

func writeDOTFile(dir, name string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	return nil
}
