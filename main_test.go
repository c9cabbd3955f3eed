package main

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sirkon/deepequal"

	"github.com/sirkon/pcg/internal/capability"
	"github.com/sirkon/pcg/internal/config"
	"github.com/sirkon/pcg/internal/dump"
	"github.com/sirkon/pcg/internal/engine"
	"github.com/sirkon/pcg/internal/fixture"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/validity"
)

//go:embed testdata
var fixtures embed.FS

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	data, err := fixtures.ReadFile("testdata/pcg.yaml")
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	return cfg
}

func analyzeFixture(t *testing.T, cfg *config.Config, name string) (*fixture.Fixture, *engine.Results, error) {
	t.Helper()

	data, err := fixtures.ReadFile("testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	fx, err := fixture.Parse(data)
	if err != nil {
		t.Fatalf("parse fixture %s: %v", name, err)
	}

	ecfg := cfg.Engine(quietLogger(), newKnownDivergingFuncs(nil).names(), dump.NewRecorder())
	res, err := engine.New(ecfg).Analyze(context.Background(), fx.Body, fx.Facts)

	return fx, res, err
}

func TestFixtures(t *testing.T) {
	cfg := testConfig(t)

	files, err := fixtures.ReadDir("testdata/fixtures")
	if err != nil {
		t.Fatal(fmt.Errorf("list fixtures: %w", err))
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".yaml") {
			continue
		}

		t.Run(strings.TrimSuffix(file.Name(), ".yaml"), func(t *testing.T) {
			fx, res, err := analyzeFixture(t, cfg, file.Name())
			for _, m := range checkExpect(&fx.Expect, res, err) {
				t.Error(m)
			}
		})
	}
}

func TestCheckExpect(t *testing.T) {
	fx, res, err := analyzeFixture(t, testConfig(t), "loop.yaml")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	i := mir.NewPlace(1)

	tests := []struct {
		name   string
		expect fixture.Expect
		err    error
		want   int
	}{
		{
			name:   "fixture",
			expect: fx.Expect,
		},
		{
			name:   "wrong return",
			expect: fixture.Expect{Return: capability.PlaceCapabilities{i: capability.Read}},
			want:   1,
		},
		{
			name: "missing place is none",
			expect: fixture.Expect{Return: capability.PlaceCapabilities{
				i.Field(0): capability.None,
			}},
		},
		{
			name: "unreached location",
			expect: fixture.Expect{After: map[mir.Location]capability.PlaceCapabilities{
				{Block: 9}: {i: capability.Exclusive},
			}},
			want: 1,
		},
		{
			name:   "reached block",
			expect: fixture.Expect{Unreached: []mir.BlockID{1, 3}},
			want:   2,
		},
		{
			name:   "reports",
			expect: fixture.Expect{Reports: []validity.Rule{validity.PCG005MissingCapability}},
			want:   1,
		},
		{
			name:   "error expected",
			expect: fixture.Expect{Error: "unsupported"},
			want:   1,
		},
		{
			name:   "error matches",
			expect: fixture.Expect{Error: "unsupported"},
			err:    fmt.Errorf("analyze: %w", validity.ErrUnsupported),
		},
		{
			name: "unexpected error",
			err:  engine.ErrNoFixpoint,
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkExpect(&tt.expect, res, tt.err)
			if len(got) != tt.want {
				t.Errorf("want %d mismatches, got %q", tt.want, got)
			}
		})
	}
}

func TestCheckExpect_UnsupportedStop(t *testing.T) {
	fx, res, err := analyzeFixture(t, testConfig(t), "yield.yaml")
	if !errors.Is(err, validity.ErrUnsupported) {
		t.Fatalf("unsupported input expected, got %v", err)
	}
	if got := checkExpect(&fx.Expect, res, err); len(got) != 0 {
		t.Errorf("error expectation must match the stop message, got %q", got)
	}
}

func TestKnownDivergingFuncs(t *testing.T) {
	known := newKnownDivergingFuncs([]string{"exit", "log::fatal"})

	tests := []struct {
		name string
		want DivergeKind
	}{
		{name: "core::panicking::panic_fmt", want: DivergeKindPanic},
		{name: "std::process::abort", want: DivergeKindAbort},
		{name: "exit", want: DivergeKindConfigured},
		{name: "log::fatal", want: DivergeKindConfigured},
		{name: "identity", want: DivergeKindInvalid},
	}
	for _, tt := range tests {
		if got := known.kindOf(tt.name); got != tt.want {
			t.Errorf("%s: want %s, got %s", tt.name, tt.want, got)
		}
	}

	if names := known.names(); len(names) != len(newKnownDivergingFuncs(nil).names())+1 {
		t.Errorf("one configured name must be added, got %v", names)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "ok", err: nil, want: 0},
		{name: "usage", err: fmt.Errorf("%w: command expected", errUsage), want: 2},
		{name: "syntax", err: fmt.Errorf("parse x.yaml: %w", &fixture.SyntaxError{Msg: "bad"}), want: 3},
		{name: "unsupported", err: fmt.Errorf("analyze: %w", validity.ErrUnsupported), want: 4},
		{name: "no fixpoint", err: fmt.Errorf("analyze: %w", engine.ErrNoFixpoint), want: 6},
		{name: "joined", err: errors.Join(errors.New("other"), errMismatch), want: 8},
		{name: "unknown", err: errors.New("other"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("want %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRunCommand(t *testing.T) {
	run := func(args ...string) (string, error) {
		var stdout bytes.Buffer
		err := runCommand(context.Background(), args, &stdout, io.Discard)

		return stdout.String(), err
	}

	t.Run("check", func(t *testing.T) {
		paths, err := filepath.Glob("testdata/fixtures/*.yaml")
		if err != nil || len(paths) == 0 {
			t.Fatalf("no fixtures found: %v", err)
		}
		args := append([]string{"run", "-check", "-config", "testdata/pcg.yaml"}, paths...)
		if _, err := run(args...); err != nil {
			t.Errorf("check failed: %v", err)
		}
	})

	t.Run("check without configured diverging", func(t *testing.T) {
		_, err := run("run", "-check", "testdata/fixtures/configured_diverging.yaml")
		if !errors.Is(err, errMismatch) {
			t.Errorf("mismatch expected, got %v", err)
		}
	})

	t.Run("text", func(t *testing.T) {
		out, err := run("run", "testdata/fixtures/loop.yaml")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(out, "counter: 4 blocks reached") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		out, err := run("run", "-output", "json", "-record", "testdata/fixtures/loop.yaml")
		if err != nil {
			t.Fatal(err)
		}
		var data dump.Data
		if err := json.Unmarshal([]byte(out), &data); err != nil {
			t.Fatalf("decode output: %v", err)
		}
		var blocks []int
		for _, b := range data.Blocks {
			blocks = append(blocks, b.Block)
		}
		if want := []int{0, 1, 2, 3}; !reflect.DeepEqual(want, blocks) {
			deepequal.SideBySide(t, "blocks", want, blocks)
		}
		if len(data.Iterations) == 0 {
			t.Error("iterations must be recorded")
		}
	})

	t.Run("coupling", func(t *testing.T) {
		out, err := run("run", "-coupling", "testdata/fixtures/identity_call.yaml")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "coupling at bb1:\n") {
			t.Errorf("no coupling graph in\n%s", out)
		}
	})

	t.Run("dump", func(t *testing.T) {
		dir := t.TempDir()
		if _, err := run("run", "-dump", dir, "-dump-format", "both", "testdata/fixtures/branch_join.yaml"); err != nil {
			t.Fatal(err)
		}
		for _, name := range []string{dumpDatabase, "block_3_entry.dot", "edge_legend.dot"} {
			if _, err := os.Stat(filepath.Join(dir, "branch_join", name)); err != nil {
				t.Errorf("%s: %v", name, err)
			}
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := run("run", "testdata/fixtures/yield.yaml")
		if exitCode(err) != 4 {
			t.Errorf("unsupported input expected, got %v", err)
		}
	})

	t.Run("diverging", func(t *testing.T) {
		out, err := run("diverging", "-config", "testdata/pcg.yaml")
		if err != nil {
			t.Fatal(err)
		}
		for _, line := range []string{"configured\tlog::fatal", "exit\tstd::process::exit"} {
			if !strings.Contains(out, line+"\n") {
				t.Errorf("%q is missing in\n%s", line, out)
			}
		}
	})

	t.Run("usage", func(t *testing.T) {
		for _, args := range [][]string{nil, {"compile"}, {"run"}, {"run", "-output", "yaml", "x.yaml"}} {
			if _, err := run(args...); exitCode(err) != 2 && !strings.Contains(fmt.Sprint(err), "invalid value") {
				t.Errorf("%q: usage error expected, got %v", args, err)
			}
		}
	})
}
