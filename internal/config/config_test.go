package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sirkon/deepequal"

	"github.com/sirkon/pcg/internal/engine"
	"github.com/sirkon/pcg/internal/validity"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *Config
		wantErr bool
	}{
		{
			name:  "empty",
			input: "",
			want:  Default(),
		},
		{
			name: "full",
			input: `
validity: fatal
recording: true
max_iterations: 50
log_level: debug
dump:
  dir: out
  format: both
diverging:
  - my::abort
`,
			want: &Config{
				Validity:      validity.ModeFatal,
				Recording:     true,
				MaxIterations: 50,
				LogLevel:      LogLevel{Level: slog.LevelDebug},
				Dump:          Dump{Dir: "out", Format: DumpFormatBoth},
				Diverging:     []string{"my::abort"},
			},
		},
		{
			name:  "partial",
			input: "dump:\n  dir: x\n",
			want: func() *Config {
				c := Default()
				c.Dump.Dir = "x"
				return c
			}(),
		},
		{
			name:    "unknown mode",
			input:   "validity: loud\n",
			wantErr: true,
		},
		{
			name:    "unknown field",
			input:   "verbose: true\n",
			wantErr: true,
		},
		{
			name:    "negative iterations",
			input:   "max_iterations: -1\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Errorf("error expected, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}

			if !reflect.DeepEqual(tt.want, got) {
				deepequal.SideBySide(t, "config", tt.want, got)
			}
		})
	}
}

func TestDumpFormat(t *testing.T) {
	var f DumpFormat
	if err := f.UnmarshalText([]byte("sqlite")); err != nil {
		t.Fatal(err)
	}
	if f.JSON() || !f.SQLite() {
		t.Errorf("unexpected format predicates for %s", &f)
	}
	if err := f.UnmarshalText([]byte("xml")); err == nil {
		t.Error("error expected for an unknown format")
	}

	var invalid DumpFormat
	if _, err := invalid.MarshalText(); err == nil {
		t.Error("invalid format must not marshal")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pcg.yaml")
	if err := os.WriteFile(path, []byte("validity: off\ndiverging: [exit]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	ec := cfg.Engine(nil, []string{"panic"}, nil)
	want := engine.Config{
		Validity:      validity.ModeOff,
		MaxIterations: engine.DefaultMaxIterations,
		Diverging:     []string{"panic", "exit"},
	}
	if !reflect.DeepEqual(want, ec) {
		deepequal.SideBySide(t, "engine config", want, ec)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("error expected for a missing file")
	}
}
