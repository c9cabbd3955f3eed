package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/sirkon/pcg/internal/config"
)

// runDiverging lists functions whose calls are treated as never returning.
func runDiverging(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("diverging", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}

	known := newKnownDivergingFuncs(cfg.Diverging)
	for _, name := range known.names() {
		fmt.Fprintf(stdout, "%s\t%s\n", known.kindOf(name), name)
	}

	return nil
}
