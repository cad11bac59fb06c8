// Command attractor loads a pipeline graph and lints it. The validate
// subcommand prints the diagnostics; the run subcommand logs lint errors and
// runs the graph synchronously to completion, printing the final Outcome as
// JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/danshapiro/attractor/internal/attractor/dot"
	"github.com/danshapiro/attractor/internal/attractor/engine"
	"github.com/danshapiro/attractor/internal/attractor/runtime"
	"github.com/danshapiro/attractor/internal/attractor/validate"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	case "validate":
		validateCmd(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  attractor run --graph <file.dot> [--logs-root <dir>] [--config <config.yaml>]")
	fmt.Fprintln(os.Stderr, "  attractor validate --graph <file.dot>")
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	graphPath := fs.String("graph", "", "path to a .dot pipeline source file")
	logsRoot := fs.String("logs-root", "", "directory to write per-stage artifacts into")
	configPath := fs.String("config", "", "optional engine config YAML file")
	fs.Parse(args)

	if *graphPath == "" || *logsRoot == "" {
		fmt.Fprintln(os.Stderr, "run: --graph and --logs-root are required")
		os.Exit(1)
	}

	cfg := engine.DefaultConfig()
	if *configPath != "" {
		loaded, err := engine.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("attractor: %v", err)
		}
		cfg = loaded
	}

	source, err := os.ReadFile(*graphPath)
	if err != nil {
		log.Fatalf("attractor: read graph: %v", err)
	}

	g, err := dot.Parse(string(source))
	if err != nil {
		log.Fatalf("attractor: parse graph: %v", err)
	}

	codergen := &engine.CodergenHandler{Policy: cfg.Artifacts}
	tool := &engine.ToolHandler{
		Executors:      map[string]engine.ToolExecutor{},
		TimeoutSeconds: cfg.ToolTimeoutSeconds,
		Policy:         cfg.Artifacts,
	}
	registry := engine.NewDefaultRegistry(codergen, tool)

	for _, d := range validate.Validate(g, validate.LintKnownTypes(registry.KnownTypes())) {
		if d.Severity == validate.SeverityError {
			log.Printf("attractor: lint error: %s", d)
		}
	}

	sink := func(kind string, data map[string]any) {
		log.Printf("event: %s %v", kind, data)
	}
	eng := engine.New(g, registry, *logsRoot, sink)

	ctx := runtime.NewContext()
	outcome, err := eng.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "attractor: run failed: %v\n", err)
		os.Exit(1)
	}

	b, _ := json.MarshalIndent(outcome, "", "  ")
	fmt.Println(string(b))
	if outcome.Status == runtime.StatusFail {
		os.Exit(1)
	}
}

func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	graphPath := fs.String("graph", "", "path to a .dot pipeline source file")
	fs.Parse(args)

	if *graphPath == "" {
		fmt.Fprintln(os.Stderr, "validate: --graph is required")
		os.Exit(1)
	}

	source, err := os.ReadFile(*graphPath)
	if err != nil {
		log.Fatalf("attractor: read graph: %v", err)
	}
	g, err := dot.Parse(string(source))
	if err != nil {
		log.Fatalf("attractor: parse graph: %v", err)
	}

	registry := engine.NewDefaultRegistry(&engine.CodergenHandler{}, &engine.ToolHandler{})
	diags := validate.Validate(g, validate.LintKnownTypes(registry.KnownTypes()))
	errCount := 0
	for _, d := range diags {
		fmt.Println(d.String())
		if d.Severity == validate.SeverityError {
			errCount++
		}
	}
	if errCount > 0 {
		os.Exit(1)
	}
}
