// Command siegelcalc manages batches of vector-valued Siegel modular form
// constructions: it executes graph files against the artifact cache, prints
// cached coefficient tables, and computes exact ranks of construction sets.
//
// The cache backend is selected through the SIEGELCORE_CACHE_* environment
// variables; -data-dir shortcuts to a filesystem store rooted at the given
// directory.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"siegelcore/docs/schema"
	"siegelcore/internal/cache"
	"siegelcore/internal/engine"
	"siegelcore/internal/qseries"
	"siegelcore/pkg/algebra"
	"siegelcore/pkg/construction"
	"siegelcore/pkg/label"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	ctx := context.Background()
	switch args[0] {
	case "calc":
		return runCalc(ctx, args[1:], stdout, stderr)
	case "show":
		return runShow(ctx, args[1:], stdout, stderr)
	case "rank":
		return runRank(ctx, args[1:], stdout, stderr)
	case "schema":
		_, err := stdout.Write(schema.GraphSchemaJSON())
		if err != nil {
			fmt.Fprintf(stderr, "schema failed: %v\n", err)
			return 1
		}
		return 0
	case "-h", "-help", "--help", "help":
		usage(stderr)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: siegelcalc <command> [flags]

Commands:
  calc    execute the constructions of a graph file at a target precision
  show    print the cached coefficient table of one construction
  rank    compute the exact rank of the graph's root constructions
  schema  print the JSON Schema that graph files must satisfy

Run 'siegelcalc <command> -h' for the command's flags.
`)
}

// commonFlags carries the flags every subcommand shares.
type commonFlags struct {
	graphPath string
	prec      int
	dataDir   string
	logFormat string
	logLevel  string
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.graphPath, "graph", "", "Path to the construction graph file (required).")
	fs.IntVar(&c.prec, "prec", 0, "Target precision.")
	fs.StringVar(&c.dataDir, "data-dir", "", "Filesystem cache root, overriding the environment driver selection.")
	fs.StringVar(&c.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	fs.StringVar(&c.logLevel, "log-level", "info", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")
	return c
}

func (c *commonFlags) validate(stderr io.Writer) bool {
	if c.graphPath == "" {
		fmt.Fprintln(stderr, "missing required -graph flag")
		return false
	}
	if c.prec < 0 {
		fmt.Fprintln(stderr, "-prec must not be negative")
		return false
	}
	format := strings.ToLower(c.logFormat)
	if format != "text" && format != "json" {
		fmt.Fprintln(stderr, "invalid -log-format: must be 'text' or 'json'")
		return false
	}
	c.logFormat = format
	level := strings.ToLower(c.logLevel)
	switch level {
	case "debug", "info", "warn", "error":
		c.logLevel = level
	default:
		fmt.Fprintln(stderr, "invalid -log-level: must be 'debug', 'info', 'warn', or 'error'")
		return false
	}
	return true
}

// newLogger builds an isolated slog.Logger; the global default stays
// untouched.
func newLogger(c *commonFlags, w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.logFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// openStore picks the artifact cache: -data-dir wins, otherwise the
// SIEGELCORE_CACHE_* environment selects the driver.
func openStore(ctx context.Context, c *commonFlags) (cache.Store, error) {
	if c.dataDir != "" {
		return cache.NewFilesystem(c.dataDir)
	}
	return cache.Open(ctx)
}

func runCalc(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("siegelcalc calc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := registerCommon(fs)
	force := fs.Bool("force", false, "Recompute even when a sufficient cache entry exists.")
	parallel := fs.Bool("parallel", false, "Execute independent constructions concurrently.")
	workers := fs.Int("workers", 0, "Worker count for -parallel. Defaults to the number of CPUs.")
	verbose := fs.Bool("verbose", false, "Log per-construction progress at info level.")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !common.validate(stderr) {
		return 2
	}
	logger := newLogger(common, stderr)

	graph, err := LoadGraph(common.graphPath)
	if err != nil {
		fmt.Fprintf(stderr, "calc failed: %v\n", err)
		return 1
	}
	store, err := openStore(ctx, common)
	if err != nil {
		fmt.Fprintf(stderr, "calc failed: opening cache store: %v\n", err)
		return 1
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	if *workers > 0 {
		opts = append(opts, engine.WithWorkers(*workers))
	}
	calc := engine.New(store, qseries.New(), opts...)

	report, runErr := calc.Run(ctx, graph.Roots(), common.prec, engine.RunOptions{
		Force:    *force,
		Parallel: *parallel,
		Verbose:  *verbose,
	})
	if report != nil {
		if err := writeJSON(stdout, report); err != nil {
			fmt.Fprintf(stderr, "calc failed: %v\n", err)
			return 1
		}
	}
	if runErr != nil {
		fmt.Fprintf(stderr, "calc failed: %v\n", runErr)
		return 1
	}
	return 0
}

// showOutput is the JSON document the show command prints.
type showOutput struct {
	Name         string            `json:"name"`
	Label        string            `json:"label"`
	LaTeX        string            `json:"latex"`
	Weight       int               `json:"weight"`
	SymWeight    int               `json:"sym_weight"`
	Precision    int               `json:"precision"`
	Coefficients []coefficientJSON `json:"coefficients"`
}

type coefficientJSON struct {
	Index  algebra.Index `json:"index"`
	Vector algebra.Vec   `json:"vector"`
}

func runShow(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("siegelcalc show", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := registerCommon(fs)
	rootName := fs.String("root", "", "Name of the construction to print (required).")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !common.validate(stderr) {
		return 2
	}
	if *rootName == "" {
		fmt.Fprintln(stderr, "missing required -root flag")
		return 2
	}

	graph, err := LoadGraph(common.graphPath)
	if err != nil {
		fmt.Fprintf(stderr, "show failed: %v\n", err)
		return 1
	}
	node, ok := graph.Node(*rootName)
	if !ok {
		fmt.Fprintf(stderr, "show failed: no construction named %q (declared: %s)\n",
			*rootName, strings.Join(graph.Names(), ", "))
		return 1
	}
	store, err := openStore(ctx, common)
	if err != nil {
		fmt.Fprintf(stderr, "show failed: opening cache store: %v\n", err)
		return 1
	}

	backend := qseries.New()
	calc := engine.New(store, backend, engine.WithLogger(newLogger(common, stderr)))
	forms, err := calc.FormsDict(ctx, []construction.Node{node}, common.prec)
	if err != nil {
		fmt.Fprintf(stderr, "show failed: %v\n", err)
		return 1
	}
	form := forms[node.Key().Hash()]

	out := showOutput{
		Name:      *rootName,
		Label:     label.Name(node),
		LaTeX:     label.LaTeX(node),
		Weight:    form.Weight(),
		SymWeight: form.SymWeight(),
		Precision: form.Precision(),
	}
	for _, ix := range backend.Indices(common.prec) {
		v, ok := form.Coefficient(ix)
		if !ok {
			fmt.Fprintf(stderr, "show failed: artifact does not resolve index %s\n", ix)
			return 1
		}
		out.Coefficients = append(out.Coefficients, coefficientJSON{Index: ix, Vector: v})
	}
	if err := writeJSON(stdout, out); err != nil {
		fmt.Fprintf(stderr, "show failed: %v\n", err)
		return 1
	}
	return 0
}

// rankOutput is the JSON document the rank command prints.
type rankOutput struct {
	Rank        int      `json:"rank"`
	Of          int      `json:"of"`
	Precision   int      `json:"precision"`
	Independent []string `json:"independent"`
}

func runRank(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("siegelcalc rank", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := registerCommon(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !common.validate(stderr) {
		return 2
	}

	graph, err := LoadGraph(common.graphPath)
	if err != nil {
		fmt.Fprintf(stderr, "rank failed: %v\n", err)
		return 1
	}
	store, err := openStore(ctx, common)
	if err != nil {
		fmt.Fprintf(stderr, "rank failed: opening cache store: %v\n", err)
		return 1
	}

	calc := engine.New(store, qseries.New(), engine.WithLogger(newLogger(common, stderr)))
	roots := graph.Roots()
	rank, err := calc.Rank(ctx, roots, common.prec)
	if err != nil {
		fmt.Fprintf(stderr, "rank failed: %v\n", err)
		return 1
	}
	subset, err := calc.LinearlyIndependent(ctx, roots, common.prec)
	if err != nil {
		fmt.Fprintf(stderr, "rank failed: %v\n", err)
		return 1
	}

	out := rankOutput{Rank: rank, Of: len(roots), Precision: common.prec}
	for _, n := range subset {
		name := graph.NameByHash(n.Key().Hash())
		if name == "" {
			name = label.Name(n)
		}
		out.Independent = append(out.Independent, name)
	}
	if err := writeJSON(stdout, out); err != nil {
		fmt.Fprintf(stderr, "rank failed: %v\n", err)
		return 1
	}
	return 0
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
