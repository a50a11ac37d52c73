package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/stylegate/stylegate/internal/catalog"
	"github.com/stylegate/stylegate/internal/cli"
	"github.com/stylegate/stylegate/internal/eventbus"
	"github.com/stylegate/stylegate/internal/filter"
	"github.com/stylegate/stylegate/internal/rules"
	"github.com/stylegate/stylegate/internal/runner"
	"github.com/stylegate/stylegate/internal/store"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "check":
		err = runCheck(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "explain":
		err = runExplain(os.Args[2:])
	case "history":
		err = runHistory(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "init":
		dir := ""
		if len(os.Args) > 2 {
			dir = os.Args[2]
		}
		err = cli.RunInit(dir)
	case "version":
		fmt.Fprintf(os.Stderr, "stylegate %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	rulesPath := fs.String("rules", "rules.yaml", "path to ruleset YAML file")
	catalogPath := fs.String("catalog", "items.json", "path to catalog JSON file")
	contextName := fs.String("context", "", "activity context to evaluate (required)")
	category := fs.String("category", "", "force all items into one category (default: resolve from item type)")
	dbPath := fs.String("db", defaultDBPath(), "SQLite database path (empty to disable recording)")
	workers := fs.Int("workers", 4, "evaluation workers")
	onUnknown := fs.String("on-unknown", "report", "caller policy for unknown decisions: allow, block, or report")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Parse(args)

	if *contextName == "" {
		return fmt.Errorf("-context is required")
	}
	defaultDecision, err := parseUnknownPolicy(*onUnknown)
	if err != nil {
		return err
	}

	logger := newLogger(*logLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	doc, err := rules.Load(*rulesPath)
	if err != nil {
		return err
	}
	if doc.Context(*contextName) == nil {
		return fmt.Errorf("context %q not defined in %s", *contextName, *rulesPath)
	}
	items, err := catalog.Load(*catalogPath)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", "items", len(items), "context", *contextName)

	bus := eventbus.New(1024)
	engine := filter.New(doc, logger)
	run := runner.New(engine, doc, bus, logger)

	cfg := runner.Config{
		Context:  *contextName,
		Category: *category,
		Workers:  *workers,
		RunID:    uuid.NewString(),
	}

	var st store.Store
	var sinks *runner.Sinks
	if *dbPath != "" {
		sqliteStore, err := store.NewSQLiteStore(*dbPath, logger)
		if err != nil {
			return fmt.Errorf("initialize store: %w", err)
		}
		defer sqliteStore.Close()
		st = sqliteStore

		st.CreateRun(ctx, &store.Run{
			ID:          cfg.RunID,
			StartedAt:   time.Now(),
			Context:     *contextName,
			RulesPath:   *rulesPath,
			CatalogPath: *catalogPath,
		})
		defer st.EndRun(context.Background(), cfg.RunID)

		sinks = runner.StartSinks(bus, st, logger)
	}

	results, summary := run.Run(ctx, cfg, items)
	if sinks != nil {
		sinks.Stop()
	}

	if defaultDecision != rules.Unknown {
		applyUnknownPolicy(results, &summary, defaultDecision)
		fmt.Printf("unknown decisions defaulted to %q by caller policy\n\n", defaultDecision)
	}

	cli.PrintResults(os.Stdout, results)
	cli.PrintSummary(os.Stdout, summary)
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	rulesPath := fs.String("rules", "rules.yaml", "path to ruleset YAML file")
	fs.Parse(args)

	doc, err := rules.Load(*rulesPath)
	if err != nil {
		return err
	}

	fmt.Printf("%s: ok (version %s)\n", *rulesPath, doc.Version)
	for ctxName, ctx := range doc.Contexts {
		fmt.Printf("  context %q: %d categories\n", ctxName, len(ctx.Categories))
		for catName, cat := range ctx.Categories {
			fmt.Printf("    %-10s %d metadata criteria\n", catName, len(cat.Metadata))
		}
	}
	return nil
}

func runExplain(args []string) error {
	fs := flag.NewFlagSet("explain", flag.ExitOnError)
	rulesPath := fs.String("rules", "rules.yaml", "path to ruleset YAML file")
	contextName := fs.String("context", "", "activity context (required)")
	category := fs.String("category", "", "category (default: resolve from item type)")
	itemJSON := fs.String("item", "", "item as a JSON object (required unless -item-file)")
	itemFile := fs.String("item-file", "", "path to a JSON file holding one item")
	logLevel := fs.String("log-level", "warn", "log level (debug, info, warn, error)")
	fs.Parse(args)

	if *contextName == "" {
		return fmt.Errorf("-context is required")
	}
	data := []byte(*itemJSON)
	if *itemFile != "" {
		var err error
		data, err = os.ReadFile(*itemFile)
		if err != nil {
			return fmt.Errorf("read item file: %w", err)
		}
	}
	if len(data) == 0 {
		return fmt.Errorf("-item or -item-file is required")
	}

	doc, err := rules.Load(*rulesPath)
	if err != nil {
		return err
	}
	if doc.Context(*contextName) == nil {
		return fmt.Errorf("context %q not defined in %s", *contextName, *rulesPath)
	}
	item, err := catalog.ParseItem(data)
	if err != nil {
		return err
	}

	cat := *category
	if cat == "" {
		cat = doc.Context(*contextName).ResolveCategory(item.Type)
		if cat == "" {
			return fmt.Errorf("no category matches item type %q; pass -category", item.Type)
		}
	}

	engine := filter.New(doc, newLogger(*logLevel))
	result := engine.Evaluate(&item, cat, *contextName)

	fmt.Printf("item: %s  category: %s  context: %s\n", describeItem(&item), cat, *contextName)
	cli.PrintTrace(os.Stdout, result)
	return nil
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBPath(), "SQLite database path")
	runID := fs.String("run", "", "filter by run ID")
	contextName := fs.String("context", "", "filter by context")
	category := fs.String("category", "", "filter by category")
	decision := fs.String("decision", "", "filter by decision (allow, block, unknown)")
	limit := fs.Int("limit", 50, "maximum records")
	listRuns := fs.Bool("runs", false, "list recent runs instead of evaluations")
	fs.Parse(args)

	st, err := store.NewSQLiteStore(*dbPath, newLogger("error"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if *listRuns {
		runs, err := st.GetRuns(ctx, *limit)
		if err != nil {
			return err
		}
		for _, r := range runs {
			ended := "running"
			if r.EndedAt != nil {
				ended = r.EndedAt.Format("15:04:05")
			}
			fmt.Printf("%s  %s  context=%s  rules=%s  catalog=%s  ended=%s\n",
				r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Context, r.RulesPath, r.CatalogPath, ended)
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
		}
		return nil
	}

	records, err := st.Query(ctx, store.QueryFilter{
		RunID:    *runID,
		Context:  *contextName,
		Category: *category,
		Decision: *decision,
		Limit:    *limit,
	})
	if err != nil {
		return err
	}
	cli.PrintHistory(os.Stdout, records)
	return nil
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBPath(), "SQLite database path")
	runID := fs.String("run", "", "restrict to one run ID")
	fs.Parse(args)

	st, err := store.NewSQLiteStore(*dbPath, newLogger("error"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	stats, err := st.Stats(context.Background(), *runID)
	if err != nil {
		return err
	}
	cli.PrintStats(os.Stdout, stats)
	return nil
}

// applyUnknownPolicy rewrites unknown results to the caller's default.
// Stored records keep the engine's own decision; the default is a
// presentation-layer choice, which is why the engine never makes it.
func applyUnknownPolicy(results []runner.ItemResult, summary *runner.Summary, d rules.Decision) {
	for i := range results {
		if results[i].Result.Decision == rules.Unknown {
			results[i].Result.Decision = d
		}
	}
	switch d {
	case rules.Allow:
		summary.Allowed += summary.Unknown
	case rules.Block:
		summary.Blocked += summary.Unknown
	}
	summary.Unknown = 0
}

func parseUnknownPolicy(s string) (rules.Decision, error) {
	switch s {
	case "allow":
		return rules.Allow, nil
	case "block":
		return rules.Block, nil
	case "report", "":
		return rules.Unknown, nil
	default:
		return rules.Unknown, fmt.Errorf("invalid -on-unknown value %q (want allow, block, or report)", s)
	}
}

func describeItem(it *catalog.Item) string {
	if it.Name != "" {
		return it.Name
	}
	if it.ID != "" {
		return it.ID
	}
	j, _ := json.Marshal(it)
	return string(j)
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(level)}))
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultDBPath() string {
	home, _ := os.UserHomeDir()
	dir := filepath.Join(home, ".stylegate")
	os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "stylegate.db")
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "stylegate - metadata-first outfit attribute filter")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  stylegate check -rules rules.yaml -catalog items.json -context gym   Evaluate a catalog")
	fmt.Fprintln(os.Stderr, "  stylegate explain -rules rules.yaml -context gym -item '<json>'      Trace one item")
	fmt.Fprintln(os.Stderr, "  stylegate validate -rules rules.yaml                                 Compile and check a ruleset")
	fmt.Fprintln(os.Stderr, "  stylegate history [-db path] [-run id] [-decision d]                 Show recorded decisions")
	fmt.Fprintln(os.Stderr, "  stylegate stats [-db path] [-run id]                                 Aggregate decision stats")
	fmt.Fprintln(os.Stderr, "  stylegate init [dir]                                                 Write starter rules and catalog")
	fmt.Fprintln(os.Stderr, "  stylegate version                                                    Print version")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Check options:")
	fmt.Fprintln(os.Stderr, "  -category string     Force every item into one category (default: resolve from item type)")
	fmt.Fprintln(os.Stderr, "  -db string           SQLite database path (default \"~/.stylegate/stylegate.db\", \"\" disables)")
	fmt.Fprintln(os.Stderr, "  -workers int         Evaluation workers (default 4)")
	fmt.Fprintln(os.Stderr, "  -on-unknown string   Caller policy for unknown decisions: allow, block, report (default \"report\")")
	fmt.Fprintln(os.Stderr, "  -log-level string    Log level: debug, info, warn, error (default \"info\")")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Examples:")
	fmt.Fprintln(os.Stderr, "  stylegate init")
	fmt.Fprintln(os.Stderr, "  stylegate check -rules rules.yaml -catalog items.json -context gym")
	fmt.Fprintln(os.Stderr, "  stylegate explain -rules rules.yaml -context gym -item '{\"type\":\"pants\",\"name\":\"jogger pants\"}'")
	fmt.Fprintln(os.Stderr, "  stylegate history -decision block -limit 20")
}
