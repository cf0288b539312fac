// Command ucpctl is a single-document command-line client: it loads a
// document from a JSON file (the file must exist; the create subcommand
// writes a new one), applies UCL scripts or individual subcommands against
// it, and writes the result back.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"goa.design/clue/log"

	"github.com/antonio7098/unified-content-protocol/internal/config"
	"github.com/antonio7098/unified-content-protocol/internal/document"
	"github.com/antonio7098/unified-content-protocol/internal/idmapper"
	"github.com/antonio7098/unified-content-protocol/internal/promptclient"
	"github.com/antonio7098/unified-content-protocol/internal/snapshot/memory"
	"github.com/antonio7098/unified-content-protocol/internal/telemetry"
	"github.com/antonio7098/unified-content-protocol/internal/transaction"
	"github.com/antonio7098/unified-content-protocol/internal/ucl"
	"github.com/antonio7098/unified-content-protocol/internal/validator"
)

func main() {
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "create":
		err = runCreate(ctx, os.Args[2:])
	case "run":
		err = runRun(ctx, os.Args[2:])
	case "describe":
		err = runDescribe(ctx, os.Args[2:])
	case "validate":
		err = runValidate(ctx, os.Args[2:])
	case "snapshot":
		err = runSnapshot(ctx, os.Args[2:])
	case "query":
		err = runQuery(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error(ctx, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: ucpctl <command> [flags]

commands:
  create    -doc <path> [-title <title>]
  run       -doc <path> -script <path>
  describe  -doc <path> [-short-ids]
  validate  -doc <path>
  snapshot  create|restore|list -doc <path> [-name <name>] [-description <text>]
  query     -doc <path> -task <text> [-model <name>] [-max-tokens <n>]`)
}

func docFlag(fs *flag.FlagSet) *string {
	return fs.String("doc", "", "path to the document JSON file")
}

func loadDoc(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ucpctl: read %s: %w", path, err)
	}
	return document.UnmarshalDocumentJSON(data)
}

func saveDoc(path string, doc *document.Document) error {
	data, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("ucpctl: marshal document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("ucpctl: write %s: %w", path, err)
	}
	return nil
}

func runCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	docPath := docFlag(fs)
	title := fs.String("title", "", "document title")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *docPath == "" {
		return fmt.Errorf("ucpctl: -doc is required")
	}
	doc := document.Create(*title)
	if err := saveDoc(*docPath, doc); err != nil {
		return err
	}
	log.Print(ctx, log.KV{K: "doc_id", V: string(doc.ID)}, log.KV{K: "path", V: *docPath})
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	docPath := docFlag(fs)
	scriptPath := fs.String("script", "", "path to a UCL script file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *docPath == "" || *scriptPath == "" {
		return fmt.Errorf("ucpctl: -doc and -script are required")
	}
	doc, err := loadDoc(*docPath)
	if err != nil {
		return err
	}
	script, err := os.ReadFile(*scriptPath)
	if err != nil {
		return fmt.Errorf("ucpctl: read %s: %w", *scriptPath, err)
	}

	mapper := idmapper.Seed(doc)
	snapshots := memory.New(config.MaxSnapshotsFromEnv())
	timeout := time.Duration(config.TransactionTimeoutSecondsFromEnv()) * time.Second
	logger := telemetry.NewClueLogger()
	tx := transaction.NewManager(timeout, transaction.WithLogger(logger))
	executor := ucl.NewExecutor(doc, mapper, snapshots, tx, ucl.WithLogger(logger))

	results, err := executor.Run(ctx, string(script))
	if err != nil {
		return fmt.Errorf("ucpctl: script failed: %w", err)
	}
	for i, r := range results {
		log.Print(ctx, log.KV{K: "command", V: i + 1}, log.KV{K: "affected_blocks", V: len(r.AffectedBlocks)})
	}
	return saveDoc(*docPath, executor.Document())
}

func runDescribe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("describe", flag.ExitOnError)
	docPath := docFlag(fs)
	shortIDs := fs.Bool("short-ids", true, "number blocks root-first then by ascending block id; when false, number them in breadth-first order (short integer ids are printed either way)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *docPath == "" {
		return fmt.Errorf("ucpctl: -doc is required")
	}
	doc, err := loadDoc(*docPath)
	if err != nil {
		return err
	}
	mapper := idmapper.NewMapper()
	if *shortIDs {
		mapper = idmapper.Seed(doc)
	}
	fmt.Println(idmapper.Describe(doc, mapper))
	return nil
}

func runValidate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	docPath := docFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *docPath == "" {
		return fmt.Errorf("ucpctl: -doc is required")
	}
	doc, err := loadDoc(*docPath)
	if err != nil {
		return err
	}
	report := validator.Validate(doc, config.LimitsFromEnv(), nil)
	for _, issue := range report.Issues {
		fmt.Println(issue.String())
	}
	if !report.IsOK() {
		return fmt.Errorf("ucpctl: validation failed with %d issue(s)", len(report.Issues))
	}
	log.Print(ctx, log.KV{K: "status", V: "ok"})
	return nil
}

func runSnapshot(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("ucpctl: snapshot requires a subcommand (create|restore|list)")
	}
	sub, rest := args[0], args[1:]

	fs := flag.NewFlagSet("snapshot "+sub, flag.ExitOnError)
	docPath := docFlag(fs)
	name := fs.String("name", "", "snapshot name")
	description := fs.String("description", "", "snapshot description")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if *docPath == "" {
		return fmt.Errorf("ucpctl: -doc is required")
	}
	doc, err := loadDoc(*docPath)
	if err != nil {
		return err
	}
	store := memory.New(config.MaxSnapshotsFromEnv())

	switch sub {
	case "create":
		var desc *string
		if *description != "" {
			desc = description
		}
		meta, err := store.Create(ctx, doc.ID, *name, desc, doc)
		if err != nil {
			return err
		}
		log.Print(ctx, log.KV{K: "snapshot_id", V: meta.ID})
		return nil
	case "restore":
		if *name == "" {
			return fmt.Errorf("ucpctl: -name is required for restore")
		}
		restored, err := store.Restore(ctx, doc.ID, *name)
		if err != nil {
			return err
		}
		return saveDoc(*docPath, restored)
	case "list":
		metas, err := store.List(ctx, doc.ID)
		if err != nil {
			return err
		}
		for _, m := range metas {
			fmt.Printf("%s\tv%d\t%s\n", m.ID, m.DocumentVersion, m.CreatedAt.Format("2006-01-02T15:04:05Z"))
		}
		return nil
	default:
		return fmt.Errorf("ucpctl: unknown snapshot subcommand %q", sub)
	}
}

func runQuery(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	docPath := docFlag(fs)
	task := fs.String("task", "", "natural-language task for the model to turn into a UCL command")
	model := fs.String("model", "claude-3-5-sonnet-latest", "Anthropic model identifier")
	maxTokens := fs.Int("max-tokens", 1024, "maximum completion tokens")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *docPath == "" || *task == "" {
		return fmt.Errorf("ucpctl: -doc and -task are required")
	}
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("ucpctl: ANTHROPIC_API_KEY must be set")
	}
	doc, err := loadDoc(*docPath)
	if err != nil {
		return err
	}
	client, err := promptclient.NewFromAPIKey(apiKey, *model, *maxTokens)
	if err != nil {
		return err
	}
	builder := idmapper.NewPromptBuilder(doc, []idmapper.Capability{
		idmapper.CapabilityEdit,
		idmapper.CapabilityAppend,
		idmapper.CapabilityMove,
		idmapper.CapabilityDelete,
		idmapper.CapabilityLink,
	}, true)
	command, err := client.Query(ctx, builder, *task)
	if err != nil {
		return err
	}
	fmt.Println(command)
	return nil
}

