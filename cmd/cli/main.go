package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/wadjakorntonsri/linkbio/pkg/adapters/kv"
	"github.com/wadjakorntonsri/linkbio/pkg/adapters/repository/document"
	"github.com/wadjakorntonsri/linkbio/pkg/config"
	"github.com/wadjakorntonsri/linkbio/pkg/core/domain"
	"github.com/wadjakorntonsri/linkbio/pkg/core/services"
	"go.uber.org/zap"
)

const usage = "expected 'export', 'import' or 'normalize-stats' subcommands"

var errUsage = errors.New(usage)

func main() {
	cfg := config.Load()
	logger, err := config.NewLogger(cfg.LogLevel, "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	code := execute(context.Background(), cfg, logger, os.Args[1:], os.Stdout, os.Stderr)
	_ = logger.Sync()
	os.Exit(code)
}

// execute runs one command and maps its outcome to an exit code: 2 for
// usage errors, 1 for failures.
func execute(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string, stdout, stderr io.Writer) int {
	err := run(ctx, cfg, logger, args, stdout)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, usage)
		return 2
	default:
		logger.Error("command failed", zap.Error(err))
		return 1
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "JSON file to import")
	normalizeCmd := flag.NewFlagSet("normalize-stats", flag.ContinueOnError)

	var cmd *flag.FlagSet
	switch args[0] {
	case "export":
		cmd = exportCmd
	case "import":
		cmd = importCmd
	case "normalize-stats":
		cmd = normalizeCmd
	default:
		return errUsage
	}
	if err := cmd.Parse(args[1:]); err != nil {
		return err
	}

	store, err := kv.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	repo := document.NewRepository(store)

	switch cmd {
	case exportCmd:
		return doExport(ctx, services.NewLinkService(repo), stdout)
	case importCmd:
		if *importFile == "" {
			importCmd.PrintDefaults()
			return errUsage
		}
		return doImport(ctx, services.NewLinkService(repo), logger, *importFile)
	default:
		svc := services.NewAnalyticsService(repo, repo, cfg.HashSalt, services.WithLogger(logger))
		return svc.NormalizeStats(ctx)
	}
}

func doExport(ctx context.Context, svc *services.LinkService, stdout io.Writer) error {
	catalog, err := svc.Export(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(catalog); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func doImport(ctx context.Context, svc *services.LinkService, logger *zap.Logger, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open %s: %w", filename, err)
	}
	defer file.Close()

	var catalog domain.Catalog
	if err := json.NewDecoder(file).Decode(&catalog); err != nil {
		return fmt.Errorf("decode %s: %w", filename, err)
	}

	stored, err := svc.Import(ctx, catalog)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	logger.Info("catalog imported",
		zap.Int("links", len(stored.Links)),
		zap.Int("categories", len(stored.Categories)),
	)
	return nil
}
