package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/nao1215/boardwatch/internal/config"
	"github.com/nao1215/boardwatch/internal/database"
	"github.com/nao1215/boardwatch/internal/extract"
	"github.com/nao1215/boardwatch/internal/fetch"
	"github.com/nao1215/boardwatch/internal/model"
	"github.com/nao1215/boardwatch/internal/pipeline"
	"github.com/nao1215/boardwatch/internal/report"
	"github.com/spf13/cobra"
)

// errBoardsFailed is returned when at least one board could not be read.
var errBoardsFailed = errors.New("some boards failed")

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [url...]",
		Short: "Fetch boards and print their posts",
		Long: `Fetch reads each board page as a stream of small fragments, extracts the
posts between the page markers and prints them.

Posts are recorded in a history database (~/.local/share/boardwatch on
Linux) so that new posts can be told apart from ones seen before. Posts
whose header contains an exclusion token are skipped.

Examples:
  # Fetch a board on the local network
  boardwatch fetch http://192.168.1.50/

  # Fetch several boards, two at a time, as JSON
  boardwatch fetch -n 2 --json http://board1.example/ http://board2.example/

  # Fetch a board behind Tor with the embedded daemon
  boardwatch fetch --tor http://aaaqeayeaudaocajbifqydiob4ibceqtcqkrmfyydenbwha5dyp3kead.onion/

  # Use an existing SOCKS5 proxy
  boardwatch fetch --proxy 127.0.0.1:9050 http://aaaqeayeaudaocajbifqydiob4ibceqtcqkrmfyydenbwha5dyp3kead.onion/

  # Read the older table layout and keep no history
  boardwatch fetch --legacy-markers --no-store http://192.168.1.50/`,
		Args: cobra.ArbitraryArgs,
		RunE: runFetchCmd,
	}

	// Connection flags
	cmd.Flags().StringP("proxy", "x", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and fetch through it")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each board, body included")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum bytes read per board")

	// Extraction flags
	cmd.Flags().Int("chunk-size", config.DefaultChunkSize,
		"Fragment size in bytes fed to the scanner (at least 4)")
	cmd.Flags().Bool("legacy-markers", false,
		"Use the older table layout (bodies from </span> to </td>)")
	cmd.Flags().StringSlice("exclude", []string{extract.DefaultExclusion},
		"Skip posts whose raw header contains this token (repeatable)")

	// Batch and storage flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of boards fetched at once")
	cmd.Flags().Bool("no-store", false,
		"Do not record posts and fetches in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .boardwatch in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

func runFetchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogJSON)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runFetch(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.ChunkSize, err = flags.GetInt("chunk-size"); err != nil {
		return nil, err
	}
	if cfg.LegacyMarkers, err = flags.GetBool("legacy-markers"); err != nil {
		return nil, err
	}
	if cfg.Exclusions, err = flags.GetStringSlice("exclude"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	noStore, err := flags.GetBool("no-store")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noStore
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicit --config must exist; the default locations are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		if cfg.File, err = config.LoadConfigFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")
	cfg.Sources = args

	return cfg, nil
}

// boardPlan holds what one board's pipeline is built from.
type boardPlan struct {
	client      *fetch.Client
	extractOpts []pipeline.ExtractStepOption
}

// planBoards resolves the per-board settings and builds one HTTP client
// per distinct source.
func planBoards(cfg *config.Config, proxyAddr string, logger *slog.Logger) (map[string]*boardPlan, error) {
	plans := make(map[string]*boardPlan, len(cfg.Sources))
	for _, source := range cfg.Sources {
		if _, ok := plans[source]; ok {
			continue
		}
		sc := cfg.Source(source)

		markers, err := cfg.Markers(sc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}

		opts := []fetch.Option{
			fetch.WithUserAgent(cfg.UserAgent),
			fetch.WithMaxBodySize(cfg.MaxBodySize),
			fetch.WithLogger(logger),
		}
		if proxyAddr != "" {
			opts = append(opts, fetch.WithProxy(proxyAddr))
		}
		if len(sc.Headers) > 0 {
			opts = append(opts, fetch.WithHeaders(sc.Headers))
		}
		if sc.Cookie != "" {
			opts = append(opts, fetch.WithCookie(sc.Cookie))
		}
		client, err := fetch.NewClient(cfg.Timeout, opts...)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to create client: %w", source, err)
		}

		plans[source] = &boardPlan{
			client: client,
			extractOpts: []pipeline.ExtractStepOption{
				pipeline.WithMarkers(markers),
				pipeline.WithExclusions(cfg.ExclusionsFor(sc)),
				pipeline.WithBufferSize(cfg.ChunkSize),
			},
		}
	}
	return plans, nil
}

// runFetch fetches every source in cfg and writes the report to stdout
// or cfg.ReportFile. Progress and errors go to stderr.
func runFetch(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	logger.Info("starting fetch",
		"sources", cfg.Sources,
		"tor", cfg.UseTor,
		"concurrency", cfg.Concurrency,
		"saveToDB", cfg.SaveToDB,
	)

	var (
		db    *database.BoardDB
		store pipeline.PostStore
	)
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		store = db
		logger.Info("database opened", "path", db.Path())
	}

	proxyAddr := cfg.ProxyAddress
	if cfg.UseTor {
		embeddedTor, err := startEmbeddedTor(ctx, cfg, stderr, logger)
		if err != nil {
			return err
		}
		defer func() {
			logger.Info("stopping embedded Tor daemon")
			if err := embeddedTor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}()
		proxyAddr = embeddedTor.SocksAddr()
	}

	plans, err := planBoards(cfg, proxyAddr, logger)
	if err != nil {
		return err
	}
	if proxyAddr != "" {
		if err := checkProxy(ctx, plans[cfg.Sources[0]].client, logger); err != nil {
			return err
		}
	}

	out, closeOut, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	writer := newReportWriter(cfg, out)
	simple, isSimple := writer.(*report.SimpleWriter)
	streaming := isSimple && len(cfg.Sources) == 1

	bp := pipeline.NewBatchProcessor(
		func(source string) *pipeline.Pipeline {
			plan := plans[source]
			extractOpts := plan.extractOpts
			if streaming {
				extractOpts = append(slices.Clip(extractOpts), pipeline.WithOnPost(func(p *model.Post) error {
					_, err := simple.WritePost(p)
					return err
				}))
			}
			return pipeline.DefaultPipeline(plan.client, store,
				[]pipeline.Option{pipeline.WithLogger(logger)},
				extractOpts...)
		},
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)

	results := make([]*model.BoardReport, len(cfg.Sources))
	batchErr := bp.ProcessBatchWithCallback(ctx, cfg.Sources, func(r *model.BoardReport, index int) {
		results[index] = r
		saveFetch(ctx, db, r, logger)

		if r.Error != nil {
			fmt.Fprintf(stderr, "Fetch error for %s: %v\n", r.Source, r.Error)
		}

		var err error
		switch {
		case streaming:
			_, err = simple.WriteFooter(r)
		case isSimple:
			_, err = simple.Write(r)
		}
		if err != nil {
			logger.Error("report failed", "source", r.Source, "error", err)
		}
	})

	if !isSimple {
		if err := writeCollected(writer, results); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if batchErr != nil {
		return batchErr
	}
	return failedBoards(results)
}

// writeCollected writes a single report, or the whole batch when there is
// more than one source.
func writeCollected(w report.Writer, results []*model.BoardReport) error {
	var err error
	if len(results) == 1 && results[0] != nil {
		_, err = w.Write(results[0])
	} else {
		_, err = w.WriteAll(results)
	}
	return err
}

// failedBoards returns errBoardsFailed with a count when a board failed.
func failedBoards(results []*model.BoardReport) error {
	failed := 0
	for _, r := range results {
		if r != nil && r.Status() != model.StatusOK {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d", errBoardsFailed, failed, len(results))
}

// newReportWriter returns the writer for the selected format.
func newReportWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out,
			report.WithShowSource(len(cfg.Sources) > 1),
			report.WithVerbose(cfg.Verbose),
		)
	}
}

// openOutput returns path opened for writing, or stdout when path is empty.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports can hold private board content, so only the owner may read them.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// saveFetch records the fetch summary. It is a no-op when db is nil. The
// record is written even after cancellation so interrupted runs show up
// in the history.
func saveFetch(ctx context.Context, db *database.BoardDB, r *model.BoardReport, logger *slog.Logger) {
	if db == nil {
		return
	}
	if _, err := db.SaveFetch(context.WithoutCancel(ctx), r); err != nil {
		logger.Error("failed to save fetch", "source", r.Source, "error", err)
		return
	}
	logger.Debug("fetch saved to database", "source", r.Source, "posts", len(r.Posts), "new", r.New)
}

// checkProxy verifies that the SOCKS5 proxy of client answers.
func checkProxy(ctx context.Context, client *fetch.Client, logger *slog.Logger) error {
	status, err := client.CheckProxy(ctx)
	if err != nil {
		return fmt.Errorf("proxy check failed: %s (make sure a SOCKS5 proxy is running at %s): %w",
			status, client.ProxyAddress(), err)
	}
	logger.Info("proxy connection verified", "address", client.ProxyAddress())
	return nil
}

// startEmbeddedTor starts an embedded Tor daemon using tornago.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, stderr io.Writer, logger *slog.Logger) (*fetch.EmbeddedTor, error) {
	fmt.Fprintln(stderr, "Starting embedded Tor daemon...")
	fmt.Fprintf(stderr, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := fetch.NewEmbeddedTor(fetch.WithStartupTimeout(cfg.TorStartupTimeout))

	start := time.Now()
	if err := embeddedTor.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	logger.Info("embedded Tor daemon started",
		"socksAddr", embeddedTor.SocksAddr(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	fmt.Fprintf(stderr, "SOCKS proxy: %s\n\n", embeddedTor.SocksAddr())

	return embeddedTor, nil
}
