package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/valueminer/valueminer/internal/config"
	"github.com/valueminer/valueminer/internal/repository"
	"github.com/valueminer/valueminer/internal/service"
	"github.com/valueminer/valueminer/pkg/openai"
	"github.com/valueminer/valueminer/pkg/resend"
	"github.com/valueminer/valueminer/pkg/searchapi"
)

func init() {
	// Load .env file if present (silently ignore if missing)
	godotenv.Load()
}

var (
	configPath string
	lang       string
	verbose    bool
	timeout    time.Duration
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "minerctl",
		Short: "Operate a Value Miner deployment from the command line",
		Long: `minerctl mines YouTube transcripts, runs the scheduled report job and
manages intake tokens using the same configuration as the server.`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall command timeout")

	transcriptCmd := &cobra.Command{
		Use:   "transcript <youtube-url>",
		Short: "Fetch and print the transcript of a video",
		Args:  cobra.ExactArgs(1),
		RunE:  runTranscript,
	}
	transcriptCmd.Flags().StringVar(&lang, "lang", "", "Preferred transcript language")

	analyzeCmd := &cobra.Command{
		Use:   "analyze <youtube-url>",
		Short: "Fetch a transcript and print its summary as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().StringVar(&lang, "lang", "", "Preferred transcript language")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Scheduled report commands",
	}
	reportCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Send every report that is due now",
		Args:  cobra.NoArgs,
		RunE:  runReports,
	})

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Intake token commands",
	}
	tokenCmd.AddCommand(&cobra.Command{
		Use:   "issue <user-id>",
		Short: "Issue a new intake token, revoking the previous one",
		Args:  cobra.ExactArgs(1),
		RunE:  runIssueToken,
	})

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables in the SQLite store",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}

	rootCmd.AddCommand(transcriptCmd, analyzeCmd, reportCmd, tokenCmd, migrateCmd)
	return rootCmd
}

func newLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// clipService builds a ClipService for the stateless commands. It needs
// no store.
func clipService(cfg *config.Config, logger *slog.Logger) *service.ClipService {
	return service.NewClipService(nil, nil, searchapi.NewClient(cfg.SearchAPI), openai.NewClient(cfg.OpenAI), logger)
}

func runTranscript(cmd *cobra.Command, args []string) error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	t, err := clipService(cfg, newLogger()).Transcript(ctx, args[0], lang)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.PlainText())
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	svc := clipService(cfg, newLogger())
	t, err := svc.Transcript(ctx, args[0], lang)
	if err != nil {
		return err
	}
	summary, err := svc.Analyze(ctx, t.PlainText())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), summary)
}

func runReports(cmd *cobra.Command, args []string) error {
	cfg, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	svc := service.NewReportService(
		store.Reports(),
		store.Users(),
		store.Clips(),
		resend.NewClient(cfg.Resend),
		cfg.Report.TopClips,
		newLogger(),
	)
	res, err := svc.RunDue(ctx, time.Now())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func runIssueToken(cmd *cobra.Command, args []string) error {
	_, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	issued, err := service.NewTokenService(store.Tokens(), newLogger()).Issue(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), issued)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Store.Driver != config.StoreSQLite {
		return fmt.Errorf("migrate only applies to the sqlite store, got %q", cfg.Store.Driver)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	// Opening the store applies the schema.
	store, err := repository.OpenSQLite(ctx, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", cfg.Store.Path)
	return nil
}

func openStore(cmd *cobra.Command) (*config.Config, repository.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	store, err := repository.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, store, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
