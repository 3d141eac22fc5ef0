package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"champr/internal/config"
	"champr/internal/ddragon"
	"champr/internal/discord"
	"champr/internal/history"
	"champr/internal/jsdelivr"
	"champr/internal/lcu"
	"champr/internal/pipeline"
	"champr/internal/runepage"
	"champr/internal/schedule"

	"github.com/spf13/cobra"
)

var (
	applySources     []string
	applyOut         string
	applyKeepOld     bool
	applyConcurrency int
	applySave        bool

	historyLimit    int
	historyFailures string

	scheduleCron string
	scheduleNow  bool

	watchSource string
	watchWait   time.Duration
)

func init() {
	// apply command
	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Download builds for every champion",
		RunE:  runApply,
	}
	applyCmd.Flags().StringArrayVar(&applySources, "source", nil, "content source (repeatable)")
	applyCmd.Flags().StringVar(&applyOut, "out", "", "output directory")
	applyCmd.Flags().BoolVar(&applyKeepOld, "keep-old", false, "keep existing files in the output directory")
	applyCmd.Flags().IntVar(&applyConcurrency, "concurrency", 0, "tasks in flight at once")
	applyCmd.Flags().BoolVar(&applySave, "save", false, "remember the selected sources in the config file")
	rootCmd.AddCommand(applyCmd)

	// sources command
	sourcesCmd := &cobra.Command{
		Use:   "sources",
		Short: "List available content sources",
		RunE:  runSources,
	}
	rootCmd.AddCommand(sourcesCmd)

	// history command
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "number of runs to show")
	historyCmd.Flags().StringVar(&historyFailures, "failures", "", "list failed records of a run")
	rootCmd.AddCommand(historyCmd)

	// schedule command
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run apply on a cron schedule",
		RunE:  runSchedule,
	}
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron expression (overrides config)")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "run once immediately")
	rootCmd.AddCommand(scheduleCmd)

	// watch command
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Apply rune pages during champion select",
		RunE:  runWatch,
	}
	watchCmd.Flags().StringVar(&watchSource, "source", "", "source to take runes from (overrides config)")
	watchCmd.Flags().DurationVar(&watchWait, "wait", 5*time.Minute, "how long to wait for the League client")
	rootCmd.AddCommand(watchCmd)
}

func newCatalogClient(cfg *config.Config) *ddragon.Client {
	return ddragon.NewClient(
		ddragon.WithBaseURL(cfg.Remote.DataDragonURL),
		ddragon.WithLanguage(cfg.Remote.Language),
		ddragon.WithTimeout(time.Duration(cfg.Remote.TimeoutSeconds)*time.Second),
	)
}

func newBuildClient(cfg *config.Config) *jsdelivr.Client {
	return jsdelivr.NewClient(
		jsdelivr.WithCDNURL(cfg.Remote.CDNURL),
		jsdelivr.WithRegistryURL(cfg.Remote.RegistryURL),
		jsdelivr.WithTimeout(time.Duration(cfg.Remote.TimeoutSeconds)*time.Second),
	)
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.General.Sources = applySources
	}
	if flags.Changed("out") {
		cfg.General.OutputDir = config.ExpandPath(applyOut)
	}
	if flags.Changed("keep-old") {
		cfg.General.KeepOld = applyKeepOld
	}
	if flags.Changed("concurrency") {
		cfg.General.Concurrency = applyConcurrency
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if applySave {
		if err := cfg.Save(resolvedConfigPath()); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("Saved sources to %s\n", resolvedConfigPath())
	}

	result, runID, err := applyOnce(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d files to %s (%d failed) in %s\n",
		result.Succeeded(), result.OutputRoot, result.Failed(), result.Duration().Round(time.Millisecond))
	printFailures(os.Stdout, result, runID)
	return nil
}

const inlineFailures = 5

// printFailures points at the saved run when there is one, otherwise lists
// the first failures directly
func printFailures(w io.Writer, result *pipeline.RunResult, runID string) {
	failures := result.Failures()
	if len(failures) == 0 {
		return
	}
	if runID != "" {
		fmt.Fprintf(w, "Warning: %d records failed; run `champr history --failures %s` for details\n", len(failures), runID)
		return
	}

	fmt.Fprintf(w, "Warning: %d records failed:\n", len(failures))
	for i, f := range failures {
		if i == inlineFailures {
			fmt.Fprintf(w, "  ...and %d more\n", len(failures)-inlineFailures)
			break
		}
		fmt.Fprintf(w, "  %s %s [%s]: %s\n", f.Source, f.Champion, f.Stage, f.Err)
	}
}

// applyOnce runs the pipeline and records the outcome. The returned run ID is
// empty unless the run was saved to history.
func applyOnce(ctx context.Context, cfg *config.Config) (*pipeline.RunResult, string, error) {
	builds := newBuildClient(cfg)

	opts := []pipeline.Option{pipeline.WithConcurrency(cfg.General.Concurrency)}
	if cfg.Remote.PinVersions {
		opts = append(opts, pipeline.WithVersionResolver(builds))
	}

	fmt.Printf("Fetching builds from %s into %s\n", strings.Join(cfg.General.Sources, ", "), cfg.General.OutputDir)
	result, err := pipeline.New(newCatalogClient(cfg), builds, opts...).Run(ctx, pipeline.Request{
		Sources:    cfg.General.Sources,
		OutputRoot: cfg.General.OutputDir,
		KeepOld:    cfg.General.KeepOld,
	})
	var runID string
	if result != nil {
		runID = record(context.WithoutCancel(ctx), cfg, result)
	}
	return result, runID, err
}

// record saves the run to history and notifies Discord. Failures here are
// logged only. It returns the run ID when the run was saved.
func record(ctx context.Context, cfg *config.Config, result *pipeline.RunResult) string {
	run := history.NewRun(result)

	var saved string
	if cfg.History.Enabled {
		if err := saveRun(ctx, cfg, run); err != nil {
			log.Printf("[History] Failed to save run: %v", err)
		} else {
			saved = run.ID
			fmt.Printf("Run ID: %s\n", run.ID)
		}
	}

	if cfg.Notifications.DiscordWebhook != "" {
		if err := discord.NewWebhookClient(cfg.Notifications.DiscordWebhook).SendRunSummary(ctx, run); err != nil {
			log.Printf("[Discord] Failed to send summary: %v", err)
		}
	}
	return saved
}

func openHistory(ctx context.Context, cfg *config.Config) (history.Store, error) {
	dsn := cfg.History.DatabaseURL
	if dsn == "" {
		dsn = config.DefaultHistoryPath()
	}
	return history.Open(ctx, dsn)
}

func saveRun(ctx context.Context, cfg *config.Config, run history.Run) error {
	store, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveRun(ctx, run)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sources, err := newBuildClient(cfg).FetchSources(cmd.Context())
	if err != nil {
		return err
	}

	selected := make(map[string]bool, len(cfg.General.Sources))
	for _, s := range cfg.General.Sources {
		selected[s] = true
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tVALUE\tLABEL\tMODES")
	for _, s := range sources {
		var modes []string
		if s.Aram() {
			modes = append(modes, "ARAM")
		}
		if s.Urf() {
			modes = append(modes, "URF")
		}
		mark := ""
		if selected[s.Value] {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, s.Value, s.Label, strings.Join(modes, ","))
	}
	return w.Flush()
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	if historyFailures != "" {
		failures, err := store.Failures(ctx, historyFailures)
		if err != nil {
			return err
		}
		if len(failures) == 0 {
			fmt.Println("No failures recorded for this run")
			return nil
		}
		fmt.Fprintln(w, "SOURCE\tCHAMPION\tSTAGE\tERROR")
		for _, f := range failures {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Source, f.Champion, f.Stage, f.Error)
		}
		return w.Flush()
	}

	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet")
		return nil
	}

	fmt.Fprintln(w, "ID\tSTARTED\tVERSION\tSOURCES\tOK\tFAILED\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Version,
			strings.Join(r.Sources, ","), r.Succeeded, r.Failed, r.Duration().Round(time.Second))
	}
	return w.Flush()
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("cron") {
		cfg.Schedule.Cron = scheduleCron
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sched, err := schedule.ParseCron(cfg.Schedule.Cron)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cfg.Schedule.Cron, err)
	}

	s := schedule.New(sched, func(ctx context.Context) error {
		result, runID, err := applyOnce(ctx, cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d files (%d failed)\n", result.Succeeded(), result.Failed())
		printFailures(os.Stdout, result, runID)
		return nil
	}, schedule.WithRunOnStart(scheduleNow))

	fmt.Printf("Scheduled on %q, next run at %s\n", cfg.Schedule.Cron, s.NextRun().Format(time.RFC1123))
	if err := s.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	source := cfg.Client.RuneSource
	if watchSource != "" {
		source = watchSource
	}
	if source == "" {
		return fmt.Errorf("no rune source configured")
	}

	ctx := cmd.Context()
	registry := ddragon.NewRegistry(newCatalogClient(cfg))
	if err := registry.Load(ctx); err != nil {
		return fmt.Errorf("failed to load champion catalog: %w", err)
	}
	builds := newBuildClient(cfg)

	for {
		fmt.Println("Waiting for League client...")
		ep, err := lcu.Discover(ctx, lcu.DiscoverOptions{
			Paths:   cfg.Client.LockfilePaths,
			Timeout: watchWait,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		applier := runepage.NewApplier(builds, registry, lcu.NewClient(ep), source)
		watcher := lcu.NewWatcher(ep, func(session *lcu.ChampSelectSession) {
			if err := applier.HandleSession(ctx, session); err != nil {
				log.Printf("[Watch] %v", err)
			}
		})

		fmt.Printf("Connected to League client, applying %s runes\n", source)
		err = watcher.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("[Watch] Disconnected: %v", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
		}
	}
}
