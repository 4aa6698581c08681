// Command harbor runs the fishing session server.
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/83ace42/fish-tycoon/internal/api"
	"github.com/83ace42/fish-tycoon/internal/config"
	"github.com/83ace42/fish-tycoon/internal/entropy"
	"github.com/83ace42/fish-tycoon/internal/persistence"
	"github.com/83ace42/fish-tycoon/internal/session"
)

var (
	flagPort       int
	flagDB         string
	flagJournalDir string
	flagConfig     string
	flagSeed       int64
	flagAdminKey   string
	flagRate       float64
	flagBurst      int
	flagSession    string
	flagOut        string
)

var rootCmd = &cobra.Command{
	Use:   "harbor",
	Short: "Turn-based fishing economy server",
	Long: `Harbor hosts one fishing session at a time. Captains join over HTTP,
submit sealed decisions for each phase, and the server resolves a phase
once every captain has decided.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE:  runServe,
}

var journalCmd = &cobra.Command{
	Use:   "journal <file.jsonl.zst>",
	Short: "Print a resolution journal",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournal,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a session's yearly books as CSV",
	Long: `Export writes one row per captain per closed year from the history
database: Year, Player, Ships, Caught, Frozen, Accepted_Contract, Profit, Cash.
Without --session the most recently played session is exported.`,
	RunE: runExport,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective tuning as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", os.Getenv("HARBOR_CONFIG"), "YAML tuning file (defaults built in)")

	serveCmd.Flags().IntVar(&flagPort, "port", envIntOrDefault("HARBOR_PORT", 8080), "HTTP port")
	serveCmd.Flags().StringVar(&flagDB, "db", envOrDefault("HARBOR_DB", "data/harbor.db"), "SQLite history database (empty disables)")
	serveCmd.Flags().StringVar(&flagJournalDir, "journal-dir", envOrDefault("HARBOR_JOURNAL_DIR", "data/journal"), "resolution journal directory (empty disables)")
	serveCmd.Flags().Int64Var(&flagSeed, "seed", 0, "deterministic seed for weather and fish placement (0 = random)")
	serveCmd.Flags().StringVar(&flagAdminKey, "admin-key", os.Getenv("HARBOR_ADMIN_KEY"), "bearer token for operator endpoints")
	serveCmd.Flags().Float64Var(&flagRate, "rate", 10, "requests per second per client")
	serveCmd.Flags().IntVar(&flagBurst, "burst", 20, "request burst per client")

	exportCmd.Flags().StringVar(&flagDB, "db", envOrDefault("HARBOR_DB", "data/harbor.db"), "SQLite history database")
	exportCmd.Flags().StringVar(&flagSession, "session", "", "session id (default: last played)")
	exportCmd.Flags().StringVarP(&flagOut, "out", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(serveCmd, journalCmd, exportCmd, configCmd)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	if flagConfig == "" {
		return config.Default(), nil
	}
	return config.Load(flagConfig)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	opts := []session.Option{session.WithConfig(cfg), session.WithLogger(slog.Default())}
	if flagSeed != 0 {
		opts = append(opts, session.WithSeed(flagSeed), session.WithSource(entropy.NewSeeded(flagSeed)))
	}
	coord := session.New(opts...)

	srv := &api.Server{
		Coord:    coord,
		Port:     flagPort,
		AdminKey: flagAdminKey,
		Limiter:  api.NewRateLimiter(flagRate, flagBurst),
	}

	if flagDB != "" {
		if err := os.MkdirAll(filepath.Dir(flagDB), 0o755); err != nil {
			return err
		}
		db, err := persistence.Open(flagDB)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		slog.Info("database opened", "path", flagDB)
		if last, err := db.GetMeta("last_session"); err == nil {
			slog.Info("previous session on record", "session", last)
		}
		srv.DB = db
		coord.OnResolve(db.Hook)
	}

	if flagJournalDir != "" {
		j := persistence.NewJournal(flagJournalDir, "resolutions")
		defer j.Close()
		coord.OnResolve(j.Hook)
		slog.Info("journal enabled", "dir", flagJournalDir)
	}

	slog.Info("harbor starting",
		"port", flagPort,
		"seed", flagSeed,
		"starting_cash", humanize.CommafWithDigits(cfg.StartingCash, 2),
		"auction", cfg.Auction.Enabled,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("harbor stopped")
	return nil
}

func runJournal(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	n := 0
	err := persistence.ReadJournal(args[0], func(e persistence.Entry) error {
		n++
		res := e.Resolution
		fmt.Fprintf(out, "%s  %s  year %d  %s -> %s\n",
			e.Time.Format("2006-01-02 15:04:05"), e.SessionID, res.Round, res.Resolved, res.Next)
		if res.Price != nil {
			fmt.Fprintf(out, "    price $%s\n", humanize.FormatFloat("#,###.##", *res.Price))
		}
		for _, line := range res.Log {
			fmt.Fprintf(out, "    %s\n", line)
		}
		for _, st := range res.Standings {
			fmt.Fprintf(out, "    #%d %s $%s\n", st.Rank, st.Name, humanize.CommafWithDigits(st.Wealth, 2))
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d resolutions\n", n)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := persistence.Open(flagDB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	sessionID := flagSession
	if sessionID == "" {
		if sessionID, err = db.GetMeta("last_session"); err != nil {
			return fmt.Errorf("no session recorded in %s; pass --session", flagDB)
		}
	}
	sess, err := db.Session(sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("unknown session %s", sessionID)
	}
	if err != nil {
		return err
	}
	rows, err := db.YearlyRecords(sessionID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagOut != "" {
		f, err := os.Create(flagOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := persistence.WriteYearlyCSV(out, rows); err != nil {
		return err
	}
	if flagOut != "" {
		// stdout carries the CSV otherwise
		slog.Info("exported session", "session", sessionID, "rows", len(rows),
			"max_rounds", sess.MaxRounds, "finished", sess.Finished, "out", flagOut)
	}
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
