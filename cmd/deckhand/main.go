// Command deckhand fills a session with autopilot captains.
// It polls the harbor API, decides each phase from the shared snapshot,
// and submits through the same endpoints a human captain uses.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/83ace42/fish-tycoon/internal/deckhand"
	"github.com/83ace42/fish-tycoon/internal/engine"
)

var (
	flagURL      string
	flagSession  string
	flagCaptains int
	flagRounds   int
	flagPoll     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "deckhand",
	Short: "Autopilot captains for a harbor session",
	Long: `Deckhand joins a harbor session with one or more autopilot captains.
Without --session it creates a fresh lobby; the first captain hosts and
starts the game once every captain has joined.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&flagURL, "url", envOrDefault("HARBOR_API_URL", "http://localhost:8080"), "harbor API base URL")
	rootCmd.Flags().StringVar(&flagSession, "session", "", "join an existing session instead of creating one")
	rootCmd.Flags().IntVarP(&flagCaptains, "captains", "n", envIntOrDefault("DECKHAND_CAPTAINS", 3), "number of captains")
	rootCmd.Flags().IntVar(&flagRounds, "rounds", 0, "years to play (0 = server default)")
	rootCmd.Flags().DurationVar(&flagPoll, "poll", 500*time.Millisecond, "snapshot poll interval")
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

func run(cmd *cobra.Command, args []string) error {
	if flagCaptains < 1 {
		return fmt.Errorf("--captains must be at least 1")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("waiting for harbor API...", "url", flagURL)
	if err := waitForAPI(ctx, flagURL); err != nil {
		return err
	}

	sessionID := flagSession
	if sessionID == "" {
		id, err := deckhand.NewActor(flagURL).CreateSession(ctx, flagRounds)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		sessionID = id
		slog.Info("session created", "session", sessionID)
	}

	finals := make([]*engine.Snapshot, flagCaptains)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < flagCaptains; i++ {
		c := deckhand.NewCaptain(fmt.Sprintf("Deckhand %d", i+1), flagURL)
		c.Poll = flagPoll
		if flagSession == "" {
			// whoever joins first hosts; only the host's StartAt takes effect
			c.StartAt = flagCaptains
			c.MaxRounds = flagRounds
		}
		g.Go(func() error {
			snap, err := c.Run(gctx, sessionID)
			finals[i] = snap
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, st := range finals[0].Standings {
		fmt.Printf("#%d %-14s $%s (%d ships)\n", st.Rank, st.Name, humanize.CommafWithDigits(st.Wealth, 2), st.Ships)
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

// waitForAPI polls the status endpoint with exponential backoff until it
// responds. Gives up after 5 minutes.
func waitForAPI(ctx context.Context, apiURL string) error {
	observer := deckhand.NewObserver(apiURL)
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(5 * time.Minute)

	for {
		st, err := observer.Status(ctx)
		if err == nil {
			slog.Info("harbor API is ready", "active", st.Active, "uptime_sec", st.UptimeSec)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("harbor API at %s did not become ready within 5 minutes: %w", apiURL, err)
		}
		slog.Info("harbor not ready, retrying...", "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
