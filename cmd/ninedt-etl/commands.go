package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/park285/ninedt-etl/internal/builder"
	"github.com/park285/ninedt-etl/internal/config"
	"github.com/park285/ninedt-etl/internal/obslog"
	"github.com/park285/ninedt-etl/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	cfg  *config.AppConfig
	deps *builder.Deps

	databaseURL string
	redisURL    string
}

// newRootCmd returns the command tree and a cleanup func; cobra skips
// PersistentPostRun when a command fails.
func newRootCmd() (*cobra.Command, func()) {
	a := &app{}

	root := &cobra.Command{
		Use:   "ninedt-etl",
		Short: "Load 9dt game logs and player profiles into a relational store",
		Long: `ninedt-etl repairs malformed game ids in the 9dt move log, derives a
complete win/lose/draw result for every participant and loads moves, results
and player profiles into Postgres, SQLite or memory (DATABASE_URL).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
	}
	root.PersistentFlags().StringVar(&a.databaseURL, "database-url", "", "sink DSN; overrides DATABASE_URL")
	root.PersistentFlags().StringVar(&a.redisURL, "redis-url", "", "run ledger Redis URL; overrides REDIS_URL")

	root.AddCommand(a.schemaCmd(), a.gamesCmd(), a.playersCmd(), a.runCmd(), a.historyCmd())
	return root, a.teardown
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if v := strings.TrimSpace(a.databaseURL); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(a.redisURL); v != "" {
		cfg.RedisURL = v
	}
	if err := obslog.Init(obslog.OptionsFromEnv()); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	deps, err := builder.New(cmd.Context(), cfg, obslog.L())
	if err != nil {
		return err
	}
	a.cfg, a.deps = cfg, deps
	return nil
}

func (a *app) teardown() {
	if a.deps != nil {
		if err := a.deps.Close(); err != nil {
			obslog.L().Warn("close failed", zap.Error(err))
		}
		a.deps = nil
	}
	obslog.Sync()
}

func (a *app) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the player_data, game_results and game_moves tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.deps.Service.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return nil
		},
	}
}

func (a *app) gamesCmd() *cobra.Command {
	var (
		src             string
		allowUnresolved bool
	)
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Repair, reconcile and load the game move log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if src != "" {
				a.cfg.GamesSource = src
			}
			if err := a.cfg.RequireGamesSource(); err != nil {
				return err
			}
			svc, err := a.service(allowUnresolved)
			if err != nil {
				return err
			}
			rep, err := svc.RunGames(cmd.Context(), a.cfg.GamesSource)
			if rep != nil {
				printGames(cmd.OutOrStdout(), rep)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&src, "source", "", "games CSV path or URL; overrides GAMES_SOURCE")
	cmd.Flags().BoolVar(&allowUnresolved, "allow-unresolved", false, "store pairs without a derivable outcome as NULL")
	return cmd
}

func (a *app) playersCmd() *cobra.Command {
	var src string
	cmd := &cobra.Command{
		Use:   "players",
		Short: "Normalize and load player profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if src != "" {
				a.cfg.PlayersSource = src
			}
			if err := a.cfg.RequirePlayersSource(); err != nil {
				return err
			}
			rep, err := a.deps.Service.RunPlayers(cmd.Context(), a.cfg.PlayersSource)
			if rep != nil && err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d players from %d documents\n", rep.RunID, rep.Players, rep.Docs)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&src, "source", "", "players JSON path or URL; overrides PLAYERS_SOURCE")
	return cmd
}

func (a *app) runCmd() *cobra.Command {
	var (
		gamesSrc, playersSrc string
		allowUnresolved      bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create the schema, then load players and games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if gamesSrc != "" {
				a.cfg.GamesSource = gamesSrc
			}
			if playersSrc != "" {
				a.cfg.PlayersSource = playersSrc
			}
			if err := a.cfg.RequireGamesSource(); err != nil {
				return err
			}
			svc, err := a.service(allowUnresolved)
			if err != nil {
				return err
			}
			prep, grep, err := svc.RunAll(cmd.Context(), a.cfg.PlayersSource, a.cfg.GamesSource)
			if prep != nil && prep.Players > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d players from %d documents\n", prep.RunID, prep.Players, prep.Docs)
			}
			if grep != nil {
				printGames(cmd.OutOrStdout(), grep)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&gamesSrc, "games", "", "games CSV path or URL; overrides GAMES_SOURCE")
	cmd.Flags().StringVar(&playersSrc, "players", "", "players JSON path or URL; overrides PLAYERS_SOURCE")
	cmd.Flags().BoolVar(&allowUnresolved, "allow-unresolved", false, "store pairs without a derivable outcome as NULL")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs recorded in the Redis ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.deps.Ledger.Enabled() {
				return fmt.Errorf("REDIS_URL is required for run history")
			}
			runs, err := a.deps.Ledger.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				status := "ok"
				if !r.OK() {
					status = "failed: " + r.Err
				}
				fmt.Fprintf(out, "%s  %-7s  %s  %s  %s\n",
					r.StartedAt.Format(time.RFC3339), r.Job, r.ID,
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond), status)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	return cmd
}

// service returns the wired service, rebuilt when --allow-unresolved widens the config.
func (a *app) service(allowUnresolved bool) (*pipeline.Service, error) {
	if !allowUnresolved || a.cfg.AllowUnresolved {
		return a.deps.Service, nil
	}
	return pipeline.NewService(a.deps.Sink, a.deps.Ledger, a.deps.Fetch, pipeline.Config{
		AllowUnresolved: true,
		LockTTL:         a.cfg.LockTTL,
	}, obslog.L())
}

func printGames(w io.Writer, rep *pipeline.GamesReport) {
	fmt.Fprintf(w, "run %s: %d records, %d repaired in %d runs, %d moves, %d results (%d filled as lose, %d draw overwrites, %d unresolved)\n",
		rep.RunID, rep.Records, rep.Repaired, len(rep.Runs), rep.Moves, rep.Results,
		rep.Filled, len(rep.Overwrites), len(rep.Unresolved))
}
