package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/ninedt-etl/internal/domain"
	"github.com/park285/ninedt-etl/internal/ledger"
	"github.com/park285/ninedt-etl/internal/players"
	"github.com/park285/ninedt-etl/internal/reconcile"
	"github.com/park285/ninedt-etl/internal/source"
	"github.com/park285/ninedt-etl/internal/store"
	"go.uber.org/zap"
)

const (
	JobGames   = "games"
	JobPlayers = "players"

	defaultLockTTL = 15 * time.Minute
	// cap on per-pair log lines; the full list stays on the report
	maxLoggedPairs = 20
)

// Ledger is satisfied by *ledger.Store.
type Ledger interface {
	Acquire(ctx context.Context, job, runID string, ttl time.Duration) (func(context.Context) error, error)
	Record(ctx context.Context, sum ledger.RunSummary) error
}

type Config struct {
	// AllowUnresolved persists pairs with no derivable outcome as NULL instead of failing the run.
	AllowUnresolved bool
	LockTTL         time.Duration
}

type Service struct {
	sink   store.Sink
	ledger Ledger
	getter source.Getter
	cfg    Config
	logger *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewService(sink store.Sink, led Ledger, getter source.Getter, cfg Config, logger *zap.Logger) (*Service, error) {
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if led == nil {
		led = &ledger.Store{}
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sink:   sink,
		ledger: led,
		getter: getter,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

func (s *Service) EnsureSchema(ctx context.Context) error {
	if err := s.sink.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	s.logger.Info("schema ready")
	return nil
}

// Reconciled is the in-memory outcome of the game transformation, before any write.
type Reconciled struct {
	Repair    reconcile.RepairStats
	Moves     []domain.Move
	Inference *reconcile.Inference
}

// Reconcile reads the games CSV from r and runs repair, split and inference.
// Unresolved pairs are reported on the result and are not an error here.
func Reconcile(r io.Reader) (*Reconciled, error) {
	raw, err := source.ReadGameCSV(r)
	if err != nil {
		return nil, err
	}
	cleaned, stats, err := reconcile.RepairGameIDs(raw)
	if err != nil {
		return nil, err
	}
	moves, partials := reconcile.Split(cleaned)
	inf, err := reconcile.Infer(moves, partials)
	if err != nil {
		return nil, err
	}
	return &Reconciled{Repair: stats, Moves: moves, Inference: inf}, nil
}

type GamesReport struct {
	RunID      string
	Source     string
	Records    int
	Repaired   int
	Runs       []reconcile.RepairedRun
	Moves      int
	Results    int
	Overwrites []reconcile.Overwrite
	Filled     int
	Unresolved []domain.PairKey
}

// RunGames loads the games feed at location into the sink: results first, then moves.
func (s *Service) RunGames(ctx context.Context, location string) (rep *GamesReport, err error) {
	rep = &GamesReport{RunID: s.newID(), Source: location}
	log := s.logger.With(zap.String("run_id", rep.RunID), zap.String("job", JobGames))
	started := s.now()

	release, err := s.ledger.Acquire(ctx, JobGames, rep.RunID, s.cfg.LockTTL)
	if err != nil {
		return rep, err
	}
	defer s.finish(ctx, log, release, started, func() ledger.RunSummary {
		return ledger.RunSummary{
			ID: rep.RunID, Job: JobGames, Source: rep.Source,
			Records: rep.Records, Repaired: rep.Repaired, Moves: rep.Moves, Results: rep.Results,
			Overwrites: len(rep.Overwrites), Filled: rep.Filled, Unresolved: len(rep.Unresolved),
		}
	}, &err)

	log.Info("run started", zap.String("source", location))
	rc, err := source.Open(ctx, location, s.getter)
	if err != nil {
		return rep, fmt.Errorf("games source: %w", err)
	}
	defer rc.Close()

	out, err := Reconcile(rc)
	if err != nil {
		return rep, fmt.Errorf("reconcile games: %w", err)
	}
	inf := out.Inference
	rep.Records = out.Repair.Records
	rep.Repaired = out.Repair.RepairedRecords()
	rep.Runs = out.Repair.Runs
	rep.Moves = len(out.Moves)
	rep.Results = len(inf.Results)
	rep.Overwrites = inf.Overwrites
	rep.Filled = inf.Filled
	rep.Unresolved = inf.Unresolved

	for _, run := range out.Repair.Runs {
		log.Info("repaired game id",
			zap.String("token", run.Token),
			zap.Int64("game_id", run.GameID),
			zap.Int("first_record", run.Start),
			zap.Int("records", run.Count),
		)
	}
	for i, ow := range inf.Overwrites {
		if i == maxLoggedPairs {
			log.Warn("more draw overwrites not logged", zap.Int("remaining", len(inf.Overwrites)-i))
			break
		}
		log.Warn("draw overwrote explicit result",
			zap.Int64("game_id", ow.Pair.GameID),
			zap.Int64("player_id", ow.Pair.PlayerID),
			zap.String("previous", string(ow.Previous)),
		)
	}
	if n := len(inf.Unresolved); n > 0 {
		fields := []zap.Field{zap.Int("pairs", n), zap.Bool("allowed", s.cfg.AllowUnresolved)}
		if n <= maxLoggedPairs {
			fields = append(fields, zap.Stringers("pending", inf.Unresolved))
		}
		log.Warn("unresolved game results", fields...)
		if !s.cfg.AllowUnresolved {
			return rep, &reconcile.UnresolvedResultError{Pairs: inf.Unresolved}
		}
	}

	if _, err := s.sink.LoadResults(ctx, inf.Results); err != nil {
		return rep, fmt.Errorf("load results: %w", err)
	}
	if _, err := s.sink.LoadMoves(ctx, out.Moves); err != nil {
		return rep, fmt.Errorf("load moves: %w", err)
	}
	log.Info("games loaded",
		zap.Int("records", rep.Records),
		zap.Int("repaired", rep.Repaired),
		zap.Int("moves", rep.Moves),
		zap.Int("results", rep.Results),
		zap.Int("filled", rep.Filled),
		zap.Int("overwrites", len(rep.Overwrites)),
	)
	return rep, nil
}

type PlayersReport struct {
	RunID   string
	Source  string
	Docs    int
	Players int
}

// RunPlayers loads the player profile document at location into the sink.
func (s *Service) RunPlayers(ctx context.Context, location string) (rep *PlayersReport, err error) {
	rep = &PlayersReport{RunID: s.newID(), Source: location}
	log := s.logger.With(zap.String("run_id", rep.RunID), zap.String("job", JobPlayers))
	started := s.now()

	release, err := s.ledger.Acquire(ctx, JobPlayers, rep.RunID, s.cfg.LockTTL)
	if err != nil {
		return rep, err
	}
	defer s.finish(ctx, log, release, started, func() ledger.RunSummary {
		return ledger.RunSummary{ID: rep.RunID, Job: JobPlayers, Source: rep.Source, Records: rep.Docs, Players: rep.Players}
	}, &err)

	log.Info("run started", zap.String("source", location))
	rc, err := source.Open(ctx, location, s.getter)
	if err != nil {
		return rep, fmt.Errorf("players source: %w", err)
	}
	defer rc.Close()

	docs, err := source.ReadPlayersJSON(rc)
	if err != nil {
		return rep, fmt.Errorf("read players: %w", err)
	}
	rep.Docs = len(docs)
	profiles, err := players.Normalize(docs)
	if err != nil {
		return rep, fmt.Errorf("normalize players: %w", err)
	}
	n, err := s.sink.LoadPlayers(ctx, profiles)
	if err != nil {
		return rep, fmt.Errorf("load players: %w", err)
	}
	rep.Players = n
	log.Info("players loaded", zap.Int("docs", rep.Docs), zap.Int("players", rep.Players))
	return rep, nil
}

// RunAll loads players before games so result rows can reference them.
func (s *Service) RunAll(ctx context.Context, playersLocation, gamesLocation string) (*PlayersReport, *GamesReport, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, nil, err
	}
	var (
		prep *PlayersReport
		err  error
	)
	if strings.TrimSpace(playersLocation) != "" {
		if prep, err = s.RunPlayers(ctx, playersLocation); err != nil {
			return prep, nil, err
		}
	}
	grep, err := s.RunGames(ctx, gamesLocation)
	return prep, grep, err
}

func (s *Service) finish(ctx context.Context, log *zap.Logger, release func(context.Context) error, started time.Time, summary func() ledger.RunSummary, errp *error) {
	// bookkeeping outlives a canceled run context
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	sum := summary()
	sum.StartedAt = started.UTC()
	sum.FinishedAt = s.now().UTC()
	if *errp != nil {
		sum.Err = (*errp).Error()
		log.Error("run failed", zap.Error(*errp), zap.Duration("elapsed", sum.FinishedAt.Sub(sum.StartedAt)))
	}
	if err := s.ledger.Record(bctx, sum); err != nil {
		log.Warn("failed to record run summary", zap.Error(err))
	}
	if err := release(bctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("failed to release job lock", zap.Error(err))
	}
}
