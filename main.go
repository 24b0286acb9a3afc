package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/MasteredSoftware/Astriarch-sub000/internal/command"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/config"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/events"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/fleet"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/game"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/journal"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	logging.ReplaceGlobals(logger)
	defer logger.Sync()

	gameID := uuid.NewString()
	logger = logger.With(logging.String(logging.GameIDField, gameID))

	state := game.NewState(gameID)
	seedGalaxy(state)

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	controller := game.NewController(state, rand.New(rand.NewSource(seed)))
	processor := command.NewProcessor(cfg.CommandRate, cfg.CommandBurst)
	stream := events.NewStream(events.Config{Retain: cfg.EventRetention})

	writer, manifest, err := journal.NewWriter(cfg.JournalDir, gameID, time.Now)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer writer.Close()

	logger.Info("game started",
		logging.String("journal_dir", writer.Directory()),
		logging.String("events_path", manifest.EventsPath),
		logging.Int64("seed", seed),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := &engine{
		cfg:        cfg,
		state:      state,
		controller: controller,
		processor:  processor,
		stream:     stream,
		writer:     writer,
		logger:     logger,
	}
	return engine.loop(ctx)
}

// engine owns the authoritative copy of one game and the plumbing around it.
type engine struct {
	cfg        *config.Config
	state      *game.State
	controller *game.Controller
	processor  *command.Processor
	stream     *events.Stream
	writer     *journal.Writer
	logger     *logging.Logger

	lastSnapshot time.Time
}

// Submit validates and applies a player command, then broadcasts and journals
// the resulting event batch. This is the entry point an attached transport
// would call; rejected commands leave no trace in the stream.
func (e *engine) Submit(cmd command.Command) error {
	batch, err := e.processor.Process(e.state, cmd)
	if err != nil {
		return err
	}
	return e.publish(batch)
}

// loop drives cycles at the configured cadence until the context ends.
func (e *engine) loop(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.CycleInterval)
	defer ticker.Stop()

	e.lastSnapshot = time.Now()
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("game stopped",
				logging.Uint64("cycle", e.state.Cycle),
				logging.String("checksum", e.stream.Checksum()),
			)
			return nil
		case <-ticker.C:
			if err := e.advance(); err != nil {
				return err
			}
		}
	}
}

func (e *engine) advance() error {
	batch, err := e.controller.AdvanceCycle()
	if err != nil {
		return fmt.Errorf("cycle %d: %w", e.state.Cycle, err)
	}
	if err := e.publish(batch); err != nil {
		return err
	}
	if time.Since(e.lastSnapshot) >= e.cfg.SnapshotInterval {
		if err := e.writer.AppendSnapshot(e.state.Cycle, e.stream.Checksum(), e.state); err != nil {
			return fmt.Errorf("journal snapshot: %w", err)
		}
		e.lastSnapshot = time.Now()
	}
	return nil
}

// publish folds the batch into the stream's rolling checksum, delivers it to
// subscribers and journals it. Empty batches are skipped; they would fold
// no-ops into the checksum and bloat the journal.
func (e *engine) publish(batch []events.Event) error {
	if len(batch) == 0 {
		return nil
	}
	if _, err := e.stream.Publish(batch); err != nil {
		return fmt.Errorf("publish batch: %w", err)
	}
	if err := e.writer.AppendBatch(e.state.Cycle, e.stream.Checksum(), batch); err != nil {
		return fmt.Errorf("journal batch: %w", err)
	}
	return nil
}

// seedGalaxy populates a small demonstration galaxy: two players on home
// planets at opposite corners with a few unowned worlds between them.
func seedGalaxy(state *game.State) {
	one := game.NewPlayer("player-1", "Commander One", true)
	two := game.NewPlayer("player-2", "Commander Two", true)
	state.Players[one.ID] = one
	state.Players[two.ID] = two

	home1 := game.NewPlanet(1, "Aldara", game.ClassPlanet2, fleet.Point{X: 0, Y: 0})
	home1.OwnerID = one.ID
	home1.Farmers, home1.Miners, home1.Builders = 2, 2, 2
	home1.Food, home1.Ore, home1.Gold = 10, 10, 20

	home2 := game.NewPlanet(2, "Vexa", game.ClassPlanet2, fleet.Point{X: 8, Y: 8})
	home2.OwnerID = two.ID
	home2.Farmers, home2.Miners, home2.Builders = 2, 2, 2
	home2.Food, home2.Ore, home2.Gold = 10, 10, 20

	state.Planets[home1.ID] = home1
	state.Planets[home2.ID] = home2
	state.Planets[3] = game.NewPlanet(3, "Cinder", game.ClassDeadPlanet, fleet.Point{X: 4, Y: 2})
	state.Planets[4] = game.NewPlanet(4, "Drift", game.ClassAsteroidBelt, fleet.Point{X: 4, Y: 6})

	for _, home := range []*game.Planet{home1, home2} {
		home.GenerateShip(fleet.TypeSystemDefense)
		home.GenerateShip(fleet.TypeScout)
		home.GenerateShip(fleet.TypeScout)
	}
}
