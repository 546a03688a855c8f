package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/graphledger/internal/config"
	"github.com/roach88/graphledger/internal/engine"
	"github.com/roach88/graphledger/internal/graph"
	"github.com/roach88/graphledger/internal/sequence"
	"github.com/roach88/graphledger/internal/store"
)

// openGraphStore connects to the graph database. Tests replace it with a
// recording store.
var openGraphStore = func(ctx context.Context, cfg config.Neo4j) (graph.Store, error) {
	return graph.OpenNeo4j(ctx, graph.Neo4jConfig{
		URI:      cfg.URI,
		Username: cfg.Username,
		Password: cfg.Password,
		Database: cfg.Database,
	})
}

// runtime is everything a command needs to execute requests: the engine
// and the resources behind it, closed in reverse order of opening.
type runtime struct {
	engine  *engine.Engine
	journal *store.Store
	closers []func(context.Context) error
}

// loadConfig reads --config and the environment.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openRuntime wires config, graph store, sequence provider and journal
// into an engine, then raises the sequence above every number already
// used: first the journal's record (which includes burned numbers), then
// the graph's change log.
func openRuntime(ctx context.Context, opts *RootOptions) (_ *runtime, err error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	slog.Debug("configuration loaded", "config", cfg.String())

	rt := &runtime{}
	defer func() {
		if err != nil {
			rt.Close(ctx)
		}
	}()

	gs, err := openGraphStore(ctx, cfg.Neo4j)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, gs.Close)

	seq, err := openSequence(cfg.Sequence)
	if err != nil {
		return nil, err
	}
	if b, ok := seq.(*sequence.Bolt); ok {
		rt.closers = append(rt.closers, func(context.Context) error { return b.Close() })
	}

	engineOpts := []engine.Option{
		engine.WithTimeout(cfg.Timeout),
		engine.WithLogger(slog.Default()),
	}
	if cfg.Journal.Path != "" {
		j, err := store.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		rt.journal = j
		rt.closers = append(rt.closers, func(context.Context) error { return j.Close() })
		engineOpts = append(engineOpts, engine.WithJournal(j))

		highest, err := j.HighestNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("read journal high-water mark: %w", err)
		}
		if err := seq.(sequence.Advancer).Advance(highest); err != nil {
			return nil, fmt.Errorf("advance sequence to %d: %w", highest, err)
		}
	}

	rt.engine = engine.New(gs, seq, engineOpts...)
	if _, err := rt.engine.SeedHighWaterMark(ctx); err != nil {
		return nil, err
	}
	return rt, nil
}

// openSequence returns a provider that can always be advanced.
func openSequence(cfg config.Sequence) (sequence.Provider, error) {
	switch cfg.Backend {
	case config.BackendBolt:
		return sequence.OpenBolt(cfg.Path)
	default:
		return sequence.NewClock(), nil
	}
}

// Close releases every resource, newest first, and logs failures.
func (rt *runtime) Close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("error closing resource", "error", err)
		}
	}
	rt.closers = nil
}
