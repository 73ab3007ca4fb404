package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/HendryAvila/specgate/internal/collab"
	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/llm"
	"github.com/HendryAvila/specgate/internal/lock"
	"github.com/HendryAvila/specgate/internal/store"
)

// lockTTL bounds how long a crashed process can hold a Redis category lock.
const lockTTL = 30 * time.Second

// Open builds an Engine from configuration: the SQLite store in the data
// directory, the configured collaborator behind the retry wrapper, and a
// Redis lock when a Redis URL is set. The returned close function releases
// everything Open acquired.
func Open(cfg *config.Config, logger *slog.Logger) (*Engine, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	caps, err := Capabilities(cfg)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	closers := []func() error{st.Close}
	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisURL != "" {
		rl, err := lock.NewRedis(cfg.RedisURL, lockTTL, logger)
		if err != nil {
			st.Close()
			return nil, nil, err
		}
		locker = rl
		closers = append(closers, rl.Close)
		logger.Info("using redis category locks")
	}

	e := New(Options{
		Config:       cfg,
		Store:        st,
		Capabilities: caps,
		Locker:       locker,
		Logger:       logger,
	})
	closeAll := func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	return e, closeAll, nil
}

// Capabilities returns the configured collaborator wrapped with retries
// and a per-call timeout.
func Capabilities(cfg *config.Config) (collab.Capabilities, error) {
	var inner collab.Capabilities
	switch cfg.LLM.Provider {
	case "", "heuristic":
		inner = collab.NewHeuristic(cfg)
	case "openai":
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("llm provider openai requires OPENAI_API_KEY")
		}
		inner = llm.New(llm.NewOpenAIProvider(cfg.LLM.Model, cfg.LLM.APIKey, cfg.LLM.BaseURL))
	default:
		return nil, fmt.Errorf("unknown llm provider %q: must be heuristic or openai", cfg.LLM.Provider)
	}
	timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	return collab.NewResilient(inner, cfg.LLM.MaxAttempts, timeout), nil
}
