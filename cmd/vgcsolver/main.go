// Command vgcsolver runs the decision service: it loads configuration,
// connects the stores and serves the WebSocket decision endpoint.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/kaname-hf/vgcsolver/engine/belief"
	"github.com/kaname-hf/vgcsolver/internal/advisory"
	"github.com/kaname-hf/vgcsolver/internal/config"
	"github.com/kaname-hf/vgcsolver/internal/decision"
	"github.com/kaname-hf/vgcsolver/internal/server"
	"github.com/kaname-hf/vgcsolver/internal/store"
	"github.com/kaname-hf/vgcsolver/internal/usage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// .env is optional; it only feeds the env overrides below.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(os.Getenv("VGC_LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	dcfg := decision.DefaultConfig()
	dcfg.Determinizations = cfg.Search.Determinizations
	dcfg.Workers = cfg.Search.Workers
	dcfg.Budget = cfg.Search.Budget.Std()
	dcfg.Seed = cfg.Search.Seed
	dcfg.Solver.Depth = cfg.Search.Depth
	dcfg.Solver.NSamples = cfg.Search.Samples
	dcfg.Solver.TauOpp = cfg.Search.TauOpponent
	dcfg.Solver.TauSelf = cfg.Search.TauSelf
	dcfg.Risk.SecureThreshold = cfg.Risk.SecureThreshold
	dcfg.Risk.GambleThreshold = cfg.Risk.GambleThreshold

	var adv decision.AdvisoryProvider
	if cfg.AdvisoryURL != "" {
		adv = advisory.New(cfg.AdvisoryURL, cfg.AdvisoryTimeout.Std())
		log.WithField("url", cfg.AdvisoryURL).Info("advisory client enabled")
	}

	redisLog := store.NewRedisLogger(cfg.RedisAddr, log)
	defer redisLog.Close()
	var sink decision.Sink = redisLog

	var repo *store.DecisionRepo
	if cfg.PostgresURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		repo, err = store.NewDecisionRepo(ctx, cfg.PostgresURL)
		if err != nil {
			cancel()
			log.WithError(err).Fatal("connect postgres")
		}
		if err := repo.Init(ctx); err != nil {
			cancel()
			log.WithError(err).Fatal("init postgres schema")
		}
		cancel()
		defer repo.Close()
		sink = multiSink{redisLog, &pgSink{repo: repo, log: log}}
		log.Info("postgres decision repository enabled")
	}

	seeder, mem := buildSeeder(cfg, log)
	if mem != nil {
		defer mem.Close()
	}

	srv := server.New(dcfg, log, adv, sink)
	if seeder != nil {
		srv.SetPriorSeeder(seeder)
	}
	if mem != nil || repo != nil {
		srv.SetMatchRecorder(&matchRecorder{mem: mem, repo: repo, log: log})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("addr", cfg.ListenAddr).Info("decision service listening")
	if err := srv.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// buildSeeder composes the optional prior sources: usage statistics first,
// then battle memory on top. The memory handle is returned so match results
// can be written back to it.
func buildSeeder(cfg config.Config, log *logrus.Logger) (func(*belief.State), *store.Memory) {
	stats, err := usage.Load(cfg.UsagePath)
	if err != nil {
		log.WithError(err).Warn("usage statistics unavailable")
	}

	var mem *store.Memory
	if cfg.MemoryPath != "" {
		mem, err = store.OpenMemory(cfg.MemoryPath)
		if err != nil {
			log.WithError(err).Warn("battle memory unavailable")
			mem = nil
		}
	}
	if stats == nil && mem == nil {
		return nil, nil
	}

	return func(beliefs *belief.State) {
		if n := stats.Apply(beliefs); n > 0 {
			log.WithField("species", n).Debug("usage priors applied")
		}
		if mem != nil {
			if n, err := mem.SeedPriors(beliefs); err != nil {
				log.WithError(err).Warn("battle memory seeding failed")
			} else if n > 0 {
				log.WithField("species", n).Debug("battle memory priors applied")
			}
		}
	}, mem
}

// matchRecorder writes finished matches to battle memory and Postgres;
// either store may be absent.
type matchRecorder struct {
	mem  *store.Memory
	repo *store.DecisionRepo
	log  *logrus.Logger
}

func (m *matchRecorder) RecordMatch(ctx context.Context, matchID string, won bool, turns int, obs []decision.MatchupObservation) error {
	if m.mem != nil {
		for _, ob := range obs {
			if err := m.mem.RecordMatchup(ob.Species, won, ob.Item, ob.Spread); err != nil {
				m.log.WithError(err).WithField("species", ob.Species).Warn("matchup not recorded")
			}
		}
	}
	if m.repo != nil {
		return m.repo.SaveMatchResult(ctx, matchID, won, turns)
	}
	return nil
}

// multiSink fans decision records out to every configured sink.
type multiSink []decision.Sink

func (m multiSink) LogDecision(rec decision.Record) {
	for _, s := range m {
		s.LogDecision(rec)
	}
}

// pgSink persists records to Postgres without blocking the turn.
type pgSink struct {
	repo *store.DecisionRepo
	log  *logrus.Logger
}

func (p *pgSink) LogDecision(rec decision.Record) {
	go func(rec decision.Record) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := p.repo.SaveDecision(ctx, rec); err != nil {
			p.log.WithError(err).WithField("decision_id", rec.DecisionID).Error("persist decision")
		}
	}(rec)
}
