package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/newsthreader/internal/config"
	"github.com/jonesrussell/newsthreader/internal/database"
	"github.com/jonesrussell/newsthreader/internal/embedding"
	"github.com/jonesrussell/newsthreader/internal/fetcher"
	"github.com/jonesrussell/newsthreader/internal/gate"
	"github.com/jonesrussell/newsthreader/internal/judge"
	"github.com/jonesrussell/newsthreader/internal/logger"
	"github.com/jonesrussell/newsthreader/internal/metrics"
	"github.com/jonesrussell/newsthreader/internal/processor"
	"github.com/jonesrussell/newsthreader/internal/ratelimit"
	"github.com/jonesrussell/newsthreader/internal/reliability"
	"github.com/jonesrussell/newsthreader/internal/threading"
)

// app wires configuration, logging, the database, and the repositories
// shared by every command.
type app struct {
	cfg *config.Config
	log logger.Interface
	db  *sqlx.DB

	seeds    *database.SeedRepository
	outcomes *database.OutcomeRepository
	stats    *database.DomainStatRepository
	articles *database.ArticleRepository
	threads  *database.ThreadRepository
	reports  *database.RunReportRepository
}

// newApp bootstraps the shared command dependencies.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Development = true
		cfg.Server.Debug = true
	}

	log, err := logger.New(&logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Encoding,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		seeds:    database.NewSeedRepository(db),
		outcomes: database.NewOutcomeRepository(db),
		stats:    database.NewDomainStatRepository(db),
		articles: database.NewArticleRepository(db),
		threads:  database.NewThreadRepository(db),
		reports:  database.NewRunReportRepository(db),
	}, nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

// newTracker builds the domain reliability tracker.
func (a *app) newTracker() *reliability.Tracker {
	return reliability.NewTracker(a.outcomes, a.stats, reliability.Config{
		BlockThreshold: a.cfg.Reliability.BlockThreshold,
		MinSampleSize:  a.cfg.Reliability.MinSampleSize,
		NeutralPrior:   a.cfg.Reliability.NeutralPrior,
		WilsonZ:        a.cfg.Reliability.WilsonZ,
	}, a.log.WithComponent("reliability"))
}

// newRunner assembles the full pipeline. m may be nil for one-shot runs.
func (a *app) newRunner(m *metrics.Metrics) *processor.Runner {
	crawl := a.cfg.Crawl

	pageFetcher := fetcher.New(fetcher.Config{
		Timeout:      crawl.FetchTimeout,
		MaxBodyBytes: crawl.MaxBodyBytes,
		UserAgent:    crawl.UserAgent,
	})
	garbage := gate.NewGarbageDetector(gate.GarbageConfig{
		MinTextLength:      crawl.MinTextLength,
		MinUniqueWordRatio: crawl.MinUniqueWordRatio,
		MaxMarkupRatio:     crawl.MaxMarkupRatio,
	})
	embedder := embedding.NewClient(embedding.Config{
		URL:     a.cfg.Services.Embedding.URL,
		Model:   a.cfg.Services.Embedding.Model,
		APIKey:  a.cfg.Services.Embedding.APIKey,
		Timeout: a.cfg.Services.Embedding.Timeout,
	})
	limiter := ratelimit.NewDomainLimiter(crawl.DomainMinInterval)

	seedGate := gate.New(
		pageFetcher,
		fetcher.NewContentExtractor(),
		garbage,
		embedder,
		a.newJudge(),
		a.outcomes,
		a.articles,
		limiter,
		gate.Config{
			RelevanceThreshold: crawl.RelevanceThreshold,
			RelevanceMaxChars:  crawl.RelevanceMaxChars,
			JudgeAcceptScore:   crawl.JudgeAcceptScore,
		},
		a.log.WithComponent("gate"),
	)

	engine := threading.NewEngine(a.threads, a.articles, threading.Config{
		BaseThreshold:     a.cfg.Threading.BaseThreshold,
		TimePenaltyPerDay: a.cfg.Threading.TimePenaltyPerDay,
		SizePenalty:       a.cfg.Threading.SizePenalty,
		EMABaseAlpha:      a.cfg.Threading.EMABaseAlpha,
		MergeThreshold:    a.cfg.Threading.MergeThreshold,
		InactiveAfterDays: a.cfg.Threading.InactiveAfterDays,
	}, a.log.WithComponent("threading"))

	return processor.NewRunner(
		a.seeds,
		seedGate,
		a.newTracker(),
		engine,
		a.reports,
		m,
		processor.Config{Concurrency: crawl.Concurrency},
		a.log.WithComponent("processor"),
	)
}

// newJudge returns nil when no judge service is configured, which disables
// the judge stage.
func (a *app) newJudge() gate.Judge {
	client := judge.NewClient(judge.Config{
		URL:     a.cfg.Services.Judge.URL,
		Model:   a.cfg.Services.Judge.Model,
		APIKey:  a.cfg.Services.Judge.APIKey,
		Timeout: a.cfg.Services.Judge.Timeout,
	})
	if client == nil {
		return nil
	}
	return client
}
