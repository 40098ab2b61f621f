package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"btc-signal-bot/internal/config"
	"btc-signal-bot/internal/credential"
	"btc-signal-bot/internal/engine"
	"btc-signal-bot/internal/indicators"
	"btc-signal-bot/internal/llm"
	"btc-signal-bot/internal/logger"
	"btc-signal-bot/internal/market"
	"btc-signal-bot/internal/news"
	"btc-signal-bot/internal/notify"
	"btc-signal-bot/internal/trace"
	"btc-signal-bot/internal/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	interval := flag.Duration("interval", 0, "report interval; 0 runs once and exits")
	flag.Parse()

	if err := initializeSystem(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer func() {
		if err := trace.Shutdown(context.Background()); err != nil {
			logger.Warn(context.Background(), "Tracer shutdown failed", "error", err)
		}
	}()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		log.Fatal(err)
	}

	deps := &dependencies{
		cfg:       cfg,
		market:    market.NewClient(),
		news:      news.NewService(cfg),
		engine:    engine.New(cfg),
		advisor:   buildAdvisor(ctx, cfg),
		publisher: buildPublisher(ctx, cfg),
	}

	logger.Info(ctx, "Bot started", "symbol", cfg.Symbol, "interval", interval.String())

	if err := runOnce(ctx, deps); err != nil {
		logger.ErrorWithErr(ctx, "Report run failed", err)
	}
	if *interval <= 0 {
		return
	}

	tick := time.NewTicker(*interval)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			if err := runOnce(ctx, deps); err != nil {
				logger.ErrorWithErr(ctx, "Report run failed", err)
			}
		case <-ctx.Done():
			logger.Info(context.Background(), "Shutting down")
			return
		}
	}
}

type dependencies struct {
	cfg       *config.Config
	market    *market.Client
	news      *news.Service
	engine    *engine.Engine
	advisor   llm.Advisor
	publisher notify.Publisher
}

// runOnce executes one full report cycle: gather data, compute indicators,
// score, ask the advisor, publish. Individual data sources may fail
// without aborting the run; only a total lack of candle data does.
func runOnce(ctx context.Context, deps *dependencies) error {
	ctx, span := trace.StartSpan(ctx, "report-run")
	defer span.End()

	cfg := deps.cfg
	logger.Info(ctx, "Starting report run", "symbol", cfg.Symbol)

	price, err := deps.market.Price(ctx)
	if err != nil {
		logger.Warn(ctx, "Price fetch failed", "error", err.Error())
	}
	sentiment, err := deps.market.FearGreed(ctx)
	if err != nil {
		logger.Warn(ctx, "Fear & greed fetch failed", "error", err.Error())
	}
	book := deps.market.Depth(ctx, cfg.Symbol, 20)
	newsItems := deps.news.Fetch(ctx)

	candles := deps.market.MultiTimeframeKlines(ctx, cfg.Symbol, cfg.Timeframes, cfg.KlineLimit)
	store := indicators.Snapshot(cfg, candles)
	if store.Len() == 0 {
		return errors.New("no candle data available for any timeframe")
	}

	score, breakdown := deps.engine.Score(store, sentiment, book, newsItems)
	decision := deps.engine.Interpret(score)
	logger.Decision(ctx, "rule-engine", string(decision), score, "entries", len(breakdown))

	report := &types.Report{
		GeneratedAt: time.Now(),
		Price:       price,
		Sentiment:   sentiment,
		OrderBook:   book,
		News:        newsItems,
		Readings:    store.Readings(),
		Score:       score,
		Breakdown:   breakdown,
		Decision:    decision,
	}

	advice, err := deps.advisor.Advise(ctx, llm.BuildPrompt(report))
	if err != nil {
		// Advice is best effort. The rule engine decision still ships.
		if errors.Is(err, credential.ErrNoCredentials) {
			logger.Info(ctx, "No valid credentials, publishing rule engine decision only")
		}
		advice.Success = false
		if advice.Reason == "" {
			advice.Reason = err.Error()
		}
	}
	report.Advisor = &advice

	if err := deps.publisher.Publish(ctx, report); err != nil {
		logger.Publish(ctx, "feishu", false, "error", err.Error())
		return err
	}

	logger.Info(ctx, "Report run completed",
		"decision", string(decision), "score", score, "advisor", advice.ModelUsed)
	return nil
}
