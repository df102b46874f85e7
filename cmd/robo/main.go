package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"RoboInvestor/internal/account"
	"RoboInvestor/internal/collector"
	"RoboInvestor/internal/config"
	"RoboInvestor/internal/engine"
	"RoboInvestor/internal/freshness"
	"RoboInvestor/internal/logger"
	"RoboInvestor/internal/metrics"
	"RoboInvestor/internal/model"
	"RoboInvestor/internal/notifier"
	"RoboInvestor/internal/params"
	"RoboInvestor/internal/recorder"
	"RoboInvestor/internal/registry"
	"RoboInvestor/internal/scheduler"
	"RoboInvestor/internal/storage"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// instrumentFlags collects repeated -add TICKER:THRESHOLD values.
type instrumentFlags []model.Instrument

func (f *instrumentFlags) String() string {
	parts := make([]string, len(*f))
	for i, in := range *f {
		parts[i] = in.Ticker
	}
	return strings.Join(parts, ",")
}

func (f *instrumentFlags) Set(v string) error {
	in, err := registry.ParseInstrument(v)
	if err != nil {
		return err
	}
	*f = append(*f, in)
	return nil
}

func main() {
	var (
		accountBalance = flag.Float64("account-balance", 0, "override and persist the account balance")
		targetBalance  = flag.String("target-balance", "", "override and persist "+params.KeyTargetAccountBalance)
		thresholdMins  = flag.String("threshold-minutes", "", "override and persist "+params.KeyThresholdDataAgeMinutes)
		aggression     = flag.String("investment-aggression", "", "override and persist "+params.KeyInvestmentAggression)
		fallThreshold  = flag.String("percentage-fall-threshold", "", "override and persist "+params.KeyPercentageFallThreshold)
		daemon         = flag.Bool("daemon", false, "run scheduled checks instead of a single check")
		add            instrumentFlags
	)
	flag.Var(&add, "add", "add or update an instrument, TICKER:THRESHOLD (repeatable)")
	flag.Parse()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	logCloser, err := logger.Setup(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		log.Fatal().Err(err).Msg("init logger")
	}
	defer logCloser.Close()
	log.Info().Str("config", cfgPath).Msg("RoboInvestor starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shared SQLite: parameters, registry, decision history
	db, err := storage.OpenSQLite(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("open sqlite")
	}
	defer db.Close()

	// Parameters
	ps, err := openParamStore(cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("init parameter store")
	}
	// CLI overrides are persisted before loading so a fresh store can be seeded.
	for key, value := range map[string]string{
		params.KeyTargetAccountBalance:    *targetBalance,
		params.KeyThresholdDataAgeMinutes: *thresholdMins,
		params.KeyInvestmentAggression:    *aggression,
		params.KeyPercentageFallThreshold: *fallThreshold,
	} {
		if value == "" {
			continue
		}
		if err := params.Set(ctx, ps, cfg.Params.Prefix, nil, key, value); err != nil {
			log.Fatal().Err(err).Str("name", key).Msg("override parameter")
		}
	}

	prm, err := params.LoadWithOverrides(ctx, ps, cfg.Params.Prefix, map[string]string{
		params.KeyAPIKey: cfg.DataSource.APIKey,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("load parameters")
	}

	// Instruments
	reg, err := openRegistry(cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("init registry")
	}
	if err := reg.Put(ctx, append(cfg.Instruments, add...)...); err != nil {
		log.Fatal().Err(err).Msg("save instruments")
	}

	// Account
	am, err := account.NewManager(cfg.Account.StateFile, cfg.Account.DefaultBalance)
	if err != nil {
		log.Fatal().Err(err).Msg("init account manager")
	}
	if *accountBalance != 0 {
		if err := am.SetBalance(*accountBalance); err != nil {
			log.Fatal().Err(err).Msg("override account balance")
		}
	}

	// Metrics
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mr := metrics.New(promReg)
	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		defer srv.Close()
	}

	// Market data
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "yahoo":
		fetcher = collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.DataSource.Timeout, cfg.Proxy)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 95, Previous: 100}
	default:
		fetcher = collector.NewAlphaVantageFetcher(cfg.DataSource.BaseURL, prm.APIKey, cfg.DataSource.RequestsPerMinute, cfg.DataSource.Timeout, cfg.Proxy)
	}
	log.Info().Str("source", fetcher.Name()).Msg("data source")

	store, closeStore, err := openCacheStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init cache store")
	}
	defer closeStore()
	cache := freshness.NewCache(store, freshness.WithMetrics(mr))
	eng := engine.New(cache, fetcher.Fetch, cfg.Engine.Workers, mr)

	// Decision history
	var rec recorder.Recorder
	if sr, err := recorder.NewSQLiteRecorder(db); err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		rec = recorder.NewNoopRecorder()
	} else {
		rec = sr
	}
	defer rec.Close()

	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier("", cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	}
	sched := scheduler.NewScheduler(ctx, eng, am, reg, prm, rec, sender)

	if !*daemon {
		report, err := sched.RunCheck(ctx)
		if err != nil {
			log.Error().Err(err).Msg("check stock prices")
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		fmt.Print(report)
		return
	}

	if err := sched.Register(cfg.Schedule.CheckCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if v, _ := strconv.ParseBool(os.Getenv("RUN_ON_START")); v {
		log.Info().Msg("RUN_ON_START enabled, executing check now")
		go func() {
			if report, err := sched.RunCheck(ctx); err != nil {
				log.Error().Err(err).Msg("startup check")
			} else {
				fmt.Print(report)
			}
		}()
	}

	log.Info().Str("cron", cfg.Schedule.CheckCron).Msg("RoboInvestor is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
}

func openCacheStore(ctx context.Context, cfg *config.Config) (freshness.Store, func(), error) {
	switch cfg.Cache.Backend {
	case "memory":
		return freshness.NewMemoryStore(), func() {}, nil
	case "redis":
		rs, err := freshness.NewRedisStore(ctx, cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { rs.Close() }, nil
	default:
		return freshness.NewFileStore(cfg.Cache.Dir), func() {}, nil
	}
}

func awsSession(cfg *config.Config) (*session.Session, error) {
	opts := session.Options{SharedConfigState: session.SharedConfigEnable, Profile: cfg.AWS.Profile}
	if cfg.AWS.Region != "" {
		opts.Config.Region = aws.String(cfg.AWS.Region)
	}
	sess, err := session.NewSessionWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return sess, nil
}

func openParamStore(cfg *config.Config, db *sql.DB) (params.Store, error) {
	if cfg.Params.Backend == "ssm" {
		sess, err := awsSession(cfg)
		if err != nil {
			return nil, err
		}
		return params.NewSSMStore(ssm.New(sess)), nil
	}
	var sealer *params.Sealer
	if cfg.Params.Passphrase != "" {
		var err error
		if sealer, err = params.NewSealer(cfg.Params.Passphrase); err != nil {
			return nil, err
		}
	}
	return params.NewSQLiteStore(db, sealer)
}

func openRegistry(cfg *config.Config, db *sql.DB) (registry.Store, error) {
	if cfg.Registry.Backend == "dynamodb" {
		sess, err := awsSession(cfg)
		if err != nil {
			return nil, err
		}
		return registry.NewDynamoRegistry(dynamodb.New(sess), cfg.Registry.Table), nil
	}
	return registry.New(db)
}
