package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spyder/config"
	"spyder/internal/app/handlers"
	"spyder/internal/app/requester"
	"spyder/internal/app/spyder"
	"spyder/internal/usecase"

	"go.uber.org/zap"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config-path", "config/config.toml", "path to config file in .toml format")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "can't initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatal("invalid config", zap.Error(err))
		}
		logger.Debug("can't find configs file. using default values", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.AppTimeout)*time.Second) // Общий таймаут
	defer cancel()

	r := requester.NewRequester(time.Duration(cfg.ReqTimeout)*time.Second, logger, nil)
	sp, err := newSpyder(ctx, cfg, r, logger)
	if err != nil {
		logger.Fatal("can't build spyder", zap.Error(err))
	}

	done := make(chan error, 1)
	go func() { done <- sp.Run(ctx) }() //Запускаем краулер в отдельной рутине

	sigIntCh := make(chan os.Signal, 1)     //Создаем канал для приема сигналов SIGINT
	signal.Notify(sigIntCh, syscall.SIGINT) //Подписываемся на сигнал SIGINT

	sigUsr1Ch := make(chan os.Signal, 1)      //Создаем канал для приема сигналов SIGUSR1
	signal.Notify(sigUsr1Ch, syscall.SIGUSR1) //Подписываемся на сигнал SIGUSR1
	for {
		select {
		case err := <-done:
			if code := exitCode(err, logger); code != 0 {
				logger.Sync() //nolint:errcheck
				os.Exit(code)
			}
			return
		case <-sigIntCh:
			cancel() //Если пришёл сигнал SigInt - завершаем контекст
			logger.Info("sigint detected. program shutdown")
		case <-sigUsr1Ch:
			sp.IncMaxDepth(2) //Если пришел сигнал SigUsr1 - увеличиваем MaxDepth на 2
			logger.Info("sigusr1 detected, max depth raised by 2")
		}
	}
}

// newSpyder wires a spyder from cfg: http(s) only, optionally the seed host
// only, and a result logger stopping the crawl after cfg.MaxResults pages.
func newSpyder(ctx context.Context, cfg *config.Config, r usecase.Requester, logger *zap.Logger) (*spyder.Spyder, error) {
	order, err := cfg.QueueOrder()
	if err != nil {
		return nil, err
	}
	follow, err := cfg.FollowCapability()
	if err != nil {
		return nil, err
	}

	sp := spyder.New(r, logger,
		spyder.WithOrder(order),
		spyder.WithFollow(follow),
		spyder.WithMaxDepth(cfg.MaxDepth),
	)

	policy := usecase.AdmissionPolicy(handlers.HTTPOnly)
	if cfg.SameHost {
		policy = handlers.All(policy, handlers.SameHost(cfg.URL))
	}
	sp.SetAdmissionPolicy(handlers.Logged(policy, logger))
	sp.OnFetchStart(handlers.LogFetchStart(logger))
	sp.OnDataFetched(handlers.NewResultLogger(ctx, cfg.MaxResults, sp.Abort, logger).HandleData)
	sp.EnqueueSeed(cfg.URL)
	return sp, nil
}

// exitCode maps the error Run returned to a process exit code.
func exitCode(err error, logger *zap.Logger) int {
	var crawlErr *spyder.Error
	switch {
	case err == nil:
		logger.Info("crawl finished")
		return 0
	case errors.As(err, &crawlErr) && crawlErr.Name == handlers.MaxResults:
		logger.Info("maximum of results is over. program shutdown", zap.Error(err))
		return 0
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		logger.Info("crawl stopped", zap.Error(err))
		return 0
	default:
		logger.Error("crawl failed", zap.Error(err))
		return 1
	}
}
