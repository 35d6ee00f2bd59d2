// Command dob-server runs the construction-project workflow service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Kevin180791/dob-mvp-enhanced/agent"
	"github.com/Kevin180791/dob-mvp-enhanced/agent/model"
	"github.com/Kevin180791/dob-mvp-enhanced/agent/model/anthropic"
	"github.com/Kevin180791/dob-mvp-enhanced/agent/model/google"
	"github.com/Kevin180791/dob-mvp-enhanced/agent/model/openai"
	"github.com/Kevin180791/dob-mvp-enhanced/server"
	"github.com/Kevin180791/dob-mvp-enhanced/workflow"
	"github.com/Kevin180791/dob-mvp-enhanced/workflow/emit"
	"github.com/Kevin180791/dob-mvp-enhanced/workflow/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "dob-server:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.LogJSON)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	// Metrics registry, engine counters plus process/go collectors.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := workflow.NewMetrics(registry)

	// Event bus: structured log sink plus tracing spans for every
	// workflow transition.
	bus := emit.NewBus(os.Stderr)
	bus.Subscribe(emit.Wildcard, emit.NewLogEmitter(os.Stdout, cfg.LogJSON))

	tp := sdktrace.NewTracerProvider()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()
	bus.Subscribe(emit.Wildcard, emit.NewOTelEmitter(tp.Tracer("dob-server/workflow")))

	st, err := newStore(cfg.Store)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	templates := workflow.NewTemplateStore()
	if cfg.TemplateFile != "" {
		if err := templates.LoadTemplateFile(cfg.TemplateFile); err != nil {
			return err
		}
		log.Info("templates loaded", zap.String("file", cfg.TemplateFile))
	}

	opts := []workflow.Option{workflow.WithMetrics(metrics)}
	if st != nil {
		opts = append(opts, workflow.WithStore(st))
	}
	engine := workflow.New(templates, bus, opts...)

	chatModel, closeModel, err := newChatModel(cfg.Model)
	if err != nil {
		return err
	}
	if closeModel != nil {
		defer closeModel()
	}
	for taskType, handler := range agent.Handlers(chatModel) {
		engine.RegisterHandler(taskType, handler)
	}

	srv := server.New(engine, log, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("provider", cfg.Model.Provider))
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	}
}

func newLogger(jsonMode bool) (*zap.Logger, error) {
	if jsonMode {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newStore(cfg server.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "memory":
		return store.NewMemStore(), nil
	case "sqlite":
		return store.NewSQLiteStore(cfg.DSN)
	case "mysql":
		return store.NewMySQLStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func newChatModel(cfg server.ModelConfig) (model.ChatModel, func() error, error) {
	switch cfg.Provider {
	case "", "mock":
		return &model.MockChatModel{}, nil, nil
	case "anthropic":
		m, err := anthropic.NewChatModel(cfg.APIKey, cfg.Name)
		return m, nil, err
	case "openai":
		m, err := openai.NewChatModel(cfg.APIKey, cfg.Name)
		return m, nil, err
	case "google":
		m, err := google.NewChatModel(context.Background(), cfg.APIKey, cfg.Name)
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
