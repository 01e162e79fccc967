package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"seo_content_generator/config"
	"seo_content_generator/generator"
	"seo_content_generator/server"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("seo_content_generator", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultPath, "path to config.json")
	serve := fs.Bool("serve", false, "start web server")
	addr := fs.String("addr", "", "http listen address when --serve (overrides server.addr)")
	mock := fs.Bool("mock", false, "use the offline mock model")
	verbose := fs.Bool("v", false, "enable debug logs")

	var req generator.Request
	apiKey := fs.String("api-key", "", "API key for one-shot mode (defaults to GROQ_API_KEY)")
	fs.StringVar(&req.Topic, "topic", "", "topic to write about")
	fs.StringVar(&req.Platform, "platform", "", "one of: "+strings.Join(generator.Platforms, ", "))
	fs.StringVar(&req.Tone, "tone", "", "one of: "+strings.Join(generator.Tones, ", "))
	fs.StringVar(&req.Length, "length", "", "one of: "+strings.Join(generator.Lengths, ", "))
	fs.StringVar(&req.Audience, "audience", "", "one of: "+strings.Join(generator.Audiences, ", "))
	fs.BoolVar(&req.IncludeCTA, "cta", false, "include a call to action")
	fs.BoolVar(&req.IncludeHashtags, "hashtags", false, "include hashtags")
	fs.StringVar(&req.Keywords, "keywords", "", "SEO keywords")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if !*serve && *apiKey != "" {
		cfg.LLM.APIKey = strings.TrimSpace(*apiKey)
	}
	if !*serve {
		// One-shot mode always reads the key from the environment or -api-key.
		cfg.KeySource = config.KeySourceEnv
	}
	if *mock && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = "mock"
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	logger := newLogger(stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if !*serve {
		// Input problems are reported before configuration ones.
		check := req
		check.Normalize()
		if err := check.Validate(); err != nil {
			fmt.Fprintln(stderr, generator.UserMessage(err))
			return 1
		}
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		return 1
	}

	agent, err := buildAgent(cfg, *mock, logger)
	if err != nil {
		logger.Error("init generator failed", "err", err)
		return 1
	}

	if *serve {
		if err := serveHTTP(cfg, agent, logger); err != nil {
			logger.Error("http server failed", "err", err)
			return 1
		}
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LLM.Timeout.Duration)
	defer cancel()
	logger.Debug("generating", "topic", req.Topic, "model", cfg.LLM.Model)
	res, err := agent.Generate(ctx, req, "")
	if err != nil {
		fmt.Fprintln(stderr, generator.UserMessage(err))
		if !generator.IsUserError(err) {
			logger.Error("generation failed", "err", err)
		}
		return 1
	}
	fmt.Fprintln(stdout, res.Markdown)
	return 0
}

func buildAgent(cfg config.Config, mock bool, logger *slog.Logger) (*generator.Agent, error) {
	var factory generator.ClientFactory = generator.MockFactory
	model := "mock"
	if !mock {
		switch cfg.LLM.Provider {
		case "groq", "openai", "":
		default:
			return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
		}
		factory = generator.NewOpenAIFactory(generator.LLMSettings{
			Provider:    cfg.LLM.Provider,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout.Duration,
		})
		model = cfg.LLM.Model
	}
	return generator.NewAgent(factory, generator.AgentOptions{
		Source: generator.KeySource(cfg.KeySource),
		EnvKey: cfg.LLM.APIKey,
		Model:  model,
		Logger: logger,
	})
}

func serveHTTP(cfg config.Config, agent *generator.Agent, logger *slog.Logger) error {
	srv, err := server.New(agent, server.Options{
		ShowErrorDetail: cfg.ShowErrorDetail,
		GenerateTimeout: cfg.LLM.Timeout.Duration,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting web server", "addr", cfg.Server.Addr, "key_source", cfg.KeySource, "model", cfg.LLM.Model)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-stop:
		logger.Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("service stopped")
	return nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
