package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	apiimpl "github.com/listendoctor/go-integration-demo/external/api"
	captureimpl "github.com/listendoctor/go-integration-demo/external/capture"
	configloader "github.com/listendoctor/go-integration-demo/external/config"
	storeimpl "github.com/listendoctor/go-integration-demo/external/store"
	streamimpl "github.com/listendoctor/go-integration-demo/external/stream"
	"github.com/listendoctor/go-integration-demo/internal/api"
	"github.com/listendoctor/go-integration-demo/internal/config"
	"github.com/listendoctor/go-integration-demo/internal/session"
	"github.com/listendoctor/go-integration-demo/internal/store"
	"github.com/listendoctor/go-integration-demo/internal/stream"
	"github.com/samber/do/v2"
)

const (
	authTimeout    = 30 * time.Second
	connectTimeout = 20 * time.Second
	resultTimeout  = 120 * time.Second
)

func main() {
	_ = godotenv.Load()

	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: running streaming demo")
	runDemo(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	apiimpl.RegisterDI(injector)
	storeimpl.RegisterDI(injector)
	captureimpl.RegisterDI(injector)
	streamimpl.RegisterDI(injector)
	session.RegisterDI(injector)

	return injector
}

func runDemo(cfg *config.Config, injector do.Injector) {
	client, err := do.Invoke[api.Client](injector)
	if err != nil {
		slog.Error("failed to resolve api client", "error", err)
		os.Exit(1)
	}
	st, err := do.Invoke[store.Store](injector)
	if err != nil {
		slog.Error("failed to resolve store", "error", err)
		os.Exit(1)
	}
	manager, err := do.Invoke[*session.Manager](injector)
	if err != nil {
		slog.Error("failed to resolve session manager", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	slog.Info("startup: authenticating")
	if err := client.Authenticate(ctx, cfg.ClientID, cfg.ClientSecret, cfg.DoctorID); err != nil {
		slog.Error("authentication failed", "error", err)
		os.Exit(1)
	}
	slog.Info("startup: authenticated")

	refreshReferenceData(ctx, client, st)

	sessionCfg := buildSessionConfig(ctx, cfg, st)

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), connectTimeout)
	defer cancelConnect()
	slog.Info("startup: connecting streaming session", "socket_url", cfg.SocketURL)
	if err := manager.Connect(connectCtx, client.Token()); err != nil {
		slog.Error("streaming session connect failed", "error", err)
		os.Exit(1)
	}
	defer manager.Abort()

	if err := manager.StartRecording(sessionCfg); err != nil {
		slog.Error("failed to start recording", "error", err)
		os.Exit(1)
	}
	slog.Info("recording", "duration", cfg.DemoRecordDuration)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-time.After(cfg.DemoRecordDuration):
	case <-sigCh:
		slog.Info("interrupted, stopping recording early")
	}

	resultCtx, cancelResult := context.WithTimeout(context.Background(), resultTimeout)
	defer cancelResult()
	result, err := manager.StopRecording(resultCtx)
	if err != nil {
		slog.Error("failed to stop recording", "error", err)
		os.Exit(1)
	}

	slog.Info("processing complete",
		"chunks_sent", manager.Snapshot().ChunksSent,
		"transcription", result.Transcription,
		"summary", result.Summary,
	)
}

// refreshReferenceData pulls templates and specialities for the configured
// language and caches them. Failures are logged and skipped; a previous run's
// cache still serves session configuration.
func refreshReferenceData(ctx context.Context, client api.Client, st store.Store) {
	templates, err := client.PublicTemplates(ctx)
	if err != nil {
		slog.Warn("failed to fetch public templates", "error", err)
	} else {
		for language, ts := range templates {
			if err := st.SaveTemplates(ctx, language, ts); err != nil {
				slog.Warn("failed to cache templates", "error", err, "language", language)
			}
		}
	}

	specialities, err := client.Specialities(ctx)
	if err != nil {
		slog.Warn("failed to fetch specialities", "error", err)
		return
	}
	for language, specs := range specialities {
		if err := st.SaveSpecialities(ctx, language, specs); err != nil {
			slog.Warn("failed to cache specialities", "error", err, "language", language)
		}
	}
}

// buildSessionConfig assembles the start_recording configuration from stored
// preferences, falling back to the configured defaults when no preference is
// saved.
func buildSessionConfig(ctx context.Context, cfg *config.Config, st store.Store) stream.SessionConfig {
	sessionCfg := stream.SessionConfig{
		Username:      cfg.Username,
		FileExtension: "wav",
		Language:      cfg.DefaultLanguage,
		Category:      "consultation",
		StartedAt:     time.Now(),
	}

	prefs, err := st.GetPreferences(ctx)
	if err != nil {
		slog.Warn("failed to load preferences", "error", err)
		return sessionCfg
	}
	if prefs == nil {
		return sessionCfg
	}

	if prefs.SelectedLanguage != "" {
		sessionCfg.Language = prefs.SelectedLanguage
	}
	if prefs.SelectedSpecialityCode != 0 {
		speciality, err := st.GetSpeciality(ctx, prefs.SelectedSpecialityCode)
		if err != nil {
			slog.Warn("failed to load speciality", "error", err, "code", prefs.SelectedSpecialityCode)
		} else if speciality != nil {
			sessionCfg.Speciality = speciality.Name(sessionCfg.Language)
			sessionCfg.Prompt = speciality.Prompt
		}
	}
	if prefs.SelectedTemplateGUID != "" {
		templates, err := st.ListTemplates(ctx, sessionCfg.Language)
		if err != nil {
			slog.Warn("failed to load templates", "error", err)
			return sessionCfg
		}
		for _, t := range templates {
			if t.GUID == prefs.SelectedTemplateGUID {
				sessionCfg.Prompt = t.Template
				break
			}
		}
	}

	return sessionCfg
}
