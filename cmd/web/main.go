package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"thirdcoast.systems/ytcomments/cmd/web/internal/web"
	"thirdcoast.systems/ytcomments/internal/application"
	"thirdcoast.systems/ytcomments/internal/config"
	"thirdcoast.systems/ytcomments/pkg/ytdlp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting web service")

	conf, err := config.LoadConfig(ctx, nil)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: conf.SlogLevel()})))

	provider, err := application.NewProvider(*conf)
	if err != nil {
		slog.Error("failed to create comments provider", "error", err)
		os.Exit(1)
	}
	if yt, ok := provider.(*ytdlp.Client); ok {
		version, err := yt.Version(ctx)
		if err != nil {
			slog.Error("yt-dlp is not usable", "path", yt.PathOrDefault(), "error", err)
			os.Exit(1)
		}
		slog.Info("Using yt-dlp", "path", yt.PathOrDefault(), "version", version)
	}

	svc := &application.Service{Provider: provider, Language: conf.Language()}

	if conf.ArchiveDSN != "" {
		archive, err := application.OpenArchive(ctx, *conf)
		if err != nil {
			slog.Error("failed to connect to archive database", "error", err)
			os.Exit(1)
		}
		defer archive.Close()
		svc.Archive = archive
	}

	e, err := web.NewWebserver(ctx, svc)
	if err != nil {
		slog.Error("failed to create webserver", "error", err)
		os.Exit(1)
	}

	addr := ":" + strconv.Itoa(conf.WebServerPort)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening", "addr", addr, "provider", conf.Provider)
	if err := e.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) || ctx.Err() != nil {
			return
		}
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
