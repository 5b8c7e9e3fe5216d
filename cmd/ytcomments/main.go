package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"thirdcoast.systems/ytcomments/internal/application"
	"thirdcoast.systems/ytcomments/internal/comments"
	"thirdcoast.systems/ytcomments/internal/config"
	"thirdcoast.systems/ytcomments/internal/export"
	"thirdcoast.systems/ytcomments/internal/videoid"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[0], os.Args[1:], os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

// archiveAttempts caps archive connection attempts so an unreachable
// database cannot hold up the command for long.
const archiveAttempts = 2

// providerOverride replaces the configured provider; tests use it.
type providerOverride func(config.Config) (comments.Provider, error)

func run(ctx context.Context, prog string, args []string, stdout, stderr io.Writer, newProvider providerOverride) int {
	viper.Reset()

	fs := pflag.NewFlagSet(filepath.Base(prog), pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(stdout, "Usage: %s <youtube_url_or_video_id>\n\nFlags:\n%s", filepath.Base(prog), fs.FlagUsages())
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}

	conf, err := config.LoadConfig(ctx, fs)
	if err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: conf.SlogLevel()})))

	if newProvider == nil {
		newProvider = application.NewProvider
	}
	provider, err := newProvider(*conf)
	if err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	}

	format, _ := export.ParseFormat(conf.Format)
	svc := &application.Service{Provider: provider}

	minLikes := conf.MinLikes
	d, err := svc.Download(ctx, application.DownloadRequest{
		Input:     fs.Arg(0),
		MinLikes:  minLikes,
		WantTitle: format == export.FormatHTML,
		OnVideoID: func(id string) {
			fmt.Fprintf(stdout, "Downloading comments for video ID: %s\n", id)
		},
		OnProgress: func(processed, kept int) {
			fmt.Fprintf(stdout, "Processed %d comments, found %d with %d+ likes...\n", processed, kept, minLikes)
		},
	})
	switch {
	case errors.Is(err, videoid.ErrInvalidIdentifier):
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	case errors.Is(err, comments.ErrFetchFailure):
		fmt.Fprintf(stdout, "Error downloading comments: %v\n", err)
		fmt.Fprintln(stdout, "No comments found or failed to download comments.")
		return 1
	case err != nil:
		fmt.Fprintln(stdout, "No comments found or failed to download comments.")
		slog.Debug("download ended without comments", "error", err)
		return 1
	}

	fmt.Fprintf(stdout, "Downloaded %d comments and replies with %d+ likes\n", len(d.Entries), minLikes)

	opts := export.NewOptions()
	opts.BOM = conf.CSVBOM
	opts.Title = d.Title
	path, err := export.WriteFile(conf.OutputDir, d.VideoID, format, d.Entries, opts)
	if err != nil {
		fmt.Fprintf(stdout, "Error saving file: %v\n", err)
		fmt.Fprintln(stdout, "Failed to save comments to file.")
		return 1
	}

	if st, err := os.Stat(path); err == nil {
		slog.Debug("output written", "path", path, "size", humanize.Bytes(uint64(st.Size())), "rows", humanize.Comma(int64(len(d.Entries))))
	}
	fmt.Fprintf(stdout, "Comments saved to: %s\n", path)

	if conf.ArchiveDSN != "" {
		archiveResult(ctx, *conf, d, minLikes)
	}
	return 0
}

// archiveResult stores d in the archive database. Failures are logged only.
func archiveResult(ctx context.Context, conf config.Config, d *application.Download, minLikes int) {
	conf.DatabaseRetries = min(max(conf.DatabaseRetries, 1), archiveAttempts)
	archive, err := application.OpenArchive(ctx, conf)
	if err != nil {
		slog.Warn("comment archive unavailable, skipping", "error", err)
		return
	}
	defer archive.Close()

	if _, err := application.ArchiveResult(ctx, archive, d.VideoID, d.Title, conf.Language(), minLikes, d.Entries); err != nil {
		slog.Warn("failed to archive comments", "video_id", d.VideoID, "error", err)
	}
}
