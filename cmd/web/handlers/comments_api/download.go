package comments_api

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/ytcomments/cmd/web/handlers/common"
	"thirdcoast.systems/ytcomments/cmd/web/internal/metrics"
	"thirdcoast.systems/ytcomments/internal/application"
	"thirdcoast.systems/ytcomments/internal/comments"
	"thirdcoast.systems/ytcomments/internal/export"
)

// Downloader runs the comment pipeline. *application.Service implements it.
type Downloader interface {
	Download(ctx context.Context, req application.DownloadRequest) (*application.Download, error)
}

// result normalizes a pipeline outcome. A video without qualifying
// comments still produces a file, with only the header.
func result(p common.CommentsParams, d *application.Download, err error) (*application.Download, error) {
	if errors.Is(err, comments.ErrEmptyResult) {
		return &application.Download{VideoID: p.VideoID}, nil
	}
	return d, err
}

// HandleDownload serves GET /api/comments as a file attachment.
func HandleDownload(dl Downloader) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := common.RequireCommentsParams(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()

		d, err := dl.Download(ctx, application.DownloadRequest{
			Input:     p.URL,
			MinLikes:  p.MinLikes,
			WantTitle: true,
		})
		d, err = result(p, d, err)
		if err != nil {
			metrics.CommentDownloadsTotal.WithLabelValues("download", string(p.Format), "error").Inc()
			slog.Error("comment download failed", "video_id", p.VideoID, "error", err)
			return common.ErrInternal(err.Error())
		}

		body, err := export.EncodeBytes(p.Format, d.Entries, export.Options{Title: d.Title})
		if err != nil {
			metrics.CommentDownloadsTotal.WithLabelValues("download", string(p.Format), "error").Inc()
			slog.Error("failed to encode comments", "video_id", p.VideoID, "format", p.Format, "error", err)
			return common.ErrInternal("failed to encode comments")
		}

		metrics.CommentDownloadsTotal.WithLabelValues("download", string(p.Format), "ok").Inc()
		metrics.CommentsServed.Add(float64(len(d.Entries)))

		filename := export.DownloadName(d.Title, d.VideoID, p.Format)
		c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
		return c.Blob(http.StatusOK, p.Format.MIMEType(), body)
	}
}
