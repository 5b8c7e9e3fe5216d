package comments_api

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"
	"thirdcoast.systems/ytcomments/cmd/web/handlers/common"
	"thirdcoast.systems/ytcomments/cmd/web/internal/metrics"
	"thirdcoast.systems/ytcomments/internal/application"
	"thirdcoast.systems/ytcomments/internal/export"
)

const (
	encodingText   = "utf-8"
	encodingBase64 = "base64"
)

type streamProgress struct {
	Processed int `json:"processed"`
	Filtered  int `json:"filtered"`
}

type streamComplete struct {
	Count    int    `json:"count"`
	Data     string `json:"data"`
	Encoding string `json:"encoding"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
}

// commentSignals is patched under the "comments" signal namespace.
type commentSignals struct {
	Status   string          `json:"status,omitempty"`
	Error    string          `json:"error,omitempty"`
	Progress *streamProgress `json:"progress,omitempty"`
	Complete *streamComplete `json:"complete,omitempty"`
}

func patchComments(sse *datastar.ServerSentEventGenerator, s commentSignals) error {
	b, err := json.Marshal(map[string]commentSignals{"comments": s})
	if err != nil {
		return err
	}
	return sse.PatchSignals(b)
}

// encodePayload returns body as text when f is textual and body is valid
// UTF-8; otherwise as base64.
func encodePayload(f export.Format, body []byte) (string, string) {
	if !f.IsBinary() && utf8.Valid(body) {
		return string(body), encodingText
	}
	return base64.StdEncoding.EncodeToString(body), encodingBase64
}

// HandleStream serves GET /api/comments/stream. It reports status and
// progress as datastar signal patches and finishes with the encoded file.
func HandleStream(dl Downloader) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := common.RequireCommentsParams(c)
		if err != nil {
			return err
		}

		common.SetSSEHeaders(c)
		sse := datastar.NewSSE(c.Response().Writer, c.Request())
		ctx := c.Request().Context()

		metrics.CommentStreamConnections.Inc()
		defer metrics.CommentStreamConnections.Dec()

		if err := patchComments(sse, commentSignals{Status: "Starting download..."}); err != nil {
			return nil
		}

		d, err := dl.Download(ctx, application.DownloadRequest{
			Input:     p.URL,
			MinLikes:  p.MinLikes,
			WantTitle: true,
			OnProgress: func(processed, kept int) {
				_ = patchComments(sse, commentSignals{Progress: &streamProgress{Processed: processed, Filtered: kept}})
			},
		})
		d, err = result(p, d, err)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("SSE connection closed by client", "video_id", p.VideoID)
				return nil
			}
			metrics.CommentDownloadsTotal.WithLabelValues("stream", string(p.Format), "error").Inc()
			slog.Error("comment download failed", "video_id", p.VideoID, "error", err)
			_ = patchComments(sse, commentSignals{Error: err.Error()})
			return nil
		}

		body, err := export.EncodeBytes(p.Format, d.Entries, export.Options{Title: d.Title})
		if err != nil {
			metrics.CommentDownloadsTotal.WithLabelValues("stream", string(p.Format), "error").Inc()
			_ = patchComments(sse, commentSignals{Error: "failed to encode comments"})
			return nil
		}

		data, encoding := encodePayload(p.Format, body)
		metrics.CommentDownloadsTotal.WithLabelValues("stream", string(p.Format), "ok").Inc()
		metrics.CommentsServed.Add(float64(len(d.Entries)))

		if err := patchComments(sse, commentSignals{Complete: &streamComplete{
			Count:    len(d.Entries),
			Data:     data,
			Encoding: encoding,
			Filename: export.DownloadName(d.Title, d.VideoID, p.Format),
			MimeType: p.Format.MIMEType(),
		}}); err != nil {
			slog.Warn("failed to send SSE completion", "video_id", p.VideoID, "error", err)
		}
		return nil
	}
}
