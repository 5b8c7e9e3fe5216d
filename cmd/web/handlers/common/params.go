package common

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/ytcomments/internal/comments"
	"thirdcoast.systems/ytcomments/internal/export"
	"thirdcoast.systems/ytcomments/internal/videoid"
)

// CommentsParams are the query parameters shared by the comments endpoints.
type CommentsParams struct {
	URL      string
	VideoID  string
	MinLikes int
	Format   export.Format
}

// RequireCommentsParams reads ?url=&minLikes=&format= or returns a 400 error.
// An unknown or missing format falls back to CSV.
func RequireCommentsParams(c echo.Context) (CommentsParams, error) {
	var p CommentsParams

	p.URL = strings.TrimSpace(c.QueryParam("url"))
	if p.URL == "" {
		return p, ErrBadRequest("Missing url parameter")
	}
	id, err := videoid.ExtractVideoID(p.URL)
	if err != nil {
		return p, ErrBadRequest("Invalid YouTube URL")
	}
	p.VideoID = id

	p.MinLikes = comments.DefaultMinLikes
	if raw := strings.TrimSpace(c.QueryParam("minLikes")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return p, ErrBadRequest("minLikes must be a non-negative integer")
		}
		p.MinLikes = n
	}

	p.Format, _ = export.ParseFormat(c.QueryParam("format"))
	return p, nil
}
