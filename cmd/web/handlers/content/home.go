package content

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/ytcomments/cmd/web/templates"
	"thirdcoast.systems/ytcomments/internal/comments"
	"thirdcoast.systems/ytcomments/internal/export"
)

// HandleHomePage serves the downloader UI. The page drives streamPath over
// EventSource and saves the finished file client-side.
func HandleHomePage(streamPath string) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
		c.Response().WriteHeader(http.StatusOK)
		return templates.Index(streamPath, comments.DefaultMinLikes, export.FormatCSV).Render(c.Request().Context(), c.Response())
	}
}
