package soupnight

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

func (a *App) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"ok":     true,
		"uptime": time.Since(a.started).Seconds(),
	})
}

func (a *App) handleListPhotos(c echo.Context) error {
	year, ok := a.Config.ValidYear(c.Param("year"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid year supplied.")
	}
	photos, err := a.Gallery.List(year)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Unable to load gallery.").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string][]Photo{"photos": photos})
}

// handleUploadPhotos accepts a multipart batch of images for one year.
// All gates (year, count, per-file size and type, bot check) run before
// anything touches disk, so a rejected request leaves no orphan files.
func (a *App) handleUploadPhotos(c echo.Context) error {
	if !a.submitLimiter.Allow(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many uploads. Try again later.")
	}

	year, ok := a.Config.ValidYear(c.FormValue("year"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Year is required.")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Please include at least one image file.")
	}
	files := form.File["photos"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Please include at least one image file.")
	}
	if len(files) > a.Config.MaxUploadFiles {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("At most %d photos per upload.", a.Config.MaxUploadFiles))
	}
	for _, fh := range files {
		if fh.Size > a.Config.MaxUploadSize {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("%s exceeds the %d MB per-file limit.", fh.Filename, a.Config.MaxUploadSize>>20))
		}
		if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("Only image uploads are allowed (%s).", fh.Filename))
		}
	}

	human, err := a.Verifier.Verify(c.Request().Context(), c.FormValue("token"), c.RealIP())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Unable to upload photos right now.").SetInternal(err)
	}
	if !human {
		return echo.NewHTTPError(http.StatusUnauthorized, "Human verification failed.")
	}

	saved := make([]Photo, 0, len(files))
	for _, fh := range files {
		data, err := readUpload(fh)
		if err == nil {
			var photo Photo
			photo, err = a.Gallery.Save(year, fh.Filename, data)
			if err == nil {
				saved = append(saved, photo)
				continue
			}
		}
		// A half-written batch is worse than a failed one: drop what
		// this request already placed on disk before reporting.
		a.cleanupBatch(c, year, saved)
		return echo.NewHTTPError(http.StatusInternalServerError, "Unable to upload photos right now.").SetInternal(err)
	}

	return c.JSON(http.StatusCreated, map[string][]Photo{"photos": saved})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}

func (a *App) cleanupBatch(c echo.Context, year string, saved []Photo) {
	for _, p := range saved {
		if err := a.Gallery.Remove(year, p.FileName); err != nil {
			c.Logger().Errorf("cleanup of %s failed: %v", p.FileName, err)
		}
	}
}

func (a *App) handleListRSVPs(c echo.Context) error {
	entries, err := a.Ledger.List()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Unable to load RSVP list.").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string][]RSVP{"attendees": entries})
}

type rsvpRequest struct {
	Name   string `json:"name" validate:"required"`
	Guests int    `json:"guests" validate:"gte=1"`
}

func (a *App) handleCreateRSVP(c echo.Context) error {
	if !a.submitLimiter.Allow(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many submissions. Try again later.")
	}

	var req rsvpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Name and number attending are required.")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Name and number attending are required.")
	}
	entry, err := NewEntry(req.Name, req.Guests)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Name and number attending are required.")
	}

	roster, err := a.Ledger.Append(entry)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Unable to save RSVP right now.").SetInternal(err)
	}

	// The entry is durable once written; a failed notification is an
	// operator problem, not the submitter's.
	if err := a.Notifier.Notify(c.Request().Context(), roster, entry); err != nil {
		c.Logger().Errorf("rsvp notification failed: %v", err)
	}

	return c.JSON(http.StatusCreated, map[string]bool{"ok": true})
}

// httpErrorHandler renders every error as a small JSON document, keeps
// 5xx messages generic toward the caller, and logs the detail.
func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "Something went wrong."
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		}
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
	}
	if err := c.JSON(code, map[string]string{"error": msg}); err != nil {
		c.Logger().Errorf("write error response: %v", err)
	}
}
