// Package soupnight is the backend for a small event website: a
// year-partitioned photo gallery with multipart uploads, an RSVP
// ledger persisted as a flat JSON file with an email notification
// side-effect, and optional visit analytics.
package soupnight

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/soupnight/soupnight/analytics"
)

// ledgerFileName is the RSVP ledger file inside the data directory.
const ledgerFileName = "rsvps.json"

// App is the central application. It wires together the gallery store,
// the RSVP ledger, the bot-check and notification capabilities, the
// middleware stack, and the HTTP routes.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Gallery  *Gallery
	Ledger   *Ledger
	Verifier Verifier
	Notifier Notifier

	submitLimiter  *SubmitLimiter
	analyticsStore *analytics.Store
	stopAnalytics  func()
	customRoutes   []func(*App)
	started        time.Time
}

// New creates an App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start initializes storage, capabilities, middleware, and routes, then
// serves until the listener stops.
func (a *App) Start() error {
	if err := a.setup(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// setup performs all initialization short of binding the listener.
func (a *App) setup() error {
	gallery, err := NewGallery(a.Config.UploadDir, a.Config.ThumbnailWidth)
	if err != nil {
		return fmt.Errorf("soupnight: init gallery: %w", err)
	}
	a.Gallery = gallery

	ledger, err := NewLedger(filepath.Join(a.Config.DataDir, ledgerFileName))
	if err != nil {
		return fmt.Errorf("soupnight: init ledger: %w", err)
	}
	a.Ledger = ledger

	// Capability selection happens once here; handlers never check
	// configuration themselves.
	if a.Verifier == nil {
		if a.Config.RecaptchaSecret != "" {
			a.Verifier = NewRecaptchaVerifier(a.Config.RecaptchaSecret)
		} else {
			log.Println("soupnight: no bot-check secret configured, uploads are open")
			a.Verifier = AllowAll{}
		}
	}
	if a.Notifier == nil {
		if a.Config.EmailAPIKey != "" && a.Config.EmailFrom != "" && len(a.Config.EmailRecipients) > 0 {
			a.Notifier = NewEmailNotifier(a.Config.EmailAPIKey, a.Config.EmailFrom,
				a.Config.EmailRecipients, a.Config.Name, a.Config.URL)
		} else {
			log.Println("soupnight: email delivery not configured, notifications go to the log")
			a.Notifier = LogNotifier{SiteName: a.Config.Name}
		}
	}

	a.submitLimiter = NewSubmitLimiter(a.Config.SubmitsPerMin, defaultSubmitWindow)
	a.Echo.Validator = &requestValidator{validate: validator.New()}

	if a.Config.AnalyticsEnabled {
		store, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
		if err != nil {
			return fmt.Errorf("soupnight: init analytics: %w", err)
		}
		a.analyticsStore = store
		if err := analytics.InitSalt(store); err != nil {
			return fmt.Errorf("soupnight: init analytics salt: %w", err)
		}
		a.stopAnalytics = store.StartCleanupScheduler(365, 24*time.Hour)
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.started = time.Now()
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/health", a.handleHealth)

	api := e.Group("/api")
	api.GET("/photos/:year", a.handleListPhotos)
	api.POST("/photos", a.handleUploadPhotos, middleware.BodyLimit(a.uploadBodyLimit()))
	api.GET("/rsvps", a.handleListRSVPs)
	api.POST("/rsvps", a.handleCreateRSVP)

	if a.analyticsStore != nil {
		analytics.NewHandler(a.analyticsStore).RegisterRoutes(e)
	}

	// Uploaded photos are served back directly from the upload root.
	e.Static("/uploads", a.Gallery.Root())

	if a.Config.PublicDir != "" {
		e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
			Root:  a.Config.PublicDir,
			HTML5: true,
			Skipper: func(c echo.Context) bool {
				return isServerPath(c.Request().URL.Path)
			},
		}))
	}
}

// uploadBodyLimit sizes the request-body ceiling for the upload route:
// a full batch of maximum-size files plus headroom for form fields and
// multipart framing.
func (a *App) uploadBodyLimit() string {
	limit := (a.Config.MaxUploadSize*int64(a.Config.MaxUploadFiles))>>20 + 1
	return fmt.Sprintf("%dM", limit)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.stopAnalytics != nil {
		a.stopAnalytics()
	}
	if a.analyticsStore != nil {
		return a.analyticsStore.Close()
	}
	return nil
}

// requestValidator adapts go-playground/validator to echo's Validator.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body.").SetInternal(err)
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("soupnight: required environment variable %s is not set", key)
	}
	return v
}
