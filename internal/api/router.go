package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/valueminer/valueminer/internal/api/handler"
	mw "github.com/valueminer/valueminer/internal/api/middleware"
	"github.com/valueminer/valueminer/internal/auth"
	"github.com/valueminer/valueminer/internal/repository"
)

// Handlers bundles the HTTP handlers served by the router.
type Handlers struct {
	Health  *handler.HealthHandler
	Mine    *handler.MineHandler
	Intake  *handler.IntakeHandler
	Account *handler.AccountHandler
	Report  *handler.ReportHandler
	Clips   *handler.ClipHandler
	Share   *handler.ShareHandler
}

// Options holds router-wide settings.
type Options struct {
	AllowedOrigins []string
	CronSecret     string
	Verifier       auth.Verifier
	Users          repository.UserRepository
	Tokens         mw.TokenAuthenticator
	RateLimiter    *mw.RateLimiter
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(h Handlers, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(mw.CORS(opts.AllowedOrigins))

	// Health endpoints (no auth)
	r.Get("/health", h.Health.Live)
	r.Get("/ready", h.Health.Ready)

	// Public share page opened from social links
	r.Get("/s", h.Share.Page)

	r.Route("/api", func(r chi.Router) {
		// The token is in the query so the Shortcuts app can download directly.
		r.Get("/shortcut", h.Share.Shortcut)

		// Stateless mining used by the web form (rate limited, no auth)
		r.Group(func(r chi.Router) {
			if opts.RateLimiter != nil {
				r.Use(opts.RateLimiter.Handler)
			}
			r.Post("/transcript", h.Mine.Transcript)
			r.Post("/analyze", h.Mine.Analyze)
		})

		// Browser sessions
		r.Post("/session", h.Account.StartSession)
		r.Get("/session", h.Account.RestoreSession)
		r.Delete("/session", h.Account.EndSession)

		// Share Sheet webhook (intake token)
		r.Group(func(r chi.Router) {
			r.Use(mw.IntakeTokenAuth(opts.Tokens))
			r.Post("/intake/youtube", h.Intake.YouTube)
			r.Get("/intake/{intakeID}", h.Intake.Status)
		})

		// Scheduled reports (cron secret)
		r.With(mw.APIKeyAuth(opts.CronSecret)).Post("/report/cron", h.Report.Cron)

		// Signed-in user endpoints (Supabase access token)
		r.Group(func(r chi.Router) {
			r.Use(mw.UserAuth(opts.Verifier, opts.Users))

			r.Post("/tokens", h.Account.IssueToken)

			r.Post("/report/send", h.Report.Send)
			r.Get("/report/preferences", h.Report.GetPreferences)
			r.Put("/report/preferences", h.Report.PutPreferences)

			r.Get("/clips", h.Clips.List)
			r.Post("/clips", h.Clips.Mine)
			r.Patch("/clips/{clipID}/folder", h.Clips.Move)

			r.Get("/folders", h.Clips.ListFolders)
			r.Post("/folders", h.Clips.CreateFolder)
		})
	})

	return r
}
