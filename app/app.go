// Package app wires the services and HTTP modules into one handler.
package app

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"blogpp/account"
	"blogpp/admin"
	"blogpp/auth"
	"blogpp/backoffice"
	"blogpp/blog"
	"blogpp/cache"
	"blogpp/common"
	"blogpp/discussion"
	"blogpp/email"
	"blogpp/engagement"
	"blogpp/listing"
	"blogpp/middleware"
	"blogpp/notify"
	"blogpp/publishing"
	"blogpp/site"
	"blogpp/subscription"
)

const (
	sessionName     = "blogpp-session"
	renderCacheSize = 1024
)

type Options struct {
	Domain           string
	SessionSecret    string
	SessionSecure    bool
	CORSOrigins      []string
	RateLimit        int
	Mail             notify.QueueOpts
	RenderCacheTTL   time.Duration
	BackofficeEmails []string
}

type App struct {
	Router *gin.Engine
	// Handler serves Router behind the blog subdomain rewrite.
	Handler http.Handler

	queue   *notify.Queue
	render  *cache.RenderCache
	limiter *middleware.RateLimiter
	log     *zap.Logger
}

func New(db *gorm.DB, sender email.Sender, opts Options, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.RenderCacheTTL <= 0 {
		opts.RenderCacheTTL = 10 * time.Minute
	}

	a := &App{
		queue:   notify.NewQueue(sender, opts.Mail, log.Named("mail")),
		render:  cache.NewRenderCache(opts.RenderCacheTTL, renderCacheSize, log.Named("render")),
		limiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{RequestsPerSecond: opts.RateLimit}),
		log:     log,
	}

	dispatcher := notify.NewDispatcher(db, a.queue, opts.Domain, log.Named("notify"))
	likes := engagement.NewEngine(db, log.Named("engagement"))
	subs := subscription.NewManager(db, dispatcher, log.Named("subscription"))
	publish := publishing.NewService(db, dispatcher, likes, subs, a.render, log.Named("publishing"))
	comments := discussion.NewService(db, dispatcher, log.Named("discussion"))
	accounts := account.NewService(db, dispatcher, log.Named("account"))
	lists := listing.NewService(db)

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		corsMiddleware(opts.CORSOrigins),
		sessions.Sessions(sessionName, sessionStore(opts)),
		auth.LoadPrincipal(db),
		middleware.Logger(log),
	)
	router.HandleMethodNotAllowed = true
	router.NoRoute(func(c *gin.Context) { common.WriteError(c, common.NotFound("route")) })

	admin.NewAdminModule(accounts, publish, a.limiter.Handler()).RegisterRoutes(router)
	blog.NewBlogModule(db, publish, comments, likes, subs).RegisterRoutes(router)
	site.NewSiteModule(lists).RegisterRoutes(router)
	backoffice.NewBackofficeModule(db, accounts, likes, a.render, opts.BackofficeEmails).RegisterRoutes(router)

	a.Router = router
	a.Handler = common.SubdomainRewrite(opts.Domain, router)
	return a
}

func sessionStore(opts Options) sessions.Store {
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   opts.SessionSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:5173"}
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// Start launches the mail workers.
func (a *App) Start() {
	a.queue.Start()
}

// Close drains the mail queue and releases the caches. The HTTP server must
// be stopped first.
func (a *App) Close() {
	a.limiter.Close()
	a.queue.Close()
	if err := a.render.Close(); err != nil {
		a.log.Warn("Failed to close render cache", zap.Error(err))
	}
}
