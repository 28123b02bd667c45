package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"storefront/internal/client"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	authmw "storefront/internal/middleware"
	"storefront/internal/service"
)

const uploadBodyLimit = "10M"

type Services struct {
	Products   service.ProductService
	Categories service.CategoryService
	Orders     service.OrderService
	Media      service.MediaService
	Accounts   service.AccountService
}

type Options struct {
	Sessions           authmw.Registry
	Verifier           client.TokenVerifier
	PageSize           int
	AdminEmailSuffix   string
	ProfileWaitTimeout time.Duration
	RateLimitRPS       float64
	RateLimitBurst     int
	SecureCookies      bool
	// TrustedProxies are the only peers whose X-Forwarded-For is used for
	// the client IP.
	TrustedProxies []*net.IPNet
	// UploadsDir is served under /uploads when set.
	UploadsDir string
}

type Server struct {
	echo           *echo.Echo
	opts           Options
	log            logrus.FieldLogger
	catalogHandler *handler.CatalogHandler
	authHandler    *handler.AuthHandler
	accountHandler *handler.AccountHandler
	orderHandler   *handler.OrderHandler
	adminHandler   *handler.AdminHandler
}

func NewServer(svc Services, opts Options, log logrus.FieldLogger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: NewValidator()}
	e.HTTPErrorHandler = newErrorHandler(log)
	e.IPExtractor = ipExtractor(opts.TrustedProxies)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(metrics.Middleware())

	s := &Server{
		echo:           e,
		opts:           opts,
		log:            log,
		catalogHandler: handler.NewCatalogHandler(svc.Products, svc.Categories, opts.PageSize),
		authHandler:    handler.NewAuthHandler(svc.Accounts, opts.AdminEmailSuffix, log),
		accountHandler: handler.NewAccountHandler(svc.Orders, svc.Media),
		orderHandler:   handler.NewOrderHandler(svc.Orders),
		adminHandler:   handler.NewAdminHandler(svc.Products, svc.Categories, svc.Media),
	}

	s.setupRoutes()
	return s
}

// ipExtractor uses the peer address unless the peer is a trusted proxy.
func ipExtractor(proxies []*net.IPNet) echo.IPExtractor {
	if len(proxies) == 0 {
		return echo.ExtractIPDirect()
	}
	trust := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, p := range proxies {
		trust = append(trust, echo.TrustIPRange(p))
	}
	return echo.ExtractIPFromXFFHeader(trust...)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	if s.opts.UploadsDir != "" {
		s.echo.Static("/uploads", s.opts.UploadsDir)
	}

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- catalog --------
	api.GET("/shop", s.catalogHandler.Shop)
	api.GET("/products/:id", s.catalogHandler.GetProduct)
	api.GET("/categories", s.catalogHandler.GetCategories)
	api.GET("/home", s.catalogHandler.Home)

	withSession := authmw.LoadSession(authmw.SessionConfig{
		Sessions:     s.opts.Sessions,
		Verifier:     s.opts.Verifier,
		SecureCookie: s.opts.SecureCookies,
		Log:          s.log,
	})
	requireUser := authmw.RequireUser(s.opts.ProfileWaitTimeout)
	limiter := authmw.NewRateLimiter(s.opts.RateLimitRPS, s.opts.RateLimitBurst, s.log)

	// -------- auth --------
	auth := api.Group("/auth")
	auth.GET("/error", s.authHandler.AuthError)
	auth.GET("/state", s.authHandler.State, withSession)
	auth.POST("/signout", s.authHandler.SignOut, withSession)

	limited := auth.Group("", limiter.Middleware())
	limited.POST("/signin", s.authHandler.SignIn, withSession)
	limited.POST("/signup", s.authHandler.SignUp, withSession)
	limited.POST("/forgot-password", s.authHandler.ForgotPassword)
	limited.POST("/reset-password", s.authHandler.ResetPassword)
	limited.POST("/resend", s.authHandler.ResendConfirmation)

	// -------- account --------
	account := api.Group("/account", withSession, requireUser)
	account.GET("/profile", s.accountHandler.GetProfile)
	account.PATCH("/profile", s.accountHandler.UpdateProfile)
	account.POST("/avatar", s.accountHandler.UploadAvatar, middleware.BodyLimit(uploadBodyLimit))
	account.DELETE("/avatar", s.accountHandler.RemoveAvatar)
	account.GET("/orders", s.accountHandler.ListOrders)

	// -------- orders --------
	api.POST("/checkout", s.orderHandler.Checkout, withSession, requireUser)
	api.GET("/orders/:id", s.orderHandler.GetOrder, withSession, requireUser)

	// -------- admin --------
	admin := api.Group("/admin", withSession, requireUser, authmw.RequireAdmin(s.opts.AdminEmailSuffix))

	products := admin.Group("/products")
	products.GET("", s.adminHandler.ListProducts)
	products.POST("", s.adminHandler.CreateProduct)
	products.GET("/:id", s.adminHandler.GetProduct)
	products.PUT("/:id", s.adminHandler.UpdateProduct)
	products.DELETE("/:id", s.adminHandler.DeleteProduct)
	products.POST("/:id/images", s.adminHandler.UploadProductImages, middleware.BodyLimit(uploadBodyLimit))

	categories := admin.Group("/categories")
	categories.GET("", s.adminHandler.ListCategories)
	categories.POST("", s.adminHandler.CreateCategory)
	categories.GET("/:id", s.adminHandler.GetCategory)
	categories.PUT("/:id", s.adminHandler.UpdateCategory)
	categories.DELETE("/:id", s.adminHandler.DeleteCategory)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

// Shutdown waits for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
