package router

import (
	"net/http"
	"time"

	"caterly/internal/auth"
	"caterly/internal/bills"
	"caterly/internal/customers"
	"caterly/internal/documents"
	"caterly/internal/expenses"
	"caterly/internal/logging"
	"caterly/internal/menuitems"
	"caterly/internal/metrics"
	"caterly/internal/middleware"
	"caterly/internal/orders"
	"caterly/internal/workforce"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers are the HTTP handlers the router mounts.
type Handlers struct {
	Auth      *auth.Handler
	Customers *customers.Handler
	MenuItems *menuitems.Handler
	Workforce *workforce.Handler
	Orders    *orders.Handler
	Bills     *bills.Handler
	Expenses  *expenses.Handler
	Documents *documents.Handler
}

type Options struct {
	Tokens      *auth.TokenManager
	CORSOrigins []string
	// AuthLimiter throttles the unauthenticated auth endpoints per client.
	AuthLimiter *middleware.RateLimiter
}

func NewRouter(h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(), middleware.Metrics())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Document-URL"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	authenticate := middleware.AuthMiddleware(opts.Tokens)

	authGroup := r.Group("/auth")
	if opts.AuthLimiter != nil {
		authGroup.Use(opts.AuthLimiter.Middleware())
	}
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", h.Auth.Logout)
		authGroup.GET("/me", authenticate, h.Auth.Me)
		authGroup.POST("/register", authenticate, middleware.RequireRole(auth.RoleAdmin), h.Auth.Register)
	}

	// every business route needs a session; writes need a manager
	api := r.Group("", authenticate, middleware.WriteAccess(auth.RoleAdmin, auth.RoleManager))

	h.Customers.Register(api.Group("/customers"))
	h.MenuItems.Register(api.Group("/menu-items"))
	h.Workforce.Register(api.Group("/workforce"))
	h.Orders.Register(api.Group("/orders"))
	h.Expenses.Register(api.Group("/expenses"))

	billsGroup := api.Group("/bills")
	h.Bills.Register(billsGroup)
	h.Documents.RegisterBillRoutes(billsGroup)

	h.Documents.Register(api.Group("/documents"))

	return r
}
