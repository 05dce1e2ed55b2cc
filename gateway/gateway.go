// Package gateway serves the storefront REST API.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/example/storefront/docs"
	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/service"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Services are the use cases the API exposes.
type Services struct {
	Carts    *service.CartService
	Wishlist *service.WishlistService
	Orders   *service.OrderService
	Payments *service.PaymentService
	Products *service.ProductService
	Accounts *service.AccountService
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type Gateway struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	server   *http.Server
	tokens   *auth.Tokens
	services Services
	checks   map[string]HealthCheck
}

func NewGateway(cfg *config.Config, logger *zap.Logger, tokens *auth.Tokens, services Services, checks map[string]HealthCheck) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(logger))
	router.MaxMultipartMemory = 32 << 20

	g := &Gateway{
		config:   cfg,
		logger:   logger,
		router:   router,
		tokens:   tokens,
		services: services,
		checks:   checks,
	}
	g.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return g
}

func (g *Gateway) SetupRoutes() {
	// Health check
	g.router.GET("/health", g.health)

	api := g.router.Group("/api")
	authed := authMiddleware(g.tokens)
	admin := []gin.HandlerFunc{authed, adminOnly()}

	// Cart routes
	cart := api.Group("/cart", authed)
	{
		cart.POST("/add", g.addToCart)
		cart.POST("/update", g.updateCart)
		cart.GET("", g.getCart)
		cart.POST("/get", g.getCart)
	}

	// Wishlist routes
	wishlist := api.Group("/wishlist", authed)
	{
		wishlist.POST("/add", g.addToWishlist)
		wishlist.POST("/remove", g.removeFromWishlist)
		wishlist.GET("", g.getWishlist)
	}

	// Order routes
	orders := api.Group("/order")
	{
		orders.POST("/place", authed, g.placeOrder)
		orders.POST("/gateway", authed, g.placeGatewayOrder)
		orders.POST("/verify", authed, g.verifyPayment)
		orders.POST("/userorders", authed, g.userOrders)
		orders.POST("/list", append(admin, g.allOrders)...)
		orders.POST("/status", append(admin, g.updateStatus)...)
		orders.POST("/history", append(admin, g.orderHistory)...)
	}

	// User routes
	users := api.Group("/user")
	{
		users.POST("/register", g.register)
		users.POST("/login", g.login)
		users.POST("/admin", g.adminLogin)
		users.POST("/forgot-password", g.forgotPassword)
		users.POST("/reset-password", g.resetPassword)
	}

	// Product routes
	products := api.Group("/product")
	{
		products.POST("/add", append(admin, g.addProduct)...)
		products.POST("/remove", append(admin, g.removeProduct)...)
		products.GET("/list", g.listProducts)
		products.POST("/single", g.singleProduct)
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Handler exposes the router for tests.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Start blocks until the server stops. A graceful Shutdown returns nil.
func (g *Gateway) Start() error {
	g.logger.Info("Gateway starting", zap.String("address", g.server.Addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.server.Shutdown(ctx)
}

// @Summary  Readiness of the API and its dependencies
// @Tags     health
// @Produce  json
// @Success  200  {object}  map[string]interface{}
// @Failure  503  {object}  map[string]interface{}
// @Router   /health [get]
func (g *Gateway) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, check := range g.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "dependencies": deps})
}
