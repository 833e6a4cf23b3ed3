package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/campus-booking-backend/internal/auth"
	"github.com/nekogravitycat/campus-booking-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/campus-booking-backend/internal/booking/http"
	"github.com/nekogravitycat/campus-booking-backend/internal/pkg/logger"
	"github.com/nekogravitycat/campus-booking-backend/internal/resource"
	resHttp "github.com/nekogravitycat/campus-booking-backend/internal/resource/http"
	"github.com/nekogravitycat/campus-booking-backend/internal/user"
	userHttp "github.com/nekogravitycat/campus-booking-backend/internal/user/http"
)

// Config carries the services and settings the router is assembled from.
type Config struct {
	IsProduction   bool
	ProdOrigins    string
	Logger         *slog.Logger
	UserService    user.Service
	ResService     resource.Service
	BookingService booking.Service
	JWTManager     *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) (*gin.Engine, error) {
	if err := resHttp.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("register resource validators: %w", err)
	}
	if err := bookingHttp.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("register booking validators: %w", err)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	corsCfg := corsConfig(cfg)
	if len(corsCfg.AllowOrigins) == 0 {
		return nil, errors.New("no CORS origins configured for production")
	}

	r := gin.New()

	// Global Middleware:
	// - Logger: one slog record per request.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(logger.GinMiddleware(log), gin.Recovery())
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates the JWT, then loads the user so handlers see their role.
	authMiddleware := []gin.HandlerFunc{
		auth.AuthRequired(cfg.JWTManager),
		LoadUser(cfg.UserService),
	}
	staffOnly := RequireRole(user.RoleStaff, user.RoleAdmin)
	adminOnly := RequireRole(user.RoleAdmin)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	userHandler := userHttp.NewHandler(cfg.UserService)
	resHandler := resHttp.NewHandler(cfg.ResService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware...)
		resHttp.RegisterRoutes(v1, resHandler, staffOnly, adminOnly, authMiddleware...)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware...)
	}

	return r, nil
}

func corsConfig(cfg Config) cors.Config {
	config := cors.DefaultConfig()
	if cfg.IsProduction {
		config.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	} else {
		config.AllowOrigins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://localhost:8081", // Swagger
		}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	return config
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
