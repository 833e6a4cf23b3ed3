package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/campus-booking-backend/internal/api"
	"github.com/nekogravitycat/campus-booking-backend/internal/auth"
	"github.com/nekogravitycat/campus-booking-backend/internal/booking"
	"github.com/nekogravitycat/campus-booking-backend/internal/resource"
	"github.com/nekogravitycat/campus-booking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	LockWait     time.Duration
	// SweepSchedule is a cron spec; empty leaves Sweeper nil.
	SweepSchedule string
	Logger        *slog.Logger
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router         *gin.Engine
	JWTManager     *auth.JWTManager
	UserService    user.Service
	BookingService booking.Service
	Sweeper        *booking.Sweeper
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo)

	// Resource Module
	resRepo := resource.NewPgxRepository(cfg.DBPool)
	resService := resource.NewService(resRepo)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(bookingRepo, resService,
		booking.WithLockWait(cfg.LockWait),
		booking.WithLogger(log.With("component", "booking")),
	)

	var sweeper *booking.Sweeper
	if cfg.SweepSchedule != "" {
		var err error
		sweeper, err = booking.NewSweeper(bookingService, cfg.SweepSchedule, log.With("component", "sweeper"))
		if err != nil {
			return nil, err
		}
	}

	// Router
	router, err := api.NewRouter(api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		Logger:         log,
		UserService:    userService,
		ResService:     resService,
		BookingService: bookingService,
		JWTManager:     jwtManager,
	})
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	return &Container{
		Router:         router,
		JWTManager:     jwtManager,
		UserService:    userService,
		BookingService: bookingService,
		Sweeper:        sweeper,
	}, nil
}
