package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nekogravitycat/campus-booking-backend/internal/auth"
	"github.com/nekogravitycat/campus-booking-backend/internal/booking"
	"github.com/nekogravitycat/campus-booking-backend/internal/pkg/logger"
	"github.com/nekogravitycat/campus-booking-backend/internal/resource"
	"github.com/nekogravitycat/campus-booking-backend/internal/user"
)

func newUserCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var req user.CreateRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := user.NewService(user.NewPgxRepository(e.pool)).Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", u.Role, u.Email, u.ID)
			return nil
		},
	}
	create.Flags().StringVar(&req.Email, "email", "", "email address")
	create.Flags().StringVar(&req.DisplayName, "name", "", "display name")
	create.Flags().StringVar(&req.Role, "role", string(user.RoleStudent), "student, faculty, staff or admin")
	create.Flags().StringVar(&req.Department, "department", "", "department (optional)")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(create)
	return cmd
}

func newTokenCmd(e *env) *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for an existing user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := user.NewService(user.NewPgxRepository(e.pool)).GetByEmail(cmd.Context(), email)
			if err != nil {
				return err
			}
			if !u.IsActive {
				return user.ErrInactiveUser
			}

			if ttl <= 0 {
				ttl = e.cfg.JWTAccessTokenTTL
			}
			token, err := auth.NewJWTManager(e.cfg.JWTSecret, ttl).GenerateAccessToken(u.ID, u.Email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the user")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_ACCESS_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSweepCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Complete confirmed bookings that have already ended",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New(e.cfg.LogLevel, e.cfg.IsProduction)
			svc := booking.NewService(
				booking.NewPgxRepository(e.pool),
				resource.NewService(resource.NewPgxRepository(e.pool)),
				booking.WithLogger(log),
			)

			n, err := svc.CompleteElapsed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "completed %d booking(s)\n", n)
			return nil
		},
	}
}
