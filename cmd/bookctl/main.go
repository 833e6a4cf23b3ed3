// Command bookctl performs administrative tasks against the booking database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/nekogravitycat/campus-booking-backend/internal/config"
	"github.com/nekogravitycat/campus-booking-backend/internal/db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	e := &env{}
	err := newRootCmd(e).ExecuteContext(ctx)
	e.close()
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is shared by subcommands that need configuration and a database.
type env struct {
	cfg  *config.Config
	pool *pgxpool.Pool
}

func (e *env) open(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pool, err := db.NewPool(cmd.Context(), cfg.DBDSN)
	if err != nil {
		return err
	}
	e.cfg, e.pool = cfg, pool
	return nil
}

func (e *env) close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "bookctl",
		Short:         "Administer the campus booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.open(cmd)
		},
	}

	root.AddCommand(
		newMigrateCmd(e),
		newUserCmd(e),
		newTokenCmd(e),
		newSweepCmd(e),
	)
	return root
}

func newMigrateCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back, or inspect schema migrations",
	}

	for _, dir := range []db.Direction{db.Up, db.Down, db.Status} {
		cmd.AddCommand(&cobra.Command{
			Use:   string(dir),
			Short: migrateShort[dir],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return db.Migrate(cmd.Context(), e.pool, dir, cmd.OutOrStdout())
			},
		})
	}
	return cmd
}

var migrateShort = map[db.Direction]string{
	db.Up:     "Apply all pending migrations",
	db.Down:   "Roll back the most recent migration",
	db.Status: "Print the state of every migration",
}
