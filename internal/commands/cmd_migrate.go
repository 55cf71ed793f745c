package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskman/internal/app"
	"github.com/colonyops/taskman/internal/data/db"
)

// MigrateCmd manages SQLite schema migrations.
type MigrateCmd struct {
	flags *Flags
	app   *app.App
}

// NewMigrateCmd creates the migrate command.
func NewMigrateCmd(flags *Flags, a *app.App) *MigrateCmd {
	return &MigrateCmd{flags: flags, app: a}
}

// Register adds the migrate command to the application.
func (cmd *MigrateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "migrate",
		Usage: "Database migration commands (sqlite backend)",
		Commands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "List migrations and whether they are applied",
				UsageText: "taskman migrate status",
				Action:    cmd.status,
			},
			{
				Name:        "down",
				Usage:       "Revert the last N migrations",
				UsageText:   "taskman migrate down <N>",
				Description: "Reverts applied migrations in reverse order. Pending migrations are applied again on the next start.",
				Action:      cmd.down,
			},
		},
	})

	return app
}

func (cmd *MigrateCmd) requireSQLite() error {
	if cmd.app.DB == nil {
		return fmt.Errorf("migrations only apply to the sqlite backend (current: %s)", cmd.flags.Config.Backend)
	}
	return nil
}

func (cmd *MigrateCmd) status(ctx context.Context, c *cli.Command) error {
	if err := cmd.requireSQLite(); err != nil {
		return err
	}

	states, err := db.MigrationStatus(ctx, cmd.app.DB.Conn())
	if err != nil {
		return err
	}

	w := c.Root().Writer
	for _, s := range states {
		applied := "pending"
		if s.Applied() {
			applied = s.AppliedAt.Format(time.RFC3339)
		}
		if _, err := fmt.Fprintf(w, "%04d  %-20s %s\n", s.Version, s.Name, applied); err != nil {
			return err
		}
	}
	return nil
}

func (cmd *MigrateCmd) down(ctx context.Context, c *cli.Command) error {
	if err := cmd.requireSQLite(); err != nil {
		return err
	}

	n, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return fmt.Errorf("expected a number of migrations, got %q", c.Args().First())
	}

	if err := db.MigrateDown(ctx, cmd.app.DB.Conn(), n); err != nil {
		return err
	}

	_, err = fmt.Fprintf(c.Root().Writer, "Reverted %d migration(s)\n", n)
	return err
}
