package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/vindel10/vindel-api/pkg/database"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations",
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := openEnv(ctx, c.Bool("debug"))
			if err != nil {
				return err
			}
			defer e.close()

			applied, err := database.Migrate(ctx, e.db, e.logger)
			if err != nil {
				return fmt.Errorf("applying migrations: %w", err)
			}
			if len(applied) == 0 {
				fmt.Fprintln(os.Stdout, noDataStyle.Render("Database is up to date"))
				return nil
			}
			fmt.Fprintln(os.Stdout, summaryStyle.Render(fmt.Sprintf("%d migrations applied", len(applied))))
			for _, v := range applied {
				fmt.Fprintln(os.Stdout, metaStyle.Render("  "+v))
			}
			return nil
		},
	}
}
