package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/moneytrail/moneytrail/internal/repository"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations",
		Action: func(c *cli.Context) error {
			repo, err := openRepository(c)
			if err != nil {
				return err
			}
			defer repo.Close()

			applied, err := repository.Migrate(c.Context, repo.Pool())
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(c.App.Writer, "schema is up to date")
				return nil
			}
			fmt.Fprintf(c.App.Writer, "applied: %s\n", strings.Join(applied, ", "))
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:  "status",
				Usage: "List applied and pending migrations",
				Action: func(c *cli.Context) error {
					repo, err := openRepository(c)
					if err != nil {
						return err
					}
					defer repo.Close()

					versions, err := repository.AppliedVersions(c.Context, repo.Pool())
					if err != nil {
						return err
					}
					migrations, err := repository.Migrations()
					if err != nil {
						return err
					}
					printMigrationStatus(c.App.Writer, migrations, versions)
					return nil
				},
			},
		},
	}
}

func printMigrationStatus(w io.Writer, migrations []repository.Migration, applied []string) {
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}
	for _, m := range migrations {
		state := "pending"
		if done[m.Version] {
			state = "applied"
		}
		fmt.Fprintf(w, "%-8s %s\n", state, m.Version)
	}
}
