package main

import (
	"github.com/spf13/cobra"

	"github.com/masomo-lms/visibility/storage/database"
)

var (
	gooseRunFunc = database.RunMigrations    // mockable
	createDBFunc = database.CreateIfNotExist // mockable
)

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "migrate COMMAND [ARGS]",
		Short:              "Run a goose command (up, up-to, down, status...) against the embedded migrations",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usage(cmd)
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) migrate(args []string) error {
	db, err := cli.database()
	if err != nil {
		return err
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], db.DB, cli.conf.Database.Engine, arguments...)
}

func (cli *commandLine) createDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "createdb",
		Short: "Create the app database user and database if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := createDBFunc(cli.conf); err != nil {
				return err
			}
			cmd.Printf("database %q is ready\n", cli.conf.Database.Name)
			return nil
		},
	}
}
