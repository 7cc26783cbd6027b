package main

import (
	"errors"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/masomo-lms/visibility/core"
	"github.com/masomo-lms/visibility/storage/database"
)

var (
	openDBFunc = database.Open // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf *core.Config
	out  io.Writer
	db   *sqlx.DB // opened on first use
}

func newCommandLine(conf *core.Config, out io.Writer) *commandLine {
	return &commandLine{conf: conf, out: out}
}

func (cli *commandLine) database() (*sqlx.DB, error) {
	if cli.db != nil {
		return cli.db, nil
	}
	db, err := openDBFunc(cli.conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(db, 5); err != nil {
		_ = db.Close()
		return nil, err
	}
	cli.db = db
	return db, nil
}

func (cli *commandLine) close() error {
	if cli.db == nil {
		return nil
	}
	db := cli.db
	cli.db = nil
	return db.Close()
}

// usage prints the command help and returns errHelp.
func usage(cmd *cobra.Command) error {
	_ = cmd.Usage()
	return errHelp
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Masomo visibility administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return usage(cmd)
		},
	}
	root.AddCommand(
		cli.migrateCmd(),
		cli.createDBCmd(),
		cli.visibilityCmd(),
		cli.tokenCmd(),
	)
	return root
}

// run executes args, os.Args style (program name first).
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}
