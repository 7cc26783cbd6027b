package main

import (
	"bytes"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masomo-lms/visibility/apps/api/echo"
	"github.com/masomo-lms/visibility/core"
	"github.com/masomo-lms/visibility/storage/database"
	"github.com/masomo-lms/visibility/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	color.NoColor = true

	// set up DB
	db := testutil.PrepareDB(t)
	testutil.SeedDB(t, db, testutil.Scenario())

	// start CLI
	var out bytes.Buffer
	cli := newCommandLine(core.NewTestConfig(""), &out)
	cli.db = db
	return cli, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
}

func runCLITests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
				return
			}
			if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
			}
			if tt.wantOut != "" && out.String() != tt.wantOut {
				t.Errorf("cli.run() output =\n%s\nwantOut\n%s", out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, out, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol" for "admin"`},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)
	t.Cleanup(func() { gooseRunFunc = database.RunMigrations })

	gooseRunFunc = func(command string, db *sql.DB, engine string, args ...string) error {
		if engine != core.EngineSQLite {
			return fmt.Errorf("unexpected engine %q", engine)
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, out, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	})
}

func Test_commandLine_migrate_goose(t *testing.T) {
	cli, out := setup(t)
	gooseRunFunc = database.RunMigrations

	// the scenario rows are lost on the way down; the schema comes back up
	runCLITests(t, cli, out, []cliTest{
		{name: "status", args: []string{"migrate", "status"}},
		{name: "down-to 0", args: []string{"migrate", "down-to", "0"}},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "empty tables", args: []string{"visibility", "quiz", "--course", "1"}, wantOut: "(none)\n"},
	})
}

func Test_commandLine_createdb(t *testing.T) {
	cli, out := setup(t)

	t.Cleanup(func() { createDBFunc = database.CreateIfNotExist })

	var called bool
	createDBFunc = func(conf *core.Config) error {
		called = true
		return nil
	}

	runCLITests(t, cli, out, []cliTest{
		{name: "extra args", args: []string{"createdb", "lol"}, wantErrStr: `unknown command "lol" for "admin createdb"`},
		{name: "create", args: []string{"createdb"}, wantOut: "database \"\" is ready\n"},
	})
	assert.True(t, called)
}

func Test_commandLine_visibility(t *testing.T) {
	cli, out := setup(t)

	table := func(idCol string, rows ...string) string {
		return strings.Join(append([]string{"course_id  user_id  " + idCol}, rows...), "\n") + "\n"
	}

	runCLITests(t, cli, out, []cliTest{
		{name: "no kind", args: []string{"visibility"}, wantErr: errHelp},
		{name: "unknown kind", args: []string{"visibility", "lol", "--course", "1"}, wantErrStr: `unknown object kind "lol" (want quiz or discussion)`},
		{
			name: "no filter", args: []string{"visibility", "quiz"},
			wantErrStr: "QuizzesVisibleToStudents must have a limiting where clause of at least one course_id, user_id, or quiz_id (for performance reasons)",
		},
		{name: "unknown scope", args: []string{"visibility", "quiz", "--course", "1", "--scope", "lol"}, wantErrStr: `"lol": unknown visibility scope`},
		{
			name: "full", args: []string{"visibility", "quiz", "--object", "15"},
			wantOut: table("quiz_id",
				"1          101      15",
				"1          102      15",
				"1          103      15",
			),
		},
		{
			name: "scope", args: []string{"visibility", "quiz", "--user", "102", "--scope", "adhoc"},
			wantOut: table("quiz_id", "1          102      14"),
		},
		{
			name: "discussion", args: []string{"visibility", "discussion", "--course", "1", "--user", "103,102", "--object", "2"},
			wantOut: table("discussion_topic_id", "1          103      2"),
		},
		{name: "nothing visible", args: []string{"visibility", "quiz", "--object", "8"}, wantOut: "(none)\n"},
		{
			name: "breakdown", args: []string{"visibility", "quiz", "--object", "10", "--breakdown"},
			wantOut: "everyone\n(none)\n" +
				"sections\n" + table("quiz_id", "1          103      10") +
				"unassigned_sections\n(none)\n" +
				"adhoc\n(none)\n" +
				"unassigned_adhoc\n" + table("quiz_id", "1          103      10") +
				"course\n(none)\n",
		},
	})
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, out, []cliTest{
		{name: "no subject", args: []string{"token"}, wantErr: errHelp},
	})

	out.Reset() // drop the usage text printed above
	require.NoError(t, cli.run([]string{"admin", "token", "--subject", "42", "--role", "admin,teacher"}))

	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cli.conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.True(t, claims.IsAdmin)
	assert.True(t, claims.IsTeacher)
	assert.False(t, claims.IsStudent)
	assert.Equal(t, []string{echoapi.RoleAdmin, echoapi.RoleTeacher}, claims.Roles)
}
