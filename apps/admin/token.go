package main

import (
	"github.com/spf13/cobra"

	"github.com/masomo-lms/visibility/apps/api/echo"
)

func (cli *commandLine) tokenCmd() *cobra.Command {
	var (
		subject string
		roles   []string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return usage(cmd)
			}
			token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, subject, roles...))
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (user id)")
	cmd.Flags().StringSliceVar(&roles, "role", []string{echoapi.RoleTeacher}, "roles: admin, teacher, student")
	return cmd
}
