package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/masomo-lms/visibility/core"
	"github.com/masomo-lms/visibility/core/visibility"
	"github.com/masomo-lms/visibility/storage/database/sqlx"
)

var (
	headerColor   = color.New(color.FgCyan, color.Bold)
	categoryColor = color.New(color.FgYellow, color.Bold)
	emptyColor    = color.New(color.Faint)
)

var kinds = map[string]visibility.Kind{
	"quiz":       visibility.Quiz,
	"discussion": visibility.DiscussionTopic,
}

type visibilityFlags struct {
	courseIDs []int64
	userIDs   []int64
	objectIDs []int64
	scope     string
	breakdown bool
}

func (cli *commandLine) visibilityCmd() *cobra.Command {
	var flags visibilityFlags

	cmd := &cobra.Command{
		Use:   "visibility quiz|discussion",
		Short: "List the students who can see quizzes or ungraded discussion topics",
		Example: "  admin visibility quiz --course 1 --scope others\n" +
			"  admin visibility discussion --object 4,5 --breakdown",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usage(cmd)
			}
			kind, ok := kinds[core.CleanString(args[0], true)]
			if !ok {
				return fmt.Errorf("unknown object kind %q (want quiz or discussion)", args[0])
			}
			filter := visibility.Filter{
				CourseIDs: flagIDs(cmd, "course", flags.courseIDs),
				UserIDs:   flagIDs(cmd, "user", flags.userIDs),
				ObjectIDs: flagIDs(cmd, "object", flags.objectIDs),
			}
			return cli.visibility(cmd.Context(), cmd.OutOrStdout(), kind, filter, flags)
		},
	}
	cmd.Flags().Int64SliceVar(&flags.courseIDs, "course", nil, "course ids")
	cmd.Flags().Int64SliceVar(&flags.userIDs, "user", nil, "user (student) ids")
	cmd.Flags().Int64SliceVar(&flags.objectIDs, "object", nil, "quiz or discussion topic ids")
	cmd.Flags().StringVar(&flags.scope, "scope", string(visibility.ScopeFull), "visibility scope")
	cmd.Flags().BoolVar(&flags.breakdown, "breakdown", false, "list every category on its own")
	return cmd
}

// flagIDs keeps unset flags unrestricted.
func flagIDs(cmd *cobra.Command, name string, ids []int64) visibility.IDs {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return visibility.IDs(ids)
}

func (cli *commandLine) visibility(ctx context.Context, w io.Writer, kind visibility.Kind, filter visibility.Filter, flags visibilityFlags) error {
	db, err := cli.database()
	if err != nil {
		return err
	}
	svc := visibility.NewService(kind, sqlxrepos.NewVisibilityRepository(db))
	if ctx == nil {
		ctx = context.Background()
	}

	if !flags.breakdown {
		vs, err := svc.Find(ctx, visibility.Scope(flags.scope), filter)
		if err != nil {
			return err
		}
		printVisibilities(w, kind, vs)
		return nil
	}

	cats, err := svc.Breakdown(ctx, filter)
	if err != nil {
		return err
	}
	for _, cat := range visibility.Categories {
		_, _ = categoryColor.Fprintf(w, "%s\n", cat)
		printVisibilities(w, kind, cats[cat])
	}
	return nil
}

func printVisibilities(w io.Writer, kind visibility.Kind, vs []visibility.Visibility) {
	if len(vs) == 0 {
		_, _ = emptyColor.Fprintln(w, "(none)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = headerColor.Fprintf(tw, "course_id\tuser_id\t%s\n", kind.IDColumn)
	for _, v := range vs {
		_, _ = fmt.Fprintf(tw, "%d\t%d\t%d\n", v.CourseID, v.UserID, v.ObjectID)
	}
	_ = tw.Flush()
}
