package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"tagpay/internal/application"
	"tagpay/internal/domain/model"
)

func importCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Import tokens from a CSV file (token[,url]); reads stdin when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return withApp(cmd.Context(), opts, func(app *application.Container) error {
				rep, err := app.Admin.Import(cmd.Context(), opts.actor, in)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "imported: %d\nskipped:  %d\n", rep.Imported, rep.Skipped)
				for _, e := range rep.Errors {
					fmt.Fprintf(out, "  line %d %s: %s\n", e.Line, e.Token, e.Reason)
				}
				return nil
			})
		},
	}
}

func exportCmd(opts *globalOpts) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every tag with its activation details as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return withApp(cmd.Context(), opts, func(app *application.Container) error {
				n, err := app.Admin.Export(cmd.Context(), out)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d tags\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func generateCmd(opts *globalOpts) *cobra.Command {
	var count, length int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create unassigned tags with random tokens and print them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *application.Container) error {
				tokens, err := app.Admin.Generate(cmd.Context(), opts.actor, count, length)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(tokens, "\n"))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of tokens")
	cmd.Flags().IntVarP(&length, "length", "l", 8, "token length")
	return cmd
}

func blockCmd(opts *globalOpts, block bool) *cobra.Command {
	use, short := "block", "Block a token so it no longer redirects"
	if !block {
		use, short = "unblock", "Return a blocked token to service"
	}
	return &cobra.Command{
		Use:   use + " <token>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *application.Container) error {
				var (
					tag *model.Tag
					err error
				)
				if block {
					tag, err = app.Admin.Block(cmd.Context(), opts.actor, args[0])
				} else {
					tag, err = app.Admin.Unblock(cmd.Context(), opts.actor, args[0])
				}
				if err != nil {
					return fmt.Errorf("%s %s: %w", use, args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", tag.Token, tag.Status)
				return nil
			})
		},
	}
}

func statsCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show tag, user and activation counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *application.Container) error {
				st, err := app.Admin.Stats(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				statuses := make([]string, 0, len(st.Tags))
				for s := range st.Tags {
					statuses = append(statuses, string(s))
				}
				sort.Strings(statuses)
				for _, s := range statuses {
					fmt.Fprintf(tw, "tags %s\t%d\n", s, st.Tags[model.TagStatus(s)])
				}
				fmt.Fprintf(tw, "tags total\t%d\n", st.TotalTags)
				fmt.Fprintf(tw, "users\t%d\n", st.Users)
				fmt.Fprintf(tw, "activations\t%d\n", st.Activations)
				return tw.Flush()
			})
		},
	}
}

func auditCmd(opts *globalOpts) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit <token>",
		Short: "Print the audit trail of a token, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *application.Container) error {
				items, err := app.Admin.TagAudit(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, e := range items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Actor, e.Meta)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum entries")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print its bcrypt hash for admin.password_hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1024))
			if err != nil {
				return err
			}
			pw := strings.TrimRight(string(b), "\r\n")
			if pw == "" {
				return errors.New("empty password")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}
