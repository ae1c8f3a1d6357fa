package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/khoahotran/town-notes/internal/client"
	"github.com/khoahotran/town-notes/internal/client/orchestrator"
	"github.com/khoahotran/town-notes/internal/domain/fieldreport"
	"github.com/khoahotran/town-notes/pkg/auth"
	"github.com/khoahotran/town-notes/pkg/logger"
)

func newClient(cmd *cobra.Command) *client.Client {
	server, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")
	return client.New(server, token)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// consoleNotifier prints editor outcomes.
type consoleNotifier struct {
	out io.Writer
}

func (n consoleNotifier) Success(m string) { fmt.Fprintln(n.out, "ok:", m) }
func (n consoleNotifier) Failure(m string) { fmt.Fprintln(n.out, "failed:", m) }

// consoleStream stands in for the session video in a terminal.
type consoleStream struct {
	out io.Writer
}

func (s consoleStream) Pause(context.Context) error {
	fmt.Fprintln(s.out, "(stream paused)")
	return nil
}

func (s consoleStream) Resume(context.Context) error {
	fmt.Fprintln(s.out, "(stream resumed)")
	return nil
}

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Read or edit a profile",
	}

	get := &cobra.Command{
		Use:   "get [email]",
		Short: "Fetch a profile by email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newClient(cmd).FetchProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}

	edit := &cobra.Command{
		Use:   "edit [email]",
		Short: "Create or update the caller's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			e := orchestrator.NewProfileEditor(newClient(cmd), consoleNotifier{out}, args[0], logger.NewNop())
			if err := e.Load(cmd.Context()); err != nil {
				return err
			}

			cur := e.Current()
			form := orchestrator.ProfileForm{
				Username:   cur.Username,
				FirstName:  cur.FirstName,
				LastName:   cur.LastName,
				Pronouns:   cur.Pronouns,
				Occupation: cur.Occupation,
				Bio:        cur.Bio,
			}
			flags := cmd.Flags()
			if flags.Changed("username") {
				form.Username, _ = flags.GetString("username")
			}
			if flags.Changed("first-name") {
				form.FirstName, _ = flags.GetString("first-name")
			}
			if flags.Changed("last-name") {
				form.LastName, _ = flags.GetString("last-name")
			}
			form.Pronouns = optionalFlag(cmd, "pronouns", form.Pronouns)
			form.Occupation = optionalFlag(cmd, "occupation", form.Occupation)
			form.Bio = optionalFlag(cmd, "bio", form.Bio)

			return e.Save(cmd.Context(), form)
		},
	}
	edit.Flags().String("username", "", "Username")
	edit.Flags().String("first-name", "", "First name")
	edit.Flags().String("last-name", "", "Last name")
	edit.Flags().String("pronouns", "", "Pronouns")
	edit.Flags().String("occupation", "", "Occupation")
	edit.Flags().String("bio", "", "Bio")
	edit.Flags().StringSlice("clear", nil, "Optional fields to remove (pronouns, occupation, bio)")

	cmd.AddCommand(get, edit)
	return cmd
}

// optionalFlag returns the flag value when set, nil when listed in --clear,
// and cur otherwise.
func optionalFlag(cmd *cobra.Command, name string, cur *string) *string {
	cleared, _ := cmd.Flags().GetStringSlice("clear")
	for _, c := range cleared {
		if c == name {
			return nil
		}
	}
	if !cmd.Flags().Changed(name) {
		return cur
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Read or write a session field report",
	}

	get := &cobra.Command{
		Use:   "get [sessionID] [username]",
		Short: "Show the report a user keeps for a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newClient(cmd).ListFieldReport(cmd.Context(), fieldreport.Key{Username: args[1], SessionID: args[0]})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), r)
		},
	}

	write := &cobra.Command{
		Use:   "write [sessionID] [username]",
		Short: "Open the editor, replace the note and save it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _ := cmd.Flags().GetString("text")
			if text == "-" {
				raw, err := io.ReadAll(os.Stdin)
				if err != nil {
					return err
				}
				text = string(raw)
			}

			out := cmd.OutOrStdout()
			key := fieldreport.Key{Username: args[1], SessionID: args[0]}
			e := orchestrator.NewReportEditor(newClient(cmd), consoleStream{out}, consoleNotifier{out}, key, logger.NewNop())
			return orchestrator.WithEditor(cmd.Context(), e, func(ctx context.Context, e *orchestrator.ReportEditor) error {
				fmt.Fprintf(out, "editor opened: %s\n", e.State())
				if err := e.Edit(text); err != nil {
					return err
				}
				return e.Submit(ctx)
			})
		},
	}
	write.Flags().String("text", "", "Report body, or - to read stdin")

	cmd.AddCommand(get, write)
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [email]",
		Short: "Issue a development bearer token for an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if secret == "" {
				return fmt.Errorf("--secret or AUTH_JWT_SECRET is required")
			}
			token, err := auth.NewJWTService(secret, ttl).GenerateToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("secret", os.Getenv("AUTH_JWT_SECRET"), "Signing secret shared with the API server")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	return cmd
}
