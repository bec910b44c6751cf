// Package cli implements the rbacctl operator commands.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Deps provides the backends commands run against. Each constructor is
// called lazily so commands only connect to what they use.
type Deps struct {
	Check func() (*CheckCLI, func(), error)
	Jobs  func() (*JobsCLI, error)
}

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Root builds the rbacctl command tree.
func Root(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rbacctl",
		Short:         "Inspect dashboard authorization",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(checkCommand(deps), jobsCommand(deps))
	return cmd
}

func checkCommand(deps Deps) *cobra.Command {
	var opts CheckOptions
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show roles, permissions and reachable dashboard sections of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			checker, done, err := deps.Check()
			if err != nil {
				return err
			}
			defer done()
			opts.Stdout = cmd.OutOrStdout()
			opts.Stderr = cmd.ErrOrStderr()
			if code := checker.Run(cmd.Context(), opts); code != ExitOK {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Account, "account", "", "email address or user id")
	cmd.Flags().StringVar(&opts.Section, "section", "", "evaluate access to one dashboard section")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "print JSON")
	return cmd
}

func jobsCommand(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background jobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "trigger <task>",
		Short: "Enqueue a job now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := deps.Jobs()
			if err != nil {
				return err
			}
			defer c.Close()
			info, err := c.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}, &cobra.Command{
		Use:   "stats",
		Short: "Print default queue statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := deps.Jobs()
			if err != nil {
				return err
			}
			defer c.Close()
			stats, err := c.InspectQueue()
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
		},
	})
	return cmd
}
