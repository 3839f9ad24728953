package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chronicle-labs/chronicle/pkg/core"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete OBJ_ID...",
		Short: "Delete objects from the store",
		Long: `Mark the given objects deleted. All versions stay in the store but
the objects no longer appear in current-version queries.

Deletion is all-or-nothing per invocation: if any id does not exist,
nothing is deleted.`,
		Example: `  # Prompt before deleting
  chronicle delete 5f1b2c3d

  # Delete several objects without prompting
  chronicle delete --yes 5f1b2c3d 7a8e9f00`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runDelete(cmd *cobra.Command, objIDs []string, yes bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if !yes {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Delete %d object(s)? [y/N] ", len(objIDs))
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			return nil
		}
	}

	deleted, err := cmdCtx.Store.Delete(cmd.Context(), objIDs...)
	if errors.Is(err, core.ErrNotFound) {
		// A missing object aborts the batch but is not fatal to the CLI.
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v, nothing deleted\n", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d object(s)\n", len(deleted))
	return nil
}
