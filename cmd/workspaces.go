package cmd

import (
	"fmt"
	"strconv"

	"finchat/api"

	"github.com/spf13/cobra"
)

var workspacesCmd = &cobra.Command{
	Use:   "workspaces",
	Short: "Manage collaboration workspaces",
}

var workspacesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		workspaces, err := app.API.ListWorkspaces(cmd.Context())
		if err != nil {
			return err
		}
		if len(workspaces) == 0 {
			fmt.Println("No workspaces.")
			return nil
		}
		selected := app.Sessions.SelectedWorkspace()
		for _, ws := range workspaces {
			marker := "  "
			if strconv.FormatInt(ws.ID, 10) == selected {
				marker = "* "
			}
			fmt.Printf("%s%d  %s", marker, ws.ID, ws.Name)
			if ws.Description != "" {
				fmt.Printf("  (%s)", ws.Description)
			}
			fmt.Println()
		}
		return nil
	},
}

var workspacesCreateCmd = &cobra.Command{
	Use:   "create <name> [description]",
	Short: "Create a workspace",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		req := api.WorkspaceRequest{Name: args[0]}
		if len(args) == 2 {
			req.Description = args[1]
		}
		ws, err := app.API.CreateWorkspace(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Printf("Created workspace %d (%s)\n", ws.ID, ws.Name)
		return nil
	},
}

var workspacesRenameCmd = &cobra.Command{
	Use:   "rename <id> <name> [description]",
	Short: "Rename or re-describe a workspace",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid workspace id %q", args[0])
		}
		req := api.WorkspaceRequest{Name: args[1]}
		if len(args) == 3 {
			req.Description = args[2]
		}
		ws, err := app.API.UpdateWorkspace(cmd.Context(), id, req)
		if err != nil {
			return err
		}
		fmt.Printf("Updated workspace %d (%s)\n", ws.ID, ws.Name)
		return nil
	},
}

var workspacesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid workspace id %q", args[0])
		}
		if err := app.API.DeleteWorkspace(cmd.Context(), id); err != nil {
			return err
		}
		if app.Sessions.SelectedWorkspace() == args[0] {
			_ = app.Sessions.SetSelectedWorkspace("")
		}
		fmt.Printf("Deleted workspace %d\n", id)
		return nil
	},
}

var workspacesSelectCmd = &cobra.Command{
	Use:   "select [id]",
	Short: "Remember a workspace as the default scope (no id clears it)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			if err := app.Sessions.SetSelectedWorkspace(""); err != nil {
				return err
			}
			fmt.Println("Cleared workspace selection.")
			return nil
		}
		if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
			return fmt.Errorf("invalid workspace id %q", args[0])
		}
		if err := app.Sessions.SetSelectedWorkspace(args[0]); err != nil {
			return err
		}
		fmt.Printf("Selected workspace %s\n", args[0])
		return nil
	},
}

var workspacesAddMemberCmd = &cobra.Command{
	Use:   "add-member <workspace-id> <user-id>",
	Short: "Add a user to a workspace",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		wsID, userID, err := parseIDPair(args[0], args[1])
		if err != nil {
			return err
		}
		if err := app.API.AddMember(cmd.Context(), wsID, userID); err != nil {
			return err
		}
		fmt.Printf("Added user %d to workspace %d\n", userID, wsID)
		return nil
	},
}

var workspacesRemoveMemberCmd = &cobra.Command{
	Use:   "remove-member <workspace-id> <user-id>",
	Short: "Remove a user from a workspace",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		wsID, userID, err := parseIDPair(args[0], args[1])
		if err != nil {
			return err
		}
		if err := app.API.RemoveMember(cmd.Context(), wsID, userID); err != nil {
			return err
		}
		fmt.Printf("Removed user %d from workspace %d\n", userID, wsID)
		return nil
	},
}

func parseIDPair(a, b string) (int64, int64, error) {
	first, err := strconv.ParseInt(a, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid id %q", a)
	}
	second, err := strconv.ParseInt(b, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid id %q", b)
	}
	return first, second, nil
}

func init() {
	workspacesCmd.AddCommand(
		workspacesListCmd,
		workspacesCreateCmd,
		workspacesRenameCmd,
		workspacesDeleteCmd,
		workspacesSelectCmd,
		workspacesAddMemberCmd,
		workspacesRemoveMemberCmd,
	)
	rootCmd.AddCommand(workspacesCmd)
}
