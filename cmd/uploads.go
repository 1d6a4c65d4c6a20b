package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var uploadDescription string

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "Manage uploaded documents",
}

var uploadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploads (workspace-scoped with --workspace)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		uploads, err := app.API.ListUploads(cmd.Context(), resolveWorkspace())
		if err != nil {
			return err
		}
		if len(uploads) == 0 {
			fmt.Println("No uploads.")
			return nil
		}
		for _, u := range uploads {
			fmt.Printf("%d  %s", u.ID, u.Filename)
			if u.Description != "" {
				fmt.Printf("  (%s)", u.Description)
			}
			fmt.Println()
		}
		return nil
	},
}

var uploadsAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Upload a document for analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		upload, err := app.API.UploadFile(cmd.Context(), args[0], uploadDescription, resolveWorkspace())
		if err != nil {
			return err
		}
		fmt.Printf("Uploaded %s as %d\n", upload.Filename, upload.ID)
		return nil
	},
}

var uploadsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an upload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid upload id %q", args[0])
		}
		if err := app.API.DeleteUpload(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted upload %d\n", id)
		return nil
	},
}

var uploadsURLCmd = &cobra.Command{
	Use:   "url <id>",
	Short: "Print an upload's download URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid upload id %q", args[0])
		}
		url, err := app.API.GetDownloadURL(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Println(url)
		return nil
	},
}

func init() {
	uploadsAddCmd.Flags().StringVarP(&uploadDescription, "description", "d", "", "Description stored with the upload")
	uploadsCmd.AddCommand(uploadsListCmd, uploadsAddCmd, uploadsDeleteCmd, uploadsURLCmd)
	rootCmd.AddCommand(uploadsCmd)
}
