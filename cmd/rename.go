package cmd

import (
	"context"
	"fmt"

	"github.com/andresmejia3/playbook/internal/utils"
	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename <workflow_id> <new_name>",
	Short: "Rename a stored workflow",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runRename(cmd, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(renameCmd)
}

func runRename(cmd *cobra.Command, id, name string) {
	db := connectStore(cmd.Context())
	defer db.Close(context.Background())

	if err := db.Rename(cmd.Context(), id, name); err != nil {
		utils.Die("Failed to rename workflow", err, nil)
	}

	fmt.Printf("✅ Workflow %s renamed to '%s'\n", id, name)
}
