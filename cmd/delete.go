package cmd

import (
	"context"
	"fmt"

	"github.com/andresmejia3/playbook/internal/utils"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <workflow_id>",
	Short: "Delete a stored workflow",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDelete(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, id string) {
	db := connectStore(cmd.Context())
	defer db.Close(context.Background())

	if err := db.Delete(cmd.Context(), id); err != nil {
		utils.Die("Failed to delete workflow", err, nil)
	}

	fmt.Printf("🗑️  Workflow %s deleted\n", id)
}
