package cmd

import (
	"context"
	"fmt"

	"github.com/andresmejia3/playbook/internal/utils"
	"github.com/andresmejia3/playbook/internal/workflow"
	"github.com/spf13/cobra"
)

var exportOpts Options

var exportCmd = &cobra.Command{
	Use:   "export <workflow_id>",
	Short: "Export a stored workflow to a file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runExport(cmd, args[0], exportOpts)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOpts.OutputPath, "output", "o", "", "Output file path")
	exportCmd.Flags().StringVarP(&exportOpts.Format, "format", "f", "json", "Output format (json or yaml)")

	exportCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, id string, opts Options) {
	db := connectStore(cmd.Context())
	defer db.Close(context.Background())

	def, err := db.Get(cmd.Context(), id)
	if err != nil {
		utils.Die("Failed to load workflow", err, nil)
	}

	if err := workflow.WriteFile(opts.OutputPath, def, opts.Format); err != nil {
		utils.Die("Failed to write workflow file", err, nil)
	}

	fmt.Printf("💾 Workflow %s exported to %s\n", id, opts.OutputPath)
}
