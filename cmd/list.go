package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/playbook/internal/utils"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored workflows",
	Run: func(cmd *cobra.Command, args []string) {
		runList(cmd)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command) {
	db := connectStore(cmd.Context())
	defer db.Close(context.Background())

	workflows, err := db.List(cmd.Context())
	if err != nil {
		utils.Die("Failed to list workflows", err, nil)
	}

	if len(workflows) == 0 {
		fmt.Println("No workflows found in database.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSOURCE\tSCREENS\tACTIONS\tCREATED")
	fmt.Fprintln(w, "--\t----\t------\t-------\t-------\t-------")

	for _, wf := range workflows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			wf.ID, wf.Name, wf.SourceLabel, wf.ScreenCount, wf.ActionCount,
			wf.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}
