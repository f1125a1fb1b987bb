package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/playbook/internal/utils"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <workflow_id>",
	Short: "Show the screens and actions of a stored workflow",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runShow(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, id string) {
	db := connectStore(cmd.Context())
	defer db.Close(context.Background())

	def, err := db.Get(cmd.Context(), id)
	if err != nil {
		utils.Die("Failed to load workflow", err, nil)
	}

	fmt.Printf("📋 %s (%s)\n", def.Name, def.ID)
	if def.Description != "" {
		fmt.Printf("   %s\n", def.Description)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SCREEN\tNAME\tELEMENTS\tFIRST SEEN")
	for _, s := range def.Screens {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1fs\n", s.ID, s.Name, len(s.Elements), s.Timestamp)
	}
	w.Flush()
	fmt.Println()

	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "#\tTIME\tACTION\tSCREEN\tVALUE\tNEXT\tCONF")
	for i, a := range def.Actions {
		value := a.Value
		if len(value) > 24 {
			value = value[:24] + "..."
		}
		fmt.Fprintf(w, "%d\t%.1fs\t%s\t%s\t%s\t%s\t%.2f\n",
			i+1, a.Timestamp, a.Type, a.ScreenID, value, a.NextScreenID, a.Confidence)
	}
	w.Flush()
}
