package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/andresmejia3/playbook/internal/utils"
	"github.com/spf13/cobra"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop all stored workflows",
	Long:  "Drops the workflow tables entirely. The schema is recreated on the next command that touches the database.",
	Run: func(cmd *cobra.Command, args []string) {
		if !resetForce {
			reader := bufio.NewReader(os.Stdin)
			if !confirm(reader, "⚠️  Are you sure you want to DROP all workflow tables?") {
				fmt.Println("Aborted.")
				return
			}
		}

		db := connectStore(cmd.Context())
		defer db.Close(context.Background())

		fmt.Println("🗑️  Clearing Database...")
		if err := db.Reset(cmd.Context()); err != nil {
			utils.Die("Failed to reset database", err, nil)
		}
		fmt.Println("✨ Reset Complete.")
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}
