package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/repograph/configs"
	"github.com/Aman-CERP/repograph/internal/output"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a repograph.yaml template",
		Long: `Write a commented repograph.yaml overlay to the current directory.
Environment variables always override values in the overlay.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(os.Stderr)

			const path = "repograph.yaml"
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := os.WriteFile(path, []byte(configs.OverlayTemplate), 0o644); err != nil {
				return err
			}
			out.Successf("wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing repograph.yaml")
	return cmd
}
