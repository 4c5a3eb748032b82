package cmd

import (
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display a single card",
	Long: `Show prints every attribute of one card with a swatch of its mana color.

Example:
  grimoire show --user ana --id 1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, id := keyFromFlags(cmd)
		cl, err := newClient()
		if err != nil {
			return err
		}
		c, err := cl.Show(commandContext(cmd), user, id)
		if err != nil {
			return failure(cmd, err)
		}
		displayCard(cmd.OutOrStdout(), c)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(showCmd)
	addKeyFlags(showCmd)
}
