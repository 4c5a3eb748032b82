package cmd

import (
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Replace a card in a user's collection",
	Long: `Update replaces every attribute of an existing card. The card must
already be in the user's collection.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cardFromFlags(cmd)
		if err != nil {
			return failure(cmd, err)
		}
		cl, err := newClient()
		if err != nil {
			return err
		}
		if err := cl.Update(commandContext(cmd), c); err != nil {
			return failure(cmd, err)
		}
		displaySuccess(cmd.OutOrStdout(), "Card %d updated in %s's collection", c.ID, c.User)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(updateCmd)
	addCardFlags(updateCmd)
}
