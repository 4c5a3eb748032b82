package cmd

import (
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete",
	Aliases: []string{"rm"},
	Short:   "Remove a card from a user's collection",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, id := keyFromFlags(cmd)
		cl, err := newClient()
		if err != nil {
			return err
		}
		if err := cl.Delete(commandContext(cmd), user, id); err != nil {
			return failure(cmd, err)
		}
		displaySuccess(cmd.OutOrStdout(), "Card %d removed from %s's collection", id, user)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(deleteCmd)
	addKeyFlags(deleteCmd)
}
