package cmd

import (
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a card to a user's collection",
	Long: `Add validates the card locally and stores it on the server. It fails if
the user already owns a card with the same id.

Example:
  grimoire add --user ana --id 1 --name Cazador --manaCost 16 --color multicolor \
    --type creature --rarity mythicRare --rules "No puede atacar" --value 150 --strRes 3`,
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
		if err := cl.Add(commandContext(cmd), c); err != nil {
			return failure(cmd, err)
		}
		displaySuccess(cmd.OutOrStdout(), "Card %d added to %s's collection", c.ID, c.User)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(addCmd)
	addCardFlags(addCmd)
}
