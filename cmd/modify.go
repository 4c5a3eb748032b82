package cmd

import (
	"strings"

	"github.com/arcanaland/grimoire/internal/card"
	"github.com/spf13/cobra"
)

var modifyCmd = &cobra.Command{
	Use:   "modify",
	Short: "Change a single attribute of a card",
	Long: `Modify sets one attribute of a stored card. The edited card must still be
valid; for example a planeswalker cannot lose its loyalty.

Fields: ` + strings.Join(card.Fields(), ", ") + `

Example:
  grimoire modify --user ana --id 1 --field value --value 175`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, id := keyFromFlags(cmd)
		field, _ := cmd.Flags().GetString("field")
		val, _ := cmd.Flags().GetString("value")
		cl, err := newClient()
		if err != nil {
			return err
		}
		c, err := cl.Modify(commandContext(cmd), user, id, field, val)
		if err != nil {
			return failure(cmd, err)
		}
		displaySuccess(cmd.OutOrStdout(), "Card %d: %s updated", id, field)
		displayCard(cmd.OutOrStdout(), c)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(modifyCmd)
	addKeyFlags(modifyCmd)
	modifyCmd.Flags().String("field", "", "attribute to change")
	modifyCmd.Flags().String("value", "", "new value; empty clears loyalty or strengthResistance")
	_ = modifyCmd.MarkFlagRequired("field")
}
