package cmd

import (
	"github.com/spf13/cobra"
)

var showAllCmd = &cobra.Command{
	Use:     "showAll",
	Aliases: []string{"show-all", "ls"},
	Short:   "List every card in a user's collection",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		cl, err := newClient()
		if err != nil {
			return err
		}
		cards, err := cl.ShowAll(commandContext(cmd), user)
		if err != nil {
			return failure(cmd, err)
		}
		displayCards(cmd.OutOrStdout(), user, cards)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(showAllCmd)
	showAllCmd.Flags().String("user", "", "owner of the collection")
	_ = showAllCmd.MarkFlagRequired("user")
}
