package cmd

import (
	"strings"

	"github.com/arcanaland/grimoire/internal/card"
	"github.com/spf13/cobra"
)

// addCardFlags registers the flags shared by add and update.
func addCardFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("user", "", "owner of the collection")
	f.Int("id", 0, "card id, unique within the user's collection")
	f.String("name", "", "card name")
	f.Float64("manaCost", 0, "converted mana cost")
	f.String("color", "", "mana color ("+choices(card.Colors())+")")
	f.String("type", "", "card type ("+choices(card.Subtypes())+")")
	f.String("rarity", "", "rarity ("+choices(card.Rarities())+")")
	f.String("rules", "", "rules text")
	f.Float64("value", 0, "market value")
	f.Int("loyalty", 0, "loyalty, planeswalkers only")
	f.Float64("strRes", 0, "strength/resistance, creatures only")

	for _, name := range []string{"user", "id", "name", "manaCost", "color", "type", "rarity", "rules", "value"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

// cardFromFlags builds a card from the flags registered by addCardFlags.
// Choice flags are checked against their vocabulary here; everything else
// is left to the validator.
func cardFromFlags(cmd *cobra.Command) (card.Card, error) {
	f := cmd.Flags()
	user, _ := f.GetString("user")
	id, _ := f.GetInt("id")
	name, _ := f.GetString("name")
	manaCost, _ := f.GetFloat64("manaCost")
	rules, _ := f.GetString("rules")
	value, _ := f.GetFloat64("value")

	rawColor, _ := f.GetString("color")
	color, err := card.ParseColor(rawColor)
	if err != nil {
		return card.Card{}, err
	}
	rawType, _ := f.GetString("type")
	subtype, err := card.ParseSubtype(rawType)
	if err != nil {
		return card.Card{}, err
	}
	rawRarity, _ := f.GetString("rarity")
	rarity, err := card.ParseRarity(rawRarity)
	if err != nil {
		return card.Card{}, err
	}

	var opts []card.Option
	if f.Changed("loyalty") {
		loyalty, _ := f.GetInt("loyalty")
		opts = append(opts, card.WithLoyalty(loyalty))
	}
	if f.Changed("strRes") {
		strRes, _ := f.GetFloat64("strRes")
		opts = append(opts, card.WithStrengthResistance(strRes))
	}
	return card.New(user, id, name, manaCost, color, subtype, rarity, rules, value, opts...), nil
}

// addKeyFlags registers --user and --id for the key-only commands.
func addKeyFlags(cmd *cobra.Command) {
	cmd.Flags().String("user", "", "owner of the collection")
	cmd.Flags().Int("id", 0, "card id")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("id")
}

func keyFromFlags(cmd *cobra.Command) (string, int) {
	user, _ := cmd.Flags().GetString("user")
	id, _ := cmd.Flags().GetInt("id")
	return user, id
}

func choices[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// failure renders err in red and returns an error main will not print again
func failure(cmd *cobra.Command, err error) error {
	displayError(cmd.ErrOrStderr(), err)
	return reportedError{command: cmd.Name()}
}
