package card

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrUnknownField is returned by Set for a name that is not a card attribute.
	ErrUnknownField = errors.New("card: unknown field")
	// ErrReadOnlyField is returned by Set for the key attributes user and id.
	ErrReadOnlyField = errors.New("card: read-only field")
)

// Fields lists the attribute names accepted by Set, in JSON spelling.
func Fields() []string {
	return []string{"name", "manaCost", "color", "subtype", "rarity", "rules", "value", "loyalty", "strengthResistance"}
}

// Set assigns a single attribute from its text form. An empty value clears
// loyalty and strengthResistance. The card is not revalidated here.
func (c *Card) Set(field, value string) error {
	switch field {
	case "user", "id":
		return fmt.Errorf("%w: %s", ErrReadOnlyField, field)
	case "name":
		c.Name = value
	case "rules":
		c.Rules = value
	case "manaCost":
		f, err := parseFloat(field, value)
		if err != nil {
			return err
		}
		c.ManaCost = f
	case "value":
		f, err := parseFloat(field, value)
		if err != nil {
			return err
		}
		c.Value = f
	case "color":
		v, err := ParseColor(value)
		if err != nil {
			return err
		}
		c.Color = v
	case "subtype":
		v, err := ParseSubtype(value)
		if err != nil {
			return err
		}
		c.Subtype = v
	case "rarity":
		v, err := ParseRarity(value)
		if err != nil {
			return err
		}
		c.Rarity = v
	case "loyalty":
		if strings.TrimSpace(value) == "" {
			c.Loyalty = nil
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("card: loyalty must be an integer: %q", value)
		}
		c.Loyalty = &n
	case "strengthResistance":
		if strings.TrimSpace(value) == "" {
			c.StrengthResistance = nil
			return nil
		}
		f, err := parseFloat(field, value)
		if err != nil {
			return err
		}
		c.StrengthResistance = &f
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

func parseFloat(field, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("card: %s must be a number: %q", field, value)
	}
	return f, nil
}
