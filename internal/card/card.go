package card

import (
	"fmt"
	"strings"
)

// Color is the mana color of a card
type Color string

const (
	White      Color = "white"
	Blue       Color = "blue"
	Black      Color = "black"
	Red        Color = "red"
	Green      Color = "green"
	Colorless  Color = "colorless"
	Multicolor Color = "multicolor"
)

// Subtype is the card type line (creature, instant, ...)
type Subtype string

const (
	Creature     Subtype = "creature"
	Instant      Subtype = "instant"
	Sorcery      Subtype = "sorcery"
	Artifact     Subtype = "artifact"
	Enchantment  Subtype = "enchantment"
	Planeswalker Subtype = "planeswalker"
	Land         Subtype = "land"
)

// Rarity is the printed rarity of a card
type Rarity string

const (
	Common     Rarity = "common"
	Uncommon   Rarity = "uncommon"
	Rare       Rarity = "rare"
	MythicRare Rarity = "mythicRare"
)

// Card represents a trading card owned by one user
type Card struct {
	User               string   `json:"user"`                         // Owning collection
	ID                 int      `json:"id"`                           // Unique within User
	Name               string   `json:"name"`                         // Printed name
	ManaCost           float64  `json:"manaCost"`                     // Converted mana cost
	Color              Color    `json:"color"`                        // Mana color
	Subtype            Subtype  `json:"subtype"`                      // Card type
	Rarity             Rarity   `json:"rarity"`                       // Printed rarity
	Rules              string   `json:"rules"`                        // Rules text
	Value              float64  `json:"value"`                        // Market value estimate
	Loyalty            *int     `json:"loyalty,omitempty"`            // Planeswalkers only
	StrengthResistance *float64 `json:"strengthResistance,omitempty"` // Creatures only
}

// Option sets one of the optional card attributes
type Option func(*Card)

// WithLoyalty sets the loyalty counter of a planeswalker
func WithLoyalty(loyalty int) Option {
	return func(c *Card) {
		c.Loyalty = &loyalty
	}
}

// WithStrengthResistance sets the combat stats of a creature
func WithStrengthResistance(sr float64) Option {
	return func(c *Card) {
		c.StrengthResistance = &sr
	}
}

// New builds a Card from its mandatory fields plus any optional ones.
// The result is not validated; see the validator package.
func New(user string, id int, name string, manaCost float64, color Color, subtype Subtype,
	rarity Rarity, rules string, value float64, opts ...Option) Card {
	c := Card{
		User:     user,
		ID:       id,
		Name:     name,
		ManaCost: manaCost,
		Color:    color,
		Subtype:  subtype,
		Rarity:   rarity,
		Rules:    rules,
		Value:    value,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Clone returns a deep copy, so optional pointers are not shared
func (c Card) Clone() Card {
	out := c
	if c.Loyalty != nil {
		l := *c.Loyalty
		out.Loyalty = &l
	}
	if c.StrengthResistance != nil {
		sr := *c.StrengthResistance
		out.StrengthResistance = &sr
	}
	return out
}

// Colors returns the color vocabulary in display order
func Colors() []Color {
	return []Color{White, Blue, Black, Red, Green, Colorless, Multicolor}
}

// Subtypes returns the subtype vocabulary in display order
func Subtypes() []Subtype {
	return []Subtype{Creature, Instant, Sorcery, Artifact, Enchantment, Planeswalker, Land}
}

// Rarities returns the rarity vocabulary in display order
func Rarities() []Rarity {
	return []Rarity{Common, Uncommon, Rare, MythicRare}
}

func (c Color) Valid() bool {
	for _, v := range Colors() {
		if c == v {
			return true
		}
	}
	return false
}

func (s Subtype) Valid() bool {
	for _, v := range Subtypes() {
		if s == v {
			return true
		}
	}
	return false
}

func (r Rarity) Valid() bool {
	for _, v := range Rarities() {
		if r == v {
			return true
		}
	}
	return false
}

// ParseColor maps raw text onto the color vocabulary
func ParseColor(raw string) (Color, error) {
	c := Color(strings.TrimSpace(raw))
	if !c.Valid() {
		return "", fmt.Errorf("invalid color %q (choices: %s)", raw, joinChoices(Colors()))
	}
	return c, nil
}

// ParseSubtype maps raw text onto the subtype vocabulary
func ParseSubtype(raw string) (Subtype, error) {
	s := Subtype(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", fmt.Errorf("invalid type %q (choices: %s)", raw, joinChoices(Subtypes()))
	}
	return s, nil
}

// ParseRarity maps raw text onto the rarity vocabulary
func ParseRarity(raw string) (Rarity, error) {
	r := Rarity(strings.TrimSpace(raw))
	if !r.Valid() {
		return "", fmt.Errorf("invalid rarity %q (choices: %s)", raw, joinChoices(Rarities()))
	}
	return r, nil
}

func joinChoices[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
