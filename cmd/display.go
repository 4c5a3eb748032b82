package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/term"

	"github.com/arcanaland/grimoire/internal/card"

	colorize "github.com/fatih/color"
)

// manaHex is the swatch shown next to each mana color
var manaHex = map[card.Color]string{
	card.White:     "#f8f6d8",
	card.Blue:      "#0e68ab",
	card.Black:     "#5c4d4f",
	card.Red:       "#d3202a",
	card.Green:     "#00733e",
	card.Colorless: "#b8b3ab",
}

var rarityPainter = map[card.Rarity]func(format string, a ...interface{}) string{
	card.Common:     colorize.WhiteString,
	card.Uncommon:   colorize.HiCyanString,
	card.Rare:       colorize.YellowString,
	card.MythicRare: colorize.HiRedString,
}

func label(s string) string {
	return colorize.CyanString("%-12s", s+":")
}

func value(format string, a ...interface{}) string {
	return colorize.HiWhiteString(format, a...)
}

// displayCard prints a card with its mana swatch.
func displayCard(w io.Writer, c card.Card) {
	width := terminalWidth()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s%s\n", label("Card"), value("%s", c.Name))
	fmt.Fprintf(w, "  %s%s\n", label("Owner"), value("%s #%d", c.User, c.ID))
	fmt.Fprintf(w, "  %s%s %s\n", label("Color"), manaSwatch(c.Color), value("%s", c.Color))
	fmt.Fprintf(w, "  %s%s\n", label("Mana cost"), value("%s", formatNumber(c.ManaCost)))
	fmt.Fprintf(w, "  %s%s\n", label("Type"), value("%s", c.Subtype))

	paint, ok := rarityPainter[c.Rarity]
	if !ok {
		paint = colorize.HiWhiteString
	}
	fmt.Fprintf(w, "  %s%s\n", label("Rarity"), paint("%s", c.Rarity))
	fmt.Fprintf(w, "  %s%s\n", label("Value"), value("%s", formatNumber(c.Value)))

	if c.Loyalty != nil {
		fmt.Fprintf(w, "  %s%s\n", label("Loyalty"), value("%d", *c.Loyalty))
	}
	if c.StrengthResistance != nil {
		fmt.Fprintf(w, "  %s%s\n", label("Str/Res"), value("%s", formatNumber(*c.StrengthResistance)))
	}

	fmt.Fprintf(w, "  %s\n", label("Rules"))
	for _, line := range wrapText(c.Rules, width-6) {
		fmt.Fprintf(w, "    %s\n", line)
	}
}

// displayCards prints a listing separated by rules sized to the terminal.
func displayCards(w io.Writer, user string, cards []card.Card) {
	if len(cards) == 0 {
		fmt.Fprintf(w, "No cards in %s's collection.\n", user)
		return
	}
	sep := colorize.HiBlackString(strings.Repeat("─", min(terminalWidth(), 60)))
	for i, c := range cards {
		if i > 0 {
			fmt.Fprintln(w, sep)
		}
		displayCard(w, c)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", colorize.CyanString("Total:"), value("%d card(s)", len(cards)))
}

func displaySuccess(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintln(w, colorize.GreenString("✔ ")+fmt.Sprintf(format, a...))
}

// displayError renders a failure in red on stderr-like writers
func displayError(w io.Writer, err error) {
	fmt.Fprintln(w, colorize.RedString("✘ %v", err))
}

// manaSwatch renders a two-cell truecolor block. Multicolor cards get a
// blend across the five colored manas.
func manaSwatch(c card.Color) string {
	if colorize.NoColor {
		return "[" + string(c) + "]"
	}
	if c == card.Multicolor {
		var b strings.Builder
		stops := []card.Color{card.White, card.Blue, card.Black, card.Red, card.Green}
		for i := 0; i < len(stops)-1; i++ {
			from := mustHex(manaHex[stops[i]])
			to := mustHex(manaHex[stops[i+1]])
			b.WriteString(block(from.BlendLab(to, 0.5)))
		}
		return b.String()
	}
	hex, ok := manaHex[c]
	if !ok {
		return "  "
	}
	col := mustHex(hex)
	return block(col) + block(averageColor(col, colorful.Color{R: 1, G: 1, B: 1}))
}

func block(c colorful.Color) string {
	r, g, b := c.Clamped().RGB255()
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm█\x1b[0m", r, g, b)
}

func mustHex(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}
	}
	return c
}

// averageColor calculates the average of multiple colors
func averageColor(colors ...colorful.Color) colorful.Color {
	var r, g, b float64
	for _, c := range colors {
		r += c.R
		g += c.G
		b += c.B
	}
	count := float64(len(colors))
	return colorful.Color{R: r / count, G: g / count, B: b / count}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// wrapText wraps text at word boundaries
func wrapText(text string, width int) []string {
	if width < 10 {
		width = 40
	}

	var result []string
	var currentLine string
	for _, word := range strings.Fields(text) {
		if len(currentLine) == 0 {
			currentLine = word
		} else if len(currentLine)+1+len(word) <= width {
			currentLine += " " + word
		} else {
			result = append(result, currentLine)
			currentLine = word
		}
	}
	if currentLine != "" {
		result = append(result, currentLine)
	}
	if len(result) == 0 {
		return []string{""}
	}
	return result
}
