package validator

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/arcanaland/grimoire/internal/card"
)

// Violation names one broken card rule
type Violation string

const (
	ViolationUser               Violation = "user"
	ViolationID                 Violation = "id"
	ViolationName               Violation = "name"
	ViolationManaCost           Violation = "manaCost"
	ViolationColor              Violation = "color"
	ViolationSubtype            Violation = "subtype"
	ViolationRarity             Violation = "rarity"
	ViolationRules              Violation = "rules"
	ViolationValue              Violation = "value"
	ViolationLoyalty            Violation = "loyalty"
	ViolationStrengthResistance Violation = "strengthResistance"
)

// ErrInvalid matches every *ValidationError via errors.Is
var ErrInvalid = errors.New("validator: invalid card")

// Failure is one violation with its human readable message
type Failure struct {
	Violation Violation
	Message   string
}

type ValidationResults struct {
	Errors []Failure
}

// Err returns nil when the card passed every rule
func (r ValidationResults) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return &ValidationError{Failures: r.Errors}
}

// ValidationError carries every failed rule of a single card
type ValidationError struct {
	Failures []Failure
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Message
	}
	return "invalid card: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Has reports whether v is among the failures
func (e *ValidationError) Has(v Violation) bool {
	for _, f := range e.Failures {
		if f.Violation == v {
			return true
		}
	}
	return false
}

type Validator struct {
	Card    card.Card
	Results ValidationResults
}

func NewValidator(c card.Card) *Validator {
	return &Validator{
		Card:    c,
		Results: ValidationResults{},
	}
}

// Validate runs every rule and collects all failures. It never mutates the card.
func (v *Validator) Validate() ValidationResults {
	v.validateKey()
	v.validateText()
	v.validateNumbers()
	v.validateVocabulary()
	v.validateSubtypeFields()
	return v.Results
}

func (v *Validator) fail(violation Violation, format string, args ...any) {
	v.Results.Errors = append(v.Results.Errors, Failure{
		Violation: violation,
		Message:   fmt.Sprintf(format, args...),
	})
}

func (v *Validator) validateKey() {
	if msg := userProblem(v.Card.User); msg != "" {
		v.fail(ViolationUser, "%s", msg)
	}
	if v.Card.ID < 0 {
		v.fail(ViolationID, "id must be a non-negative integer, got %d", v.Card.ID)
	}
}

func (v *Validator) validateText() {
	if strings.TrimSpace(v.Card.Name) == "" {
		v.fail(ViolationName, "name is required")
	}
	if strings.TrimSpace(v.Card.Rules) == "" {
		v.fail(ViolationRules, "rules text is required")
	}
}

func (v *Validator) validateNumbers() {
	if !nonNegative(v.Card.ManaCost) {
		v.fail(ViolationManaCost, "mana cost must be a non-negative number, got %v", v.Card.ManaCost)
	}
	if !nonNegative(v.Card.Value) {
		v.fail(ViolationValue, "value must be a non-negative number, got %v", v.Card.Value)
	}
}

func (v *Validator) validateVocabulary() {
	if !v.Card.Color.Valid() {
		v.fail(ViolationColor, "color must be a valid color, got %q", v.Card.Color)
	}
	if !v.Card.Subtype.Valid() {
		v.fail(ViolationSubtype, "type must be a valid type, got %q", v.Card.Subtype)
	}
	if !v.Card.Rarity.Valid() {
		v.fail(ViolationRarity, "rarity must be a valid rarity, got %q", v.Card.Rarity)
	}
}

// validateSubtypeFields checks presence and absence of the optional fields
func (v *Validator) validateSubtypeFields() {
	c := v.Card
	if c.Subtype == card.Planeswalker {
		if c.Loyalty == nil {
			v.fail(ViolationLoyalty, "planeswalker type must have loyalty")
		} else if *c.Loyalty < 0 {
			v.fail(ViolationLoyalty, "loyalty must be non-negative, got %d", *c.Loyalty)
		}
	} else if c.Loyalty != nil {
		v.fail(ViolationLoyalty, "loyalty is only for planeswalker type")
	}

	if c.Subtype == card.Creature {
		if c.StrengthResistance == nil {
			v.fail(ViolationStrengthResistance, "creature type must have strength/resistance")
		} else if !nonNegative(*c.StrengthResistance) {
			v.fail(ViolationStrengthResistance, "strength/resistance must be a non-negative number, got %v", *c.StrengthResistance)
		}
	} else if c.StrengthResistance != nil {
		v.fail(ViolationStrengthResistance, "strength/resistance is only for creature type")
	}
}

// Check validates a full card and returns nil or a *ValidationError
func Check(c card.Card) error {
	return NewValidator(c).Validate().Err()
}

// CheckUser validates a collection owner on its own (showAll)
func CheckUser(user string) error {
	if msg := userProblem(user); msg != "" {
		return &ValidationError{Failures: []Failure{{Violation: ViolationUser, Message: msg}}}
	}
	return nil
}

// CheckKey validates the (user, id) pair used by delete, show and modify
func CheckKey(user string, id int) error {
	var failures []Failure
	if msg := userProblem(user); msg != "" {
		failures = append(failures, Failure{Violation: ViolationUser, Message: msg})
	}
	if id < 0 {
		failures = append(failures, Failure{Violation: ViolationID, Message: fmt.Sprintf("id must be a non-negative integer, got %d", id)})
	}
	return ValidationResults{Errors: failures}.Err()
}

// userProblem returns "" for a user usable as a single directory name
func userProblem(user string) string {
	trimmed := strings.TrimSpace(user)
	switch {
	case trimmed == "":
		return "user is required"
	case trimmed != user:
		return "user must not have surrounding whitespace"
	case strings.ContainsAny(user, `/\`) || strings.ContainsRune(user, 0):
		return fmt.Sprintf("user %q must not contain path separators", user)
	case strings.HasPrefix(user, "."):
		return fmt.Sprintf("user %q must not start with a dot", user)
	}
	return ""
}

func nonNegative(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}
