package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrQuantityInvalid is returned when a line quantity is below one.
	ErrQuantityInvalid = errors.New("quantity must be at least 1")
	// ErrOptionRequired is returned when a variation axis has no selected value.
	ErrOptionRequired = errors.New("option selection required")
	// ErrUnknownOption is returned when a selection references an axis or value the product does not carry.
	ErrUnknownOption = errors.New("unknown option")
	// ErrUnknownAddon is returned when a selection references an add-on group or option the product does not carry.
	ErrUnknownAddon = errors.New("unknown add-on")
	// ErrAddonSelectionRequired is returned when a required add-on group has fewer selections than its minimum.
	ErrAddonSelectionRequired = errors.New("add-on selection required")
	// ErrAddonLimitExceeded is returned when an add-on group has more selections than its maximum.
	ErrAddonLimitExceeded = errors.New("add-on selection limit exceeded")
	// ErrCustomTextNotAllowed is returned when free text is supplied for an add-on option that does not accept it.
	ErrCustomTextNotAllowed = errors.New("custom text not allowed")
	// ErrCustomPriceNotAllowed is returned when a custom unit price is supplied for a product without the override flag.
	ErrCustomPriceNotAllowed = errors.New("custom price not allowed")
	// ErrNegativeAmount is returned when a supplied amount is below zero.
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// OptionValue is one selectable value on a variation axis.
type OptionValue struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Adjustment Money  `json:"adjustment"`
}

// Option is a variation axis. Every axis requires exactly one selected value.
type Option struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Values []OptionValue `json:"values"`
}

// VariantValue pins one axis of a pre-priced variant to a concrete value.
type VariantValue struct {
	OptionID string `json:"optionId"`
	ValueID  string `json:"valueId"`
}

// Variant carries an authoritative price for one full combination of values.
// A matched variant price replaces the base price and every adjustment.
type Variant struct {
	ID     string         `json:"id"`
	Price  Money          `json:"price"`
	Values []VariantValue `json:"values"`
}

// SubOption is a nested refinement under an add-on option, priced on its own.
type SubOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price Money  `json:"price"`
}

// AddonOption is one pickable extra inside an add-on group.
type AddonOption struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Price            Money       `json:"price"`
	AllowsCustomText bool        `json:"allowsCustomText,omitempty"`
	SubOptions       []SubOption `json:"subOptions,omitempty"`
}

// AddonGroup bundles add-on options with selection constraints.
// MinSelections is only enforced when Required is set; MaxSelections of zero
// means unlimited.
type AddonGroup struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Required      bool          `json:"required,omitempty"`
	MinSelections int           `json:"minSelections,omitempty"`
	MaxSelections int           `json:"maxSelections,omitempty"`
	Options       []AddonOption `json:"options"`
}

// PriceSpec is the pricing-relevant slice of a catalog product.
type PriceSpec struct {
	BasePrice         Money        `json:"basePrice"`
	AllowsCustomPrice bool         `json:"allowsCustomPrice,omitempty"`
	Options           []Option     `json:"options,omitempty"`
	Variants          []Variant    `json:"variants,omitempty"`
	AddonGroups       []AddonGroup `json:"addonGroups,omitempty"`
}

// AddonSelection picks one add-on option, optionally with free text and
// nested sub-option choices. Slot distinguishes repeated picks of the same
// group (tier 1, tier 2, ...).
type AddonSelection struct {
	GroupID    string   `json:"groupId"`
	OptionID   string   `json:"optionId"`
	Slot       int      `json:"slot,omitempty"`
	CustomText string   `json:"customText,omitempty"`
	SubOptions []string `json:"subOptions,omitempty"`
}

// Selection is everything the cashier chose for one line.
type Selection struct {
	Quantity        int               `json:"quantity"`
	Options         map[string]string `json:"options,omitempty"`
	Addons          []AddonSelection  `json:"addons,omitempty"`
	CustomUnitPrice *Money            `json:"customUnitPrice,omitempty"`
}

// LineQuote is the priced outcome for one line.
type LineQuote struct {
	UnitPrice     Money  `json:"unitPrice"`
	BaseComponent Money  `json:"baseComponent"`
	OptionsTotal  Money  `json:"optionsTotal"`
	AddonsTotal   Money  `json:"addonsTotal"`
	LineTotal     Money  `json:"lineTotal"`
	VariantID     string `json:"variantId,omitempty"`
	CustomPriced  bool   `json:"customPriced,omitempty"`
}

// ComposeLine validates a selection against the product's price spec and
// computes the unit price and line total.
//
// Price precedence for the base component: an allowed custom price wins,
// then a variant matching the full selection, then base price plus the
// selected value adjustments. Add-on and sub-option prices are additive in
// every case.
func ComposeLine(spec PriceSpec, sel Selection) (LineQuote, error) {
	if sel.Quantity < 1 {
		return LineQuote{}, ErrQuantityInvalid
	}
	if err := validateOptions(spec, sel.Options); err != nil {
		return LineQuote{}, err
	}
	addons, err := sumAddons(spec, sel.Addons)
	if err != nil {
		return LineQuote{}, err
	}

	var q LineQuote
	switch {
	case sel.CustomUnitPrice != nil:
		if !spec.AllowsCustomPrice {
			return LineQuote{}, ErrCustomPriceNotAllowed
		}
		if *sel.CustomUnitPrice < 0 {
			return LineQuote{}, fmt.Errorf("custom price: %w", ErrNegativeAmount)
		}
		q.BaseComponent = *sel.CustomUnitPrice
		q.CustomPriced = true
	default:
		if v := matchVariant(spec, sel.Options); v != nil {
			q.BaseComponent = v.Price
			q.VariantID = v.ID
		} else {
			q.BaseComponent = spec.BasePrice
			q.OptionsTotal = sumAdjustments(spec, sel.Options)
		}
	}
	q.AddonsTotal = addons
	q.UnitPrice = Round(q.BaseComponent + q.OptionsTotal + q.AddonsTotal)
	q.LineTotal = Round(q.UnitPrice * Money(sel.Quantity))
	return q, nil
}

func validateOptions(spec PriceSpec, selected map[string]string) error {
	for _, opt := range spec.Options {
		valueID, ok := selected[opt.ID]
		if !ok || valueID == "" {
			return fmt.Errorf("%s: %w", opt.Name, ErrOptionRequired)
		}
		if findValue(opt, valueID) == nil {
			return fmt.Errorf("%s: %w", opt.Name, ErrUnknownOption)
		}
	}
	for id := range selected {
		if findOption(spec, id) == nil {
			return fmt.Errorf("%s: %w", id, ErrUnknownOption)
		}
	}
	return nil
}

func findOption(spec PriceSpec, id string) *Option {
	for i := range spec.Options {
		if spec.Options[i].ID == id {
			return &spec.Options[i]
		}
	}
	return nil
}

func findValue(opt Option, id string) *OptionValue {
	for i := range opt.Values {
		if opt.Values[i].ID == id {
			return &opt.Values[i]
		}
	}
	return nil
}

func sumAdjustments(spec PriceSpec, selected map[string]string) Money {
	var total Money
	for _, opt := range spec.Options {
		if v := findValue(opt, selected[opt.ID]); v != nil {
			total += v.Adjustment
		}
	}
	return total
}

// matchVariant returns the variant whose value set equals the selection.
// Both sides are canonicalized sorted by option id so stored order never
// influences the match. Partial selections never match.
func matchVariant(spec PriceSpec, selected map[string]string) *Variant {
	if len(spec.Variants) == 0 || len(spec.Options) == 0 {
		return nil
	}
	if len(selected) != len(spec.Options) {
		return nil
	}
	key := selectionKey(selected)
	for i := range spec.Variants {
		if variantKey(spec.Variants[i]) == key {
			return &spec.Variants[i]
		}
	}
	return nil
}

func selectionKey(selected map[string]string) string {
	ids := make([]string, 0, len(selected))
	for id := range selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(id)
		b.WriteByte('=')
		b.WriteString(selected[id])
	}
	return b.String()
}

func variantKey(v Variant) string {
	pairs := make([]VariantValue, len(v.Values))
	copy(pairs, v.Values)
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].OptionID < pairs[j].OptionID })
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(p.OptionID)
		b.WriteByte('=')
		b.WriteString(p.ValueID)
	}
	return b.String()
}

func sumAddons(spec PriceSpec, selections []AddonSelection) (Money, error) {
	var total Money
	perGroup := make(map[string]int)
	for _, sel := range selections {
		group := findGroup(spec, sel.GroupID)
		if group == nil {
			return 0, fmt.Errorf("%s: %w", sel.GroupID, ErrUnknownAddon)
		}
		opt := findAddonOption(group, sel.OptionID)
		if opt == nil {
			return 0, fmt.Errorf("%s: %w", group.Name, ErrUnknownAddon)
		}
		if sel.CustomText != "" && !opt.AllowsCustomText {
			return 0, fmt.Errorf("%s: %w", opt.Name, ErrCustomTextNotAllowed)
		}
		perGroup[group.ID]++
		total += opt.Price
		for _, subID := range sel.SubOptions {
			sub := findSubOption(opt, subID)
			if sub == nil {
				return 0, fmt.Errorf("%s: %w", opt.Name, ErrUnknownAddon)
			}
			total += sub.Price
		}
	}
	for _, group := range spec.AddonGroups {
		n := perGroup[group.ID]
		if group.Required {
			need := group.MinSelections
			if need < 1 {
				need = 1
			}
			if n < need {
				return 0, fmt.Errorf("%s: %w", group.Name, ErrAddonSelectionRequired)
			}
		}
		if group.MaxSelections > 0 && n > group.MaxSelections {
			return 0, fmt.Errorf("%s: %w", group.Name, ErrAddonLimitExceeded)
		}
	}
	return total, nil
}

func findGroup(spec PriceSpec, id string) *AddonGroup {
	for i := range spec.AddonGroups {
		if spec.AddonGroups[i].ID == id {
			return &spec.AddonGroups[i]
		}
	}
	return nil
}

func findAddonOption(g *AddonGroup, id string) *AddonOption {
	for i := range g.Options {
		if g.Options[i].ID == id {
			return &g.Options[i]
		}
	}
	return nil
}

func findSubOption(o *AddonOption, id string) *SubOption {
	for i := range o.SubOptions {
		if o.SubOptions[i].ID == id {
			return &o.SubOptions[i]
		}
	}
	return nil
}
