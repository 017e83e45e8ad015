// Package budget computes target spend bands per part category and checks
// a build total against the user's budget.
package budget

import (
	"fmt"
	"math"
	"strings"
)

// Category is a part type used to scope a catalog search.
type Category string

const (
	CategoryCPU             Category = "CPU"
	CategoryCPUCooler       Category = "CPU Cooler"
	CategoryMotherboard     Category = "Motherboard"
	CategoryMemory          Category = "Memory"
	CategoryStorage         Category = "Storage"
	CategoryVideoCard       Category = "Video Card"
	CategoryCase            Category = "Case"
	CategoryPowerSupply     Category = "Power Supply"
	CategoryOperatingSystem Category = "Operating System"
	CategoryCaseFans        Category = "Case Fans"
	CategoryMonitor         Category = "Monitor"
	CategoryPeripherals     Category = "Peripherals"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryCPU,
	CategoryCPUCooler,
	CategoryMotherboard,
	CategoryMemory,
	CategoryStorage,
	CategoryVideoCard,
	CategoryCase,
	CategoryPowerSupply,
	CategoryOperatingSystem,
	CategoryCaseFans,
	CategoryMonitor,
	CategoryPeripherals,
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown part category %q", s)
}

// Purpose is the intended use of a build.
type Purpose string

const (
	PurposeGaming      Purpose = "gaming"
	PurposeWorkstation Purpose = "workstation"
	PurposeGeneral     Purpose = "general"
)

// Flex is the half-width of a target band, as a fraction of the target.
const Flex = 0.15

// OverBudgetThreshold is the overage percentage above which a build is
// flagged as over budget.
const OverBudgetThreshold = 5.0

var profiles = map[Purpose]map[Category]float64{
	PurposeGaming: {
		CategoryCPU:             0.20,
		CategoryCPUCooler:       0.04,
		CategoryMotherboard:     0.10,
		CategoryMemory:          0.07,
		CategoryStorage:         0.07,
		CategoryVideoCard:       0.37,
		CategoryCase:            0.05,
		CategoryPowerSupply:     0.06,
		CategoryOperatingSystem: 0.04,
	},
	PurposeWorkstation: {
		CategoryCPU:             0.28,
		CategoryCPUCooler:       0.05,
		CategoryMotherboard:     0.12,
		CategoryMemory:          0.18,
		CategoryStorage:         0.12,
		CategoryVideoCard:       0.10,
		CategoryCase:            0.05,
		CategoryPowerSupply:     0.06,
		CategoryOperatingSystem: 0.04,
	},
	PurposeGeneral: {
		CategoryCPU:             0.20,
		CategoryCPUCooler:       0.04,
		CategoryMotherboard:     0.12,
		CategoryMemory:          0.12,
		CategoryStorage:         0.12,
		CategoryVideoCard:       0.15,
		CategoryCase:            0.07,
		CategoryPowerSupply:     0.07,
		CategoryOperatingSystem: 0.04,
		CategoryCaseFans:        0.03,
		CategoryMonitor:         0.04,
	},
}

// ParsePurpose maps free text onto a known purpose. Anything unrecognised
// is treated as a general-purpose build.
func ParsePurpose(s string) Purpose {
	p := Purpose(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := profiles[p]; ok {
		return p
	}
	return PurposeGeneral
}

// Allocation is the target spend band for one category.
type Allocation struct {
	Category Category `json:"category"`
	Min      int      `json:"min"`
	Max      int      `json:"max"`
}

// Share returns the fraction of the total the profile for purpose assigns
// to each of the given categories after renormalisation. Categories missing
// from the profile are dropped. If categories is empty, all categories of
// the profile are used.
func Share(purpose Purpose, categories []Category) map[Category]float64 {
	profile, ok := profiles[purpose]
	if !ok {
		profile = profiles[PurposeGeneral]
	}

	if len(categories) == 0 {
		categories = Categories
	}

	filtered := make(map[Category]float64, len(categories))
	var sum float64
	for _, c := range categories {
		pct, ok := profile[c]
		if !ok {
			continue
		}
		if _, seen := filtered[c]; seen {
			continue
		}
		filtered[c] = pct
		sum += pct
	}

	scale := 0.0
	if sum > 0 {
		scale = 1 / sum
	}
	for c, pct := range filtered {
		filtered[c] = pct * scale
	}
	return filtered
}

// Allocate computes a ±15% band around total × normalised share for each
// requested category, rounded to whole currency units. The result follows
// the order of Categories.
func Allocate(total float64, purpose Purpose, categories []Category) []Allocation {
	shares := Share(purpose, categories)

	out := make([]Allocation, 0, len(shares))
	for _, c := range Categories {
		share, ok := shares[c]
		if !ok {
			continue
		}
		target := total * share
		out = append(out, Allocation{
			Category: c,
			Min:      int(math.Round(target * (1 - Flex))),
			Max:      int(math.Round(target * (1 + Flex))),
		})
	}
	return out
}

// OverBudget describes how far a build total lands from the budget.
type OverBudget struct {
	// Amount is spent minus budget; negative when under budget.
	Amount float64 `json:"amount"`

	// Percentage is Amount relative to the budget, in percent.
	Percentage float64 `json:"percentage"`

	// Over is true when Percentage exceeds OverBudgetThreshold.
	Over bool `json:"overBudget"`
}

// CheckOverBudget compares spent against budget. A non-positive budget
// yields a zero percentage.
func CheckOverBudget(budget, spent float64) OverBudget {
	amount := spent - budget
	pct := 0.0
	if budget > 0 {
		pct = amount / budget * 100
	}
	return OverBudget{
		Amount:     amount,
		Percentage: pct,
		Over:       pct > OverBudgetThreshold,
	}
}
