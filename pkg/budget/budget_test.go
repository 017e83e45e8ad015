package budget

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckOverBudget(t *testing.T) {
	tests := []struct {
		name   string
		budget float64
		spent  float64
		amount float64
		pct    float64
		over   bool
	}{
		{name: "within tolerance", budget: 1000, spent: 1040, amount: 40, pct: 4, over: false},
		{name: "over tolerance", budget: 1000, spent: 1060, amount: 60, pct: 6, over: true},
		{name: "exactly at threshold", budget: 1000, spent: 1050, amount: 50, pct: 5, over: false},
		{name: "under budget", budget: 1000, spent: 900, amount: -100, pct: -10, over: false},
		{name: "zero budget", budget: 0, spent: 500, amount: 500, pct: 0, over: false},
		{name: "negative budget", budget: -10, spent: 5, amount: 15, pct: 0, over: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckOverBudget(tt.budget, tt.spent)
			assert.InDelta(t, tt.amount, got.Amount, 1e-9)
			assert.InDelta(t, tt.pct, got.Percentage, 1e-9)
			assert.Equal(t, tt.over, got.Over)
		})
	}
}

func TestAllocate_GamingFullProfile(t *testing.T) {
	allocs := Allocate(1000, PurposeGaming, nil)
	require.Len(t, allocs, 9)

	byCat := make(map[Category]Allocation)
	for _, a := range allocs {
		byCat[a.Category] = a
	}

	// Gaming percentages already sum to 1, so targets are 370 and 200.
	gpu := byCat[CategoryVideoCard]
	assert.InDelta(t, 314.5, gpu.Min, 1)
	assert.InDelta(t, 425.5, gpu.Max, 1)
	assert.Equal(t, Allocation{Category: CategoryCPU, Min: 170, Max: 230}, byCat[CategoryCPU])
	assert.NotContains(t, byCat, CategoryMonitor)
}

func TestAllocate_SubsetRenormalizes(t *testing.T) {
	allocs := Allocate(1000, PurposeGaming, []Category{CategoryCPU, CategoryVideoCard})
	require.Len(t, allocs, 2)

	// 0.20 / 0.57 and 0.37 / 0.57 of 1000.
	assert.Equal(t, CategoryCPU, allocs[0].Category)
	assert.InDelta(t, 1000*0.20/0.57*0.85, allocs[0].Min, 1)
	assert.Equal(t, CategoryVideoCard, allocs[1].Category)
	assert.InDelta(t, 1000*0.37/0.57*1.15, allocs[1].Max, 1)
}

func TestAllocate_NoMatchingCategories(t *testing.T) {
	allocs := Allocate(1000, PurposeGaming, []Category{CategoryPeripherals})
	assert.Empty(t, allocs)
}

func TestAllocate_UnknownPurposeFallsBackToGeneral(t *testing.T) {
	allocs := Allocate(1000, Purpose("htpc"), nil)
	assert.Len(t, allocs, 11)
}

func TestParsePurpose(t *testing.T) {
	assert.Equal(t, PurposeGaming, ParsePurpose(" Gaming "))
	assert.Equal(t, PurposeWorkstation, ParsePurpose("workstation"))
	assert.Equal(t, PurposeGeneral, ParsePurpose("streaming"))
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("video card")
	require.NoError(t, err)
	assert.Equal(t, CategoryVideoCard, c)

	_, err = ParseCategory("sound card")
	assert.Error(t, err)
}

func TestAllocate_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	purposes := gen.OneConstOf(PurposeGaming, PurposeWorkstation, PurposeGeneral)
	subset := gen.SliceOf(gen.IntRange(0, len(Categories)-1)).Map(func(idx []int) []Category {
		out := make([]Category, 0, len(idx))
		for _, i := range idx {
			out = append(out, Categories[i])
		}
		return out
	})

	properties.Property("normalised shares sum to one", prop.ForAll(
		func(p Purpose, cats []Category) bool {
			shares := Share(p, cats)
			if len(shares) == 0 {
				return true
			}
			var sum float64
			for _, s := range shares {
				sum += s
			}
			return math.Abs(sum-1) < 1e-9
		},
		purposes, subset,
	))

	properties.Property("bands are symmetric around the target", prop.ForAll(
		func(total float64, p Purpose, cats []Category) bool {
			shares := Share(p, cats)
			for _, a := range Allocate(total, p, cats) {
				target := total * shares[a.Category]
				if math.Abs(float64(a.Min)-target*(1-Flex)) > 0.5 {
					return false
				}
				if math.Abs(float64(a.Max)-target*(1+Flex)) > 0.5 {
					return false
				}
			}
			return true
		},
		gen.Float64Range(0, 20000), purposes, subset,
	))

	properties.TestingRun(t)
}
