package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pcbuilder/pkg/budget"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$449.99", 449.99},
		{"  $1,299.00 ", 1299},
		{"Price\n$89.00", 89},
		{"", 0},
		{"Price unavailable", 0},
		{"1.2.3", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePrice(tt.in), "ParsePrice(%q)", tt.in)
	}
}

func TestParseRating(t *testing.T) {
	require.NotNil(t, parseRating("4.5"))
	assert.Equal(t, 4.5, *parseRating(" 4.5 "))
	assert.Nil(t, parseRating(""))
	assert.Nil(t, parseRating("6"))
	assert.Nil(t, parseRating("-1"))
	assert.Nil(t, parseRating("five"))
}

func TestListingURL(t *testing.T) {
	lo, hi := 100.0, 250.25
	tests := []struct {
		name    string
		filters SearchFilters
		want    string
	}{
		{"no bounds", SearchFilters{}, "https://x.test/products/video-card/"},
		{"both bounds", SearchFilters{PriceMin: &lo, PriceMax: &hi}, "https://x.test/products/video-card/?X=10000,25025"},
		{"min only", SearchFilters{PriceMin: &lo}, "https://x.test/products/video-card/?X=10000,10000000"},
		{"max only", SearchFilters{PriceMax: &hi}, "https://x.test/products/video-card/?X=0,25025"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ListingURL("https://x.test/", budget.CategoryVideoCard, tt.filters))
		})
	}
}

func TestCategorySlug(t *testing.T) {
	assert.Equal(t, "cpu-cooler", CategorySlug(budget.CategoryCPUCooler))
	assert.Equal(t, "internal-hard-drive", CategorySlug(budget.CategoryStorage))
	assert.Equal(t, "sound-card", CategorySlug(budget.Category("Sound Card")))
	for _, c := range budget.Categories {
		assert.NotEmpty(t, CategorySlug(c))
	}
}

func TestWithPage(t *testing.T) {
	assert.Equal(t, "https://x.test/products/cpu/?page=3", withPage("https://x.test/products/cpu/", 3))
	assert.Equal(t, "https://x.test/products/cpu/?X=0,100&page=2", withPage("https://x.test/products/cpu/?X=0,100", 2))
}

func TestRowFilter(t *testing.T) {
	four, three := 4.0, 3.0

	tests := []struct {
		name    string
		filters SearchFilters
		part    PartResult
		want    bool
	}{
		{"no filters", SearchFilters{}, PartResult{Name: "Anything"}, true},
		{"brand substring any case", SearchFilters{Brand: "corsair"}, PartResult{Name: "CORSAIR Vengeance 32 GB"}, true},
		{"brand mismatch", SearchFilters{Brand: "corsair"}, PartResult{Name: "G.Skill Trident Z5"}, false},
		{"brand with dot is literal", SearchFilters{Brand: "g.skill"}, PartResult{Name: "GxSkill Fake"}, false},
		{"brand glob", SearchFilters{Brand: "asus*rog*"}, PartResult{Name: "ASUS TUF ROG Strix"}, true},
		{"rating meets minimum", SearchFilters{MinRating: &four}, PartResult{Name: "x", Rating: &four}, true},
		{"rating below minimum", SearchFilters{MinRating: &four}, PartResult{Name: "x", Rating: &three}, false},
		{"unrated with minimum", SearchFilters{MinRating: &four}, PartResult{Name: "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newRowFilter(tt.filters).keep(tt.part))
		})
	}
}

func TestPacer_DelayWithinBounds(t *testing.T) {
	p := NewPacer(100*time.Millisecond, 300*time.Millisecond, 0)
	for i := 0; i < 200; i++ {
		d := p.Delay()
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}

	p.jitter = func(n int64) int64 { return n - 1 }
	assert.Equal(t, 300*time.Millisecond, p.Delay())
	p.jitter = func(int64) int64 { return 0 }
	assert.Equal(t, 100*time.Millisecond, p.Delay())
}

func TestPacer_SwappedBounds(t *testing.T) {
	p := NewPacer(time.Second, 0, 0)
	assert.Equal(t, time.Duration(0), p.min)
	assert.Equal(t, time.Second, p.max)
}

func TestPacer_WaitHonoursContext(t *testing.T) {
	p := NewPacer(time.Hour, time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.Canceled)

	quick := NewPacer(0, 0, 0)
	assert.NoError(t, quick.Wait(context.Background()))
}

func TestLoadSelectors(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		sel, err := LoadSelectors("")
		require.NoError(t, err)
		assert.Equal(t, DefaultSelectors(), sel)
	})

	t.Run("partial override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "selectors.yaml")
		yaml := "results:\n  product_row: \"tr.product\"\nlogin:\n  submit_button: \"button[type=submit]\"\n"
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

		sel, err := LoadSelectors(path)
		require.NoError(t, err)
		assert.Equal(t, "tr.product", sel.Results.ProductRow)
		assert.Equal(t, "button[type=submit]", sel.Login.SubmitButton)
		assert.Equal(t, DefaultSelectors().Results.ProductPrice, sel.Results.ProductPrice)
		assert.Equal(t, DefaultSelectors().Login.Form, sel.Login.Form)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSelectors(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("results: [unterminated"), 0o644))
		_, err := LoadSelectors(path)
		assert.Error(t, err)
	})
}
