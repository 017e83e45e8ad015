package browser

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Selectors holds every CSS selector the controller uses against the site's
// markup. Markup changes are absorbed by editing a selectors file instead of
// code.
type Selectors struct {
	Login      LoginSelectors      `yaml:"login"`
	Search     SearchSelectors     `yaml:"search"`
	Results    ResultSelectors     `yaml:"results"`
	Pagination PaginationSelectors `yaml:"pagination"`
	SaveList   SaveListSelectors   `yaml:"save_list"`
}

// LoginSelectors locate the login form on /user/login/.
type LoginSelectors struct {
	Form          string `yaml:"form"`
	UsernameInput string `yaml:"username_input"`
	PasswordInput string `yaml:"password_input"`
	SubmitButton  string `yaml:"submit_button"`
	ErrorMessage  string `yaml:"error_message"` // on-page rejection text
}

// SearchSelectors locate the listing on /products/<category>/.
type SearchSelectors struct {
	Content string `yaml:"content"`
	Table   string `yaml:"table"`
}

// ResultSelectors are evaluated relative to one product row, except
// ProductRow itself.
type ResultSelectors struct {
	ProductRow    string `yaml:"product_row"`
	ProductName   string `yaml:"product_name"`
	ProductLink   string `yaml:"product_link"`
	ProductPrice  string `yaml:"product_price"`
	ProductRating string `yaml:"product_rating"`
	RatingAttr    string `yaml:"rating_attr"`
	SpecCell      string `yaml:"spec_cell"`
	SpecLabel     string `yaml:"spec_label"`
}

// PaginationSelectors locate the page controls below a listing.
type PaginationSelectors struct {
	Container   string `yaml:"container"`
	NextPage    string `yaml:"next_page"`
	CurrentPage string `yaml:"current_page"`
	LastPage    string `yaml:"last_page"`
	PageLink    string `yaml:"page_link"`
}

// SaveListSelectors locate the add-to-list control on a product page and
// the list controls on /list/.
type SaveListSelectors struct {
	AddPartButton string `yaml:"add_part_button"`
	PartListTable string `yaml:"part_list_table"`
	PartListRow   string `yaml:"part_list_row"`
	SaveButton    string `yaml:"save_button"`
	ListNameInput string `yaml:"list_name_input"`
	TotalPrice    string `yaml:"total_price"`
}

// DefaultSelectors returns the selectors for PCPartPicker's current markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Login: LoginSelectors{
			Form:          "form#login_form",
			UsernameInput: `input[type="text"][name*="username"]`,
			PasswordInput: `input[type="password"]`,
			SubmitButton:  "#form_submit",
			ErrorMessage:  ".errorlist, .form-error, .alert--error",
		},
		Search: SearchSelectors{
			Content: "#category_content",
			Table:   "table.productList--detailed",
		},
		Results: ResultSelectors{
			ProductRow:    ".tr__product",
			ProductName:   ".td__name .td__nameWrapper > p",
			ProductLink:   ".td__name a",
			ProductPrice:  ".td__price",
			ProductRating: ".td__rating [data-stars]",
			RatingAttr:    "data-stars",
			SpecCell:      "td.td__spec",
			SpecLabel:     ".specLabel",
		},
		Pagination: PaginationSelectors{
			Container:   ".pagination",
			NextPage:    `.pagination a[rel="next"], .pagination .pagination--next a`,
			CurrentPage: ".pagination li.pagination--current",
			LastPage:    ".pagination li:last-child",
			PageLink:    ".pagination a",
		},
		SaveList: SaveListSelectors{
			AddPartButton: ".actionBox__button--add",
			PartListTable: ".partlist__table",
			PartListRow:   ".partlist__row",
			SaveButton:    ".button--save, .actionBox__button--save",
			ListNameInput: `input[name="listname"], .partlist__name input`,
			TotalPrice:    ".partlist__total .td__price",
		},
	}
}

// LoadSelectors reads a YAML selectors file on top of the defaults. Keys
// missing from the file keep their default value. An empty path returns
// the defaults.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("failed to read selectors file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return DefaultSelectors(), fmt.Errorf("failed to parse selectors file %s: %w", path, err)
	}
	return sel, nil
}
