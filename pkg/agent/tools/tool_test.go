package tools

import (
	"encoding/json"
	"testing"

	"github.com/entrhq/pcbuilder/pkg/budget"
)

func TestDefaults(t *testing.T) {
	defs := Defaults()

	want := []string{SearchPartsToolName, AskUserToolName, ProposeBuildToolName, SaveListToolName, AllocateBudgetToolName}
	if len(defs) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(defs))
	}
	for i, name := range want {
		if defs[i].Name != name {
			t.Errorf("tool %d: expected %q, got %q", i, name, defs[i].Name)
		}
		if defs[i].Description == "" {
			t.Errorf("tool %q has no description", name)
		}
		if defs[i].Schema["type"] != "object" {
			t.Errorf("tool %q schema is not an object schema", name)
		}
		// Schemas are sent to providers as JSON.
		if _, err := json.Marshal(defs[i].Schema); err != nil {
			t.Errorf("tool %q schema does not marshal: %v", name, err)
		}
	}

	if _, ok := Lookup(defs, "save_list"); !ok {
		t.Error("expected to find save_list")
	}
	if _, ok := Lookup(defs, "task_completion"); ok {
		t.Error("did not expect to find task_completion")
	}
}

func TestParseSearchPartsArgs(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		args, cat, err := ParseSearchPartsArgs(json.RawMessage(`{"category":"video card","price_max":500,"brand":"asus"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cat != budget.CategoryVideoCard {
			t.Errorf("expected Video Card, got %q", cat)
		}
		if args.PriceMax == nil || *args.PriceMax != 500 {
			t.Errorf("expected price_max 500, got %v", args.PriceMax)
		}
		if args.PriceMin != nil {
			t.Errorf("expected no price_min, got %v", *args.PriceMin)
		}
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		if _, _, err := ParseSearchPartsArgs(json.RawMessage(`{"category":"Sound Card"}`)); err == nil {
			t.Error("expected error for unknown category")
		}
	})

	t.Run("InvertedRange", func(t *testing.T) {
		if _, _, err := ParseSearchPartsArgs(json.RawMessage(`{"category":"CPU","price_min":500,"price_max":100}`)); err == nil {
			t.Error("expected error for inverted price range")
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		if _, _, err := ParseSearchPartsArgs(json.RawMessage(`not json`)); err == nil {
			t.Error("expected error for invalid JSON")
		}
	})
}

func TestParseAskUserArgs(t *testing.T) {
	args, err := ParseAskUserArgs(json.RawMessage(`{"question":"  What is your budget?  "}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args.Question != "What is your budget?" {
		t.Errorf("expected trimmed question, got %q", args.Question)
	}

	if _, err := ParseAskUserArgs(json.RawMessage(`{"question":""}`)); err == nil {
		t.Error("expected error for empty question")
	}
	if _, err := ParseAskUserArgs(nil); err == nil {
		t.Error("expected error for missing arguments")
	}
}

func TestParseProposeBuildArgs(t *testing.T) {
	raw := json.RawMessage(`{"parts":[{"category":"CPU","name":"Ryzen 7 7800X3D","price":449.99,"reasoning":"fast"}],"total":449.99,"budget":1500}`)
	args, err := ParseProposeBuildArgs(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args.Parts) != 1 || args.Parts[0].Name != "Ryzen 7 7800X3D" {
		t.Errorf("unexpected parts: %+v", args.Parts)
	}
	if args.Budget != 1500 {
		t.Errorf("expected budget 1500, got %v", args.Budget)
	}

	if _, err := ParseProposeBuildArgs(json.RawMessage(`{"parts":[],"total":0,"budget":1}`)); err == nil {
		t.Error("expected error for empty build")
	}
}

func TestParseSaveListArgs(t *testing.T) {
	args, err := ParseSaveListArgs(json.RawMessage(`{"list_name":"My Build","parts":[{"name":"A","url":"https://pcpartpicker.com/product/abc","category":"CPU"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args.ListName != "My Build" || len(args.Parts) != 1 {
		t.Errorf("unexpected args: %+v", args)
	}

	if _, err := ParseSaveListArgs(json.RawMessage(`{"list_name":"x","parts":[]}`)); err == nil {
		t.Error("expected error for empty parts")
	}
}

func TestParseAllocateBudgetArgs(t *testing.T) {
	_, cats, err := ParseAllocateBudgetArgs(json.RawMessage(`{"budget":1200,"purpose":"gaming","categories":["cpu","Video Card"]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cats) != 2 || cats[0] != budget.CategoryCPU || cats[1] != budget.CategoryVideoCard {
		t.Errorf("unexpected categories: %v", cats)
	}

	if _, _, err := ParseAllocateBudgetArgs(json.RawMessage(`{"budget":0,"purpose":"gaming"}`)); err == nil {
		t.Error("expected error for zero budget")
	}
}
