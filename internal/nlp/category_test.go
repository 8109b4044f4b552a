package nlp

import (
	"testing"
)

func TestResolveCategory(t *testing.T) {
	tests := []struct {
		name    string
		segment string
		want    string
	}{
		{name: "canonical name is idempotent", segment: "Cafe & Dining Out", want: "Cafe & Dining Out"},
		{name: "vietnamese canonical name", segment: "Ăn uống", want: "Food"},
		{name: "alias cà phê", segment: "cà phê", want: "Cafe & Dining Out"},
		{name: "alias coffee", segment: "coffee", want: "Cafe & Dining Out"},
		{name: "alias inside sentence", segment: "hôm qua uống cà phê 30k", want: "Cafe & Dining Out"},
		{name: "alias ăn sáng", segment: "ăn sáng 25k", want: "Food"},
		{name: "case insensitive", segment: "GRAB về nhà", want: "Transport"},
		{name: "no match falls back", segment: "xyz123", want: "Other"},
		{name: "empty", segment: "", want: "Other"},
		{name: "bounded match only", segment: "wifi123", want: "Other"},
		{name: "longest canonical wins", segment: "cafe & dining out vs cafe", want: "Cafe & Dining Out"},
		{name: "salary income", segment: "nhận lương tháng này", want: "Salary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveCategory(tt.segment); got != tt.want {
				t.Errorf("ResolveCategory(%q) = %q, want %q", tt.segment, got, tt.want)
			}
		})
	}
}

func TestResolveCategoryIdempotent(t *testing.T) {
	for _, c := range Categories {
		if got := ResolveCategory(c.Name); got != c.Name {
			t.Errorf("ResolveCategory(%q) = %q, want the same name back", c.Name, got)
		}
	}
}

func TestResolveCategoryToken(t *testing.T) {
	cat, token := ResolveCategoryToken("hôm qua ăn sáng 25k")
	if cat != "Food" {
		t.Fatalf("category = %q, want Food", cat)
	}
	if token != "ăn sáng" {
		t.Errorf("token = %q, want %q", token, "ăn sáng")
	}
}

func TestIsIncomeCategory(t *testing.T) {
	if !IsIncomeCategory("Salary") {
		t.Error("Salary should be income")
	}
	if IsIncomeCategory("Food") {
		t.Error("Food should not be income")
	}
}
