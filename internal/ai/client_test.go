package ai

import (
	"strings"
	"testing"
)

func TestParseExpenseReply(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ExpenseReply
		wantErr bool
	}{
		{
			name: "clean object",
			raw:  `{"name":"ăn sáng","amount":25000,"category":"Food","currency":"VND","type":"expense","day":14,"month":6,"year":2025}`,
			want: ExpenseReply{Name: "ăn sáng", Amount: 25000, Category: "Food", Currency: "VND", Type: "expense", Day: 14, Month: 6, Year: 2025},
		},
		{
			name: "fenced markdown",
			raw:  "```json\n{\"name\":\"cafe\",\"amount\":30000,\"category\":\"Cafe & Dining Out\",\"currency\":\"VND\",\"type\":\"expense\",\"day\":15,\"month\":6,\"year\":2025}\n```",
			want: ExpenseReply{Name: "cafe", Amount: 30000, Category: "Cafe & Dining Out", Currency: "VND", Type: "expense", Day: 15, Month: 6, Year: 2025},
		},
		{
			name: "prose around the object",
			raw:  "Here you go:\n{\"name\":\"lương\",\"amount\":20000000,\"category\":\"Salary\",\"currency\":\"VND\",\"type\":\"income\",\"day\":1,\"month\":6,\"year\":2025}\nHope that helps!",
			want: ExpenseReply{Name: "lương", Amount: 20000000, Category: "Salary", Currency: "VND", Type: "income", Day: 1, Month: 6, Year: 2025},
		},
		{name: "not json", raw: "I could not find an expense in that.", wantErr: true},
		{name: "negative amount", raw: `{"name":"x","amount":-5,"category":"Other","currency":"VND","type":"expense","day":1,"month":1,"year":2025}`, wantErr: true},
		{name: "unknown type", raw: `{"name":"x","amount":5,"category":"Other","currency":"VND","type":"transfer","day":1,"month":1,"year":2025}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExpenseReply(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && *got != tt.want {
				t.Errorf("got %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestBuildExtractionPromptListsCategories(t *testing.T) {
	prompt := buildExtractionPrompt([]string{"Food", "Transport"})
	for _, want := range []string{"Food", "Transport", "STRICT JSON"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
