package nlp

import (
	"testing"
)

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		name    string
		segment string
		want    int64
		wantOK  bool
	}{
		{name: "plain digits", segment: "ăn sáng 25000", want: 25000, wantOK: true},
		{name: "dot separated thousands", segment: "chuyển khoản 1.000.000", want: 1000000, wantOK: true},
		{name: "comma separated thousands", segment: "mua đồ 2,500,000", want: 2500000, wantOK: true},
		{name: "k suffix", segment: "cafe 500k", want: 500000, wantOK: true},
		{name: "k suffix no space", segment: "25k", want: 25000, wantOK: true},
		{name: "nghìn word", segment: "gửi xe 5 nghìn", want: 5000, wantOK: true},
		{name: "ngàn word", segment: "ăn vặt 30 ngàn", want: 30000, wantOK: true},
		{name: "tr suffix", segment: "25tr", want: 25000000, wantOK: true},
		{name: "triệu word", segment: "15 triệu", want: 15000000, wantOK: true},
		{name: "trieu unaccented", segment: "2 trieu", want: 2000000, wantOK: true},
		{name: "tỷ word", segment: "mua nhà 3 tỷ", want: 3000000000, wantOK: true},
		{name: "compound tỷ", segment: "8 tỷ 6", want: 8600000000, wantOK: true},
		{name: "compound triệu", segment: "2 triệu 5", want: 2500000, wantOK: true},
		{name: "compound nghìn", segment: "25 nghìn 5", want: 25500, wantOK: true},
		{name: "unit beats bare number", segment: "mua 2 áo hết 300k", want: 300000, wantOK: true},
		{name: "no digits", segment: "khác", wantOK: false},
		{name: "empty", segment: "", wantOK: false},
		{name: "unit word inside longer word ignored", segment: "trả 500 trong ngày", want: 500, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractAmount(tt.segment)
			if ok != tt.wantOK {
				t.Fatalf("ExtractAmount(%q) ok = %v, want %v", tt.segment, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ExtractAmount(%q) = %d, want %d", tt.segment, got, tt.want)
			}
		})
	}
}

func TestExtractAmountToken(t *testing.T) {
	tests := []struct {
		segment   string
		wantToken string
	}{
		{segment: "ăn sáng 25k hôm qua", wantToken: "25k"},
		{segment: "cafe 30 nghìn", wantToken: "30 nghìn"},
		{segment: "nhà 8 tỷ 6", wantToken: "8 tỷ 6"},
	}

	for _, tt := range tests {
		m, ok := ExtractAmountToken(tt.segment)
		if !ok {
			t.Fatalf("ExtractAmountToken(%q): no match", tt.segment)
		}
		if m.Token != tt.wantToken {
			t.Errorf("ExtractAmountToken(%q) token = %q, want %q", tt.segment, m.Token, tt.wantToken)
		}
	}
}
