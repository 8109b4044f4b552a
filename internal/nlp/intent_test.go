package nlp

import (
	"testing"

	"github.com/dvloznov/money-assistant/internal/domain"
)

func TestRouterDomainPriority(t *testing.T) {
	router := NewRouter()

	tests := []struct {
		name       string
		text       string
		modeFlag   domain.Domain
		wantDomain domain.Domain
		wantAction domain.Action
	}{
		{
			name:       "expense with category and amount",
			text:       "Hôm qua ăn sáng 25k",
			wantDomain: domain.DomainExpense,
			wantAction: domain.ActionAdd,
		},
		{
			name:       "category budget set",
			text:       "Đặt ngân sách ăn uống 2 triệu",
			wantDomain: domain.DomainCategoryBudget,
			wantAction: domain.ActionUpsert,
		},
		{
			name:       "monthly budget without category",
			text:       "Đặt ngân sách tháng này 10 triệu",
			wantDomain: domain.DomainMonthlyBudget,
			wantAction: domain.ActionUpsert,
		},
		{
			name:       "delete expense by id",
			text:       "Xóa chi tiêu #123",
			wantDomain: domain.DomainExpense,
			wantAction: domain.ActionDelete,
		},
		{
			name:       "identifier keeps expense domain despite category",
			text:       "Sửa ăn sáng #12 thành 30k",
			wantDomain: domain.DomainExpense,
			wantAction: domain.ActionUpsert,
		},
		{
			name:       "free form chat",
			text:       "Xin chào, bạn khỏe không?",
			wantDomain: domain.DomainChat,
			wantAction: domain.ActionQuery,
		},
		{
			name:       "mode flag overrides text",
			text:       "ăn uống 2 triệu",
			modeFlag:   domain.DomainMonthlyBudget,
			wantDomain: domain.DomainMonthlyBudget,
			wantAction: domain.ActionQuery,
		},
		{
			name:       "expense query without digits",
			text:       "tháng này chi bao nhiêu",
			wantDomain: domain.DomainExpense,
			wantAction: domain.ActionQuery,
		},
		{
			name:       "delete all category budgets",
			text:       "Xóa hết ngân sách danh mục tháng này",
			wantDomain: domain.DomainCategoryBudget,
			wantAction: domain.ActionDelete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route := router.Route(tt.text, tt.modeFlag)
			if route.Domain != tt.wantDomain {
				t.Errorf("domain = %v (rule %q), want %v", route.Domain, route.Rule, tt.wantDomain)
			}
			if route.Action != tt.wantAction {
				t.Errorf("action = %v, want %v", route.Action, tt.wantAction)
			}
		})
	}
}

func TestRouterAdjustMode(t *testing.T) {
	router := NewRouter()

	tests := []struct {
		name string
		text string
		want domain.AdjustMode
	}{
		{name: "đặt is absolute", text: "Đặt ngân sách tháng này 10 triệu", want: domain.ModeSet},
		{name: "tăng without companion is relative", text: "Tăng ngân sách ăn uống 500k", want: domain.ModeIncrease},
		{name: "tăng lên is absolute", text: "Tăng ngân sách ăn uống lên 3 triệu", want: domain.ModeSet},
		{name: "giảm without companion is relative", text: "Giảm ngân sách ăn uống 500k", want: domain.ModeDecrease},
		{name: "giảm xuống is absolute", text: "Giảm ngân sách tháng xuống 8 triệu", want: domain.ModeSet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route := router.Route(tt.text, "")
			if route.Mode != tt.want {
				t.Errorf("mode = %v, want %v", route.Mode, tt.want)
			}
		})
	}
}
