package nlp

import (
	"strings"

	"github.com/dvloznov/money-assistant/internal/domain"
)

// Route is the classified shape of an utterance: which domain it touches,
// what it does there, and how budget adjustments apply.
type Route struct {
	Domain domain.Domain
	Action domain.Action
	Mode   domain.AdjustMode
	// Rule names which table entry matched, for logging and tests.
	Rule string
}

// Keyword tables. Everything is matched against the lowercased utterance.
var (
	deleteWords = []string{"xóa", "xoá", "xoa", "hủy", "huy bo", "delete", "remove"}

	budgetWords = []string{"ngân sách", "ngan sach", "budget", "hạn mức", "han muc"}

	// Phrases that force the category-budget domain even without a
	// resolvable category in the text ("xóa hết ngân sách danh mục").
	categoryBudgetPhrases = []string{"ngân sách danh mục", "ngan sach danh muc", "category budget"}

	// Budget verbs that, co-occurring with a category, select the
	// category-budget domain.
	budgetVerbs = []string{"đặt", "dat", "sửa", "sua", "xóa", "xoá", "xoa", "set", "edit"}

	expenseWords = []string{
		"chi tiêu", "chi tieu", "chi", "tiêu", "mua", "trả", "tra tien",
		"thanh toán", "thanh toan", "spent", "spend", "bought", "paid", "pay",
	}

	adjustWords = []string{
		"thêm", "them", "tăng", "tang", "giảm", "giam", "đặt", "dat",
		"sửa", "sua", "chỉnh", "chinh", "thay đổi", "thay doi",
		"add", "set", "update", "edit", "increase", "decrease", "raise", "reduce",
	}

	increaseWords = []string{"tăng", "tang", "thêm", "them", "increase", "raise"}
	decreaseWords = []string{"giảm", "giam", "bớt", "bot", "decrease", "reduce", "lower"}

	// Companions that flip a relative increase/decrease into an absolute
	// set: "tăng lên 5 triệu" replaces, "tăng 5 triệu" adds.
	absoluteCompanions = []string{"lên", "len", "xuống", "xuong", "thành", "thanh", " to "}

	deleteAllWords = []string{"tất cả", "tat ca", "hết", "het", "all", "toàn bộ", "toan bo"}
)

// utterance caches the derived features the rule predicates look at.
type utterance struct {
	raw           string
	lower         string
	hasCategory   bool
	hasDigits     bool
	hasIdentifier bool
}

func (u utterance) containsAny(words []string) bool {
	for _, w := range words {
		if strings.Contains(u.lower, w) {
			return true
		}
	}
	return false
}

// routeRule is one entry in the ordered classification table.
// The first rule whose predicate matches decides the domain.
type routeRule struct {
	name   string
	domain domain.Domain
	match  func(u utterance) bool
}

// Router classifies utterances using a declarative, priority-ordered rule
// table. The table order is the precedence; there is no scoring.
type Router struct {
	rules []routeRule
}

// NewRouter builds the router with the default rule table.
func NewRouter() *Router {
	return &Router{
		rules: []routeRule{
			{
				name:   "category-budget",
				domain: domain.DomainCategoryBudget,
				match: func(u utterance) bool {
					if u.containsAny(categoryBudgetPhrases) {
						return true
					}
					// An explicit record identifier means the user is
					// targeting a transaction, not an allocation.
					if u.hasIdentifier {
						return false
					}
					return u.hasCategory && (u.containsAny(budgetWords) || u.containsAny(budgetVerbs))
				},
			},
			{
				name:   "monthly-budget",
				domain: domain.DomainMonthlyBudget,
				match: func(u utterance) bool {
					return u.containsAny(budgetWords)
				},
			},
			{
				name:   "expense",
				domain: domain.DomainExpense,
				match: func(u utterance) bool {
					// An explicit identifier always targets a transaction,
					// even without an expense verb ("xóa #12").
					return u.containsAny(expenseWords) || u.hasCategory || u.hasIdentifier
				},
			},
			{
				name:   "chat",
				domain: domain.DomainChat,
				match:  func(u utterance) bool { return true },
			},
		},
	}
}

// Route classifies the utterance. A non-empty modeFlag, supplied by the
// surrounding shell when the user is already on a specific screen,
// overrides all text-based domain inference.
func (r *Router) Route(text string, modeFlag domain.Domain) Route {
	lower := strings.ToLower(text)
	u := utterance{
		raw:   text,
		lower: lower,
		// Scrub budget phrases before resolving: "ngân sách" embeds the
		// bounded word "sách", which is a bookstore alias.
		hasCategory:   ResolveCategory(scrubBudgetPhrases(lower)) != OtherCategory,
		hasDigits:     strings.ContainsAny(text, "0123456789"),
		hasIdentifier: identifierRe.MatchString(text),
	}

	route := Route{Domain: domain.DomainChat, Rule: "chat"}
	if modeFlag != "" {
		route.Domain = modeFlag
		route.Rule = "mode-flag"
	} else {
		for _, rule := range r.rules {
			if rule.match(u) {
				route.Domain = rule.domain
				route.Rule = rule.name
				break
			}
		}
	}

	route.Action = classifyAction(u, route.Domain)
	route.Mode = classifyMode(u)
	return route
}

// classifyAction orders delete above add-or-edit above query.
// An expense utterance carrying digits is an add even without an explicit
// verb: "hôm qua ăn sáng 25k" creates a transaction.
func classifyAction(u utterance, d domain.Domain) domain.Action {
	switch {
	case u.containsAny(deleteWords):
		return domain.ActionDelete
	case u.containsAny(adjustWords):
		return domain.ActionUpsert
	case d == domain.DomainExpense && u.hasDigits:
		return domain.ActionAdd
	default:
		return domain.ActionQuery
	}
}

// classifyMode resolves absolute-set versus relative-delta semantics.
// Increase/decrease verbs paired with lên/xuống/thành/to replace the value;
// without the companion they shift it.
func classifyMode(u utterance) domain.AdjustMode {
	companion := u.containsAny(absoluteCompanions)
	switch {
	case u.containsAny(decreaseWords):
		if companion {
			return domain.ModeSet
		}
		return domain.ModeDecrease
	case u.containsAny(increaseWords):
		if companion {
			return domain.ModeSet
		}
		return domain.ModeIncrease
	default:
		return domain.ModeSet
	}
}

func scrubBudgetPhrases(lower string) string {
	for _, w := range append(append([]string{}, budgetWords...), categoryBudgetPhrases...) {
		lower = strings.ReplaceAll(lower, w, " ")
	}
	return lower
}

// WantsDeleteAll reports whether a delete-type utterance targets every
// allocation in scope rather than a single one.
func WantsDeleteAll(text string) bool {
	u := utterance{lower: strings.ToLower(text)}
	return u.containsAny(deleteAllWords)
}
