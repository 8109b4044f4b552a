package nlp

import (
	"sort"
	"strings"
	"unicode"
)

// OtherCategory is the fallback when no canonical name or alias matches.
const OtherCategory = "Other"

// Category is one canonical spending/income classification with its
// Vietnamese display name and the alias terms that resolve to it.
type Category struct {
	Name           string // canonical name, used everywhere downstream
	VietnameseName string
	Aliases        []string
}

// Categories is the fixed canonical taxonomy. Resolution is many-to-one:
// every alias maps to exactly one canonical name.
var Categories = []Category{
	{Name: "Food", VietnameseName: "Ăn uống", Aliases: []string{"ăn sáng", "ăn trưa", "ăn tối", "ăn vặt", "an uong", "đồ ăn", "breakfast", "lunch", "dinner", "food"}},
	{Name: "Cafe & Dining Out", VietnameseName: "Cà phê & Ăn ngoài", Aliases: []string{"cà phê", "ca phe", "cafe", "coffee", "trà sữa", "tra sua", "nhà hàng", "nha hang", "restaurant", "quán", "milk tea"}},
	{Name: "Groceries", VietnameseName: "Chợ & Siêu thị", Aliases: []string{"đi chợ", "siêu thị", "sieu thi", "di cho", "grocery", "tạp hóa"}},
	{Name: "Transport", VietnameseName: "Di chuyển", Aliases: []string{"xe buýt", "xe bus", "taxi", "grab", "xe ôm", "di chuyển", "di chuyen", "vé xe", "bus", "train", "tàu"}},
	{Name: "Fuel", VietnameseName: "Xăng xe", Aliases: []string{"xăng", "xang", "đổ xăng", "do xang", "petrol", "gas"}},
	{Name: "Housing", VietnameseName: "Nhà ở", Aliases: []string{"tiền nhà", "tien nha", "thuê nhà", "thue nha", "rent", "nhà trọ", "nha tro"}},
	{Name: "Utilities", VietnameseName: "Điện nước", Aliases: []string{"tiền điện", "tien dien", "tiền nước", "tien nuoc", "electricity", "water bill", "điện nước"}},
	{Name: "Internet", VietnameseName: "Internet", Aliases: []string{"wifi", "mạng", "cáp quang", "cap quang"}},
	{Name: "Phone", VietnameseName: "Điện thoại", Aliases: []string{"điện thoại", "dien thoai", "nạp thẻ", "nap the", "topup", "sim"}},
	{Name: "Shopping", VietnameseName: "Mua sắm", Aliases: []string{"mua sắm", "mua sam", "quần áo", "quan ao", "giày", "giay", "clothes", "shopee", "lazada", "tiki"}},
	{Name: "Beauty", VietnameseName: "Làm đẹp", Aliases: []string{"làm đẹp", "lam dep", "mỹ phẩm", "my pham", "spa", "cắt tóc", "cat toc", "salon"}},
	{Name: "Health", VietnameseName: "Sức khỏe", Aliases: []string{"thuốc", "thuoc", "khám bệnh", "kham benh", "bệnh viện", "benh vien", "medicine", "doctor", "hospital"}},
	{Name: "Sports", VietnameseName: "Thể thao", Aliases: []string{"thể thao", "the thao", "gym", "bóng đá", "bong da", "yoga", "cầu lông", "cau long"}},
	{Name: "Education", VietnameseName: "Giáo dục", Aliases: []string{"học phí", "hoc phi", "sách", "sach", "khóa học", "khoa hoc", "tuition", "course", "book"}},
	{Name: "Entertainment", VietnameseName: "Giải trí", Aliases: []string{"giải trí", "giai tri", "xem phim", "phim", "game", "karaoke", "movie", "netflix", "nhạc", "concert"}},
	{Name: "Travel", VietnameseName: "Du lịch", Aliases: []string{"du lịch", "du lich", "vé máy bay", "ve may bay", "khách sạn", "khach san", "hotel", "flight", "tour"}},
	{Name: "Pets", VietnameseName: "Thú cưng", Aliases: []string{"thú cưng", "thu cung", "chó", "mèo", "meo", "pet", "thức ăn mèo"}},
	{Name: "Kids", VietnameseName: "Con cái", Aliases: []string{"con cái", "con cai", "sữa em bé", "bỉm", "bim", "đồ chơi", "do choi", "toy"}},
	{Name: "Gifts & Donations", VietnameseName: "Quà tặng & Từ thiện", Aliases: []string{"quà tặng", "qua tang", "quà", "mừng cưới", "mung cuoi", "từ thiện", "tu thien", "gift", "donation"}},
	{Name: "Insurance", VietnameseName: "Bảo hiểm", Aliases: []string{"bảo hiểm", "bao hiem", "insurance"}},
	{Name: "Bills & Fees", VietnameseName: "Hóa đơn & Phí", Aliases: []string{"hóa đơn", "hoa don", "phí", "lệ phí", "le phi", "fee", "bill"}},
	{Name: "Investment", VietnameseName: "Đầu tư", Aliases: []string{"đầu tư", "dau tu", "chứng khoán", "chung khoan", "cổ phiếu", "co phieu", "stock", "crypto", "vàng"}},
	{Name: "Savings", VietnameseName: "Tiết kiệm", Aliases: []string{"tiết kiệm", "tiet kiem", "gửi tiết kiệm", "saving"}},
	{Name: "Debt", VietnameseName: "Trả nợ", Aliases: []string{"trả nợ", "tra no", "vay", "nợ", "loan", "debt"}},
	{Name: "Salary", VietnameseName: "Lương", Aliases: []string{"lương", "luong", "tiền lương", "salary", "wage"}},
	{Name: "Bonus", VietnameseName: "Thưởng", Aliases: []string{"thưởng", "thuong", "tiền thưởng", "bonus", "lì xì", "li xi"}},
	{Name: "Other", VietnameseName: "Khác", Aliases: []string{"khác", "khac", "linh tinh", "other", "misc"}},
}

// incomeCategories are the canonical names whose transactions carry a
// positive sign.
var incomeCategories = map[string]bool{
	"Salary": true,
	"Bonus":  true,
}

// IsIncomeCategory reports whether transactions in the category are income.
func IsIncomeCategory(name string) bool {
	return incomeCategories[name]
}

// CategoryNames returns the canonical names in taxonomy order.
func CategoryNames() []string {
	names := make([]string, 0, len(Categories))
	for _, c := range Categories {
		names = append(names, c.Name)
	}
	return names
}

// categoryMatch is one candidate hit found while resolving a segment.
type categoryMatch struct {
	canonical string
	token     string // the matched substring as it appears in the segment
	start     int
}

// ResolveCategory maps a text segment to one canonical category name,
// falling back to OtherCategory. Pure function over the static taxonomy.
func ResolveCategory(segment string) string {
	name, _ := ResolveCategoryToken(segment)
	return name
}

// ResolveCategoryToken resolves a segment and also returns the matched
// substring so callers can strip it from the free-text description.
// The empty token means the fallback was used.
func ResolveCategoryToken(segment string) (string, string) {
	// Canonical names first: longest match wins.
	if m, ok := bestMatch(segment, canonicalTerms()); ok {
		return m.canonical, m.token
	}
	// Then the alias table.
	if m, ok := bestMatch(segment, aliasTerms()); ok {
		return m.canonical, m.token
	}
	return OtherCategory, ""
}

// term pairs a searchable string with the canonical category it maps to.
type term struct {
	text      string
	canonical string
}

var (
	canonicalTermsCache []term
	aliasTermsCache     []term
)

func canonicalTerms() []term {
	if canonicalTermsCache == nil {
		for _, c := range Categories {
			canonicalTermsCache = append(canonicalTermsCache,
				term{text: c.Name, canonical: c.Name},
				term{text: c.VietnameseName, canonical: c.Name},
			)
		}
		sortByLength(canonicalTermsCache)
	}
	return canonicalTermsCache
}

func aliasTerms() []term {
	if aliasTermsCache == nil {
		for _, c := range Categories {
			for _, a := range c.Aliases {
				aliasTermsCache = append(aliasTermsCache, term{text: a, canonical: c.Name})
			}
		}
		sortByLength(aliasTermsCache)
	}
	return aliasTermsCache
}

func sortByLength(terms []term) {
	sort.SliceStable(terms, func(i, j int) bool {
		return len([]rune(terms[i].text)) > len([]rune(terms[j].text))
	})
}

// bestMatch returns the first (longest, since terms are pre-sorted) term
// present in the segment as a boundary-delimited substring.
func bestMatch(segment string, terms []term) (categoryMatch, bool) {
	lower := strings.ToLower(segment)
	for _, t := range terms {
		needle := strings.ToLower(t.text)
		if start, ok := boundedIndex(lower, needle); ok {
			end := start + len(needle)
			return categoryMatch{
				canonical: t.canonical,
				token:     segment[start:end],
				start:     start,
			}, true
		}
	}
	return categoryMatch{}, false
}

// boundedIndex finds needle in haystack such that both sides of the match
// are non-alphanumeric (or the string edge). This avoids matching inside
// a longer unrelated word.
func boundedIndex(haystack, needle string) (int, bool) {
	if needle == "" {
		return 0, false
	}
	for from := 0; from < len(haystack); {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return 0, false
		}
		start := from + idx
		end := start + len(needle)
		if boundaryBefore(haystack, start) && boundaryAfter(haystack, end) {
			return start, true
		}
		from = start + 1
	}
	return 0, false
}

func boundaryBefore(s string, pos int) bool {
	if pos == 0 {
		return true
	}
	r := lastRuneBefore(s, pos)
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, pos int) bool {
	if pos >= len(s) {
		return true
	}
	r := firstRuneAt(s, pos)
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func lastRuneBefore(s string, pos int) rune {
	runes := []rune(s[:pos])
	if len(runes) == 0 {
		return ' '
	}
	return runes[len(runes)-1]
}

func firstRuneAt(s string, pos int) rune {
	for _, r := range s[pos:] {
		return r
	}
	return ' '
}
