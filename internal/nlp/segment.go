package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/money-assistant/internal/domain"
)

// identifierRe matches explicit record identifiers: "#123", "id 123",
// "id:123", "ID#123".
var identifierRe = regexp.MustCompile(`(?i)#(\d+)|\bid\s*[:#]?\s*(\d+)`)

// connectorRe splits one line into independent clauses. The words "và"/"and"
// only count as connectors when space-delimited, so "vàng" stays intact.
var connectorRe = regexp.MustCompile(`(?i)[,;]|\s+và\s+|\s+and\s+`)

// Segmenter splits an utterance into independent sub-requests and composes
// the extractors into draft operations. It never infers intent itself; the
// route passed in decides which per-segment strategy applies.
type Segmenter struct {
	Now func() time.Time
}

// NewSegmenter returns a segmenter using the wall clock.
func NewSegmenter() *Segmenter {
	return &Segmenter{Now: time.Now}
}

func (s *Segmenter) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Segment turns the utterance into an ordered list of draft operations.
// An empty result for add-type requests means every segment was dropped
// (no amount found); for targeted edit/delete it means no identifier was
// found. Either way the caller surfaces a clarification.
func (s *Segmenter) Segment(text string, route Route) []domain.Operation {
	switch route.Domain {
	case domain.DomainExpense:
		return s.segmentExpense(text, route)
	case domain.DomainMonthlyBudget:
		return s.segmentMonthlyBudget(text, route)
	case domain.DomainCategoryBudget:
		return s.segmentCategoryBudget(text, route)
	default:
		return nil
	}
}

func (s *Segmenter) segmentExpense(text string, route Route) []domain.Operation {
	switch route.Action {
	case domain.ActionDelete:
		return s.targetedOps(text, route)
	case domain.ActionUpsert:
		if identifierRe.MatchString(text) {
			return s.targetedOps(text, route)
		}
		return s.expenseAddOps(text)
	case domain.ActionAdd:
		return s.expenseAddOps(text)
	default:
		now := s.now()
		return []domain.Operation{{
			Action: domain.ActionQuery,
			Domain: domain.DomainExpense,
			Date:   domain.DaySpec(ExtractDate(text, now)),
		}}
	}
}

// expenseAddOps processes each line with its own date, then splits the line
// on connectors. Segments that yield no amount are dropped silently; bulk
// adds are best-effort by design.
func (s *Segmenter) expenseAddOps(text string) []domain.Operation {
	now := s.now()
	var ops []domain.Operation

	for _, line := range splitLines(text) {
		date := ExtractDate(line, now)
		for _, seg := range splitConnectors(line) {
			amount, ok := ExtractAmountToken(seg)
			if !ok {
				continue
			}
			category, catToken := ResolveCategoryToken(seg)
			ops = append(ops, domain.Operation{
				Action:      domain.ActionAdd,
				Domain:      domain.DomainExpense,
				Category:    category,
				Amount:      amount.Value,
				HasAmount:   true,
				Date:        domain.DaySpec(date),
				Description: describeSegment(seg, amount.Token, catToken, category),
			})
		}
	}
	return ops
}

// targetedOps scans every segment for explicit identifiers. Each match
// yields one operation; amount and category, when present alongside the
// identifier, ride along for edits.
func (s *Segmenter) targetedOps(text string, route Route) []domain.Operation {
	now := s.now()
	var ops []domain.Operation

	for _, line := range splitLines(text) {
		for _, seg := range splitConnectors(line) {
			for _, m := range identifierRe.FindAllStringSubmatch(seg, -1) {
				id := firstGroup(m)
				if id == 0 {
					continue
				}
				op := domain.Operation{
					Action:   route.Action,
					Domain:   domain.DomainExpense,
					TargetID: id,
					Date:     domain.DaySpec(ExtractDate(line, now)),
				}
				stripped := identifierRe.ReplaceAllString(seg, " ")
				if amount, ok := ExtractAmountToken(stripped); ok {
					op.Amount = amount.Value
					op.HasAmount = true
				}
				if cat, _ := ResolveCategoryToken(stripped); cat != OtherCategory {
					op.Category = cat
				}
				ops = append(ops, op)
			}
		}
	}
	return ops
}

func (s *Segmenter) segmentMonthlyBudget(text string, route Route) []domain.Operation {
	now := s.now()
	month, year := ExtractMonthYear(text, now)
	op := domain.Operation{
		Action: route.Action,
		Domain: domain.DomainMonthlyBudget,
		Date:   domain.MonthSpec(month, year),
		Mode:   route.Mode,
	}

	switch route.Action {
	case domain.ActionDelete, domain.ActionQuery:
		return []domain.Operation{op}
	default:
		amount, ok := ExtractAmount(text)
		if !ok {
			return nil
		}
		op.Action = domain.ActionUpsert
		op.Amount = amount
		op.HasAmount = true
		return []domain.Operation{op}
	}
}

func (s *Segmenter) segmentCategoryBudget(text string, route Route) []domain.Operation {
	now := s.now()
	month, year := ExtractMonthYear(text, now)
	date := domain.MonthSpec(month, year)

	if route.Action == domain.ActionDelete {
		if WantsDeleteAll(text) {
			// Empty category marks a delete-all request.
			return []domain.Operation{{
				Action: domain.ActionDelete,
				Domain: domain.DomainCategoryBudget,
				Date:   date,
			}}
		}
		var ops []domain.Operation
		for _, seg := range splitAll(text) {
			if cat := budgetSegmentCategory(seg); cat != OtherCategory {
				ops = append(ops, domain.Operation{
					Action:   domain.ActionDelete,
					Domain:   domain.DomainCategoryBudget,
					Category: cat,
					Date:     date,
				})
			}
		}
		return ops
	}

	if route.Action == domain.ActionQuery {
		return []domain.Operation{{
			Action: domain.ActionQuery,
			Domain: domain.DomainCategoryBudget,
			Date:   date,
		}}
	}

	// Add-or-edit: one allocation per segment carrying both a category and
	// an amount ("đặt ngân sách ăn uống 2tr, di chuyển 1tr").
	var ops []domain.Operation
	for _, seg := range splitAll(text) {
		cat := budgetSegmentCategory(seg)
		if cat == OtherCategory {
			continue
		}
		amount, ok := ExtractAmount(seg)
		if !ok {
			continue
		}
		ops = append(ops, domain.Operation{
			Action:    domain.ActionUpsert,
			Domain:    domain.DomainCategoryBudget,
			Category:  cat,
			Amount:    amount,
			HasAmount: true,
			Date:      date,
			Mode:      route.Mode,
		})
	}
	return ops
}

// budgetSegmentCategory resolves a category inside a budget-domain
// segment. Budget phrases are scrubbed first: "ngân sách" embeds the
// bounded word "sách", which is a bookstore alias.
func budgetSegmentCategory(seg string) string {
	return ResolveCategory(scrubBudgetPhrases(strings.ToLower(seg)))
}

// describeSegment builds the free-text description: the segment with the
// matched amount and category tokens removed. Empty descriptions fall back
// to the resolved category name.
func describeSegment(seg, amountToken, catToken, category string) string {
	desc := seg
	if amountToken != "" {
		desc = strings.Replace(desc, amountToken, " ", 1)
	}
	if catToken != "" {
		desc = strings.Replace(desc, catToken, " ", 1)
	}
	desc = strings.Trim(desc, " \t.,;:-")
	desc = strings.Join(strings.Fields(desc), " ")
	if desc == "" {
		return category
	}
	return desc
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func splitConnectors(line string) []string {
	var out []string
	for _, seg := range connectorRe.Split(line, -1) {
		if strings.TrimSpace(seg) != "" {
			out = append(out, strings.TrimSpace(seg))
		}
	}
	return out
}

func splitAll(text string) []string {
	var out []string
	for _, line := range splitLines(text) {
		out = append(out, splitConnectors(line)...)
	}
	return out
}

func firstGroup(m []string) int64 {
	for _, g := range m[1:] {
		if g != "" {
			id, _ := strconv.ParseInt(g, 10, 64)
			return id
		}
	}
	return 0
}
