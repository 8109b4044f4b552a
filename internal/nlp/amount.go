package nlp

import (
	"strconv"
	"strings"
	"unicode"
)

// unitWord is one recognized magnitude word with its multiplier.
type unitWord struct {
	word string
	mult int64
}

// Recognized unit words, longest spelling first so prefix variants
// ("tr" vs "triệu") never shadow each other.
var unitWords = []unitWord{
	{"triệu", 1_000_000},
	{"trieu", 1_000_000},
	{"nghìn", 1_000},
	{"nghin", 1_000},
	{"ngàn", 1_000},
	{"ngan", 1_000},
	{"tỷ", 1_000_000_000},
	{"tỉ", 1_000_000_000},
	{"ty", 1_000_000_000},
	{"tr", 1_000_000},
	{"k", 1_000},
}

// AmountMatch is the outcome of scanning a segment for a monetary value.
type AmountMatch struct {
	Value int64
	Token string // the exact substring matched, for description stripping
	Start int
	End   int
}

// amountCandidate is one numeric token found in a segment.
type amountCandidate struct {
	value   int64
	start   int
	end     int
	hasUnit bool
}

// ExtractAmount parses a monetary value out of a text segment.
// The boolean is false when the segment holds no digits at all; that is
// not an error, it signals the segment carries no monetary content.
func ExtractAmount(segment string) (int64, bool) {
	m, ok := ExtractAmountToken(segment)
	if !ok {
		return 0, false
	}
	return m.Value, true
}

// ExtractAmountToken is ExtractAmount plus the matched token.
//
// Rules, in order of preference:
//   - plain digit sequences (with . or , thousands separators) are literal
//   - unit suffixes scale the value: k/nghìn/ngàn x1e3, tr/triệu x1e6, tỷ x1e9
//   - compound phrases ("8 tỷ 6", "2 triệu 5") add the trailing digit at one
//     order of magnitude below the primary unit
//   - a candidate adjacent to a unit word beats a bare number
func ExtractAmountToken(segment string) (AmountMatch, bool) {
	candidates := scanAmounts(segment)
	if len(candidates) == 0 {
		return AmountMatch{}, false
	}

	// Prefer the first unit-adjacent candidate; otherwise the last bare
	// number, which in practice trails the description ("ăn sáng 25000").
	chosen := candidates[len(candidates)-1]
	for _, c := range candidates {
		if c.hasUnit {
			chosen = c
			break
		}
	}

	return AmountMatch{
		Value: chosen.value,
		Token: segment[chosen.start:chosen.end],
		Start: chosen.start,
		End:   chosen.end,
	}, true
}

// scanAmounts walks the segment left to right collecting numeric candidates.
func scanAmounts(segment string) []amountCandidate {
	var out []amountCandidate
	runes := []rune(segment)
	offsets := runeOffsets(segment)

	for i := 0; i < len(runes); {
		if !unicode.IsDigit(runes[i]) {
			i++
			continue
		}

		start := i
		value, next := readNumber(runes, i)
		i = next
		end := i

		// A unit word may follow, optionally separated by spaces.
		j := skipSpaces(runes, i)
		if mult, wordEnd, ok := readUnit(runes, j); ok {
			value *= mult
			end = wordEnd
			i = wordEnd

			// Compound sub-unit: a bare trailing digit run immediately
			// after the unit ("8 tỷ 6"). It contributes at one order of
			// magnitude below the primary unit and must not carry its
			// own unit word.
			k := skipSpaces(runes, i)
			if k < len(runes) && unicode.IsDigit(runes[k]) {
				sub, subEnd := readNumber(runes, k)
				afterSub := skipSpaces(runes, subEnd)
				if _, _, hasOwnUnit := readUnit(runes, afterSub); !hasOwnUnit && sub < 10 {
					value += sub * mult / 10
					end = subEnd
					i = subEnd
				}
			}

			out = append(out, amountCandidate{
				value:   value,
				start:   offsets[start],
				end:     offsetEnd(offsets, segment, end),
				hasUnit: true,
			})
			continue
		}

		out = append(out, amountCandidate{
			value: value,
			start: offsets[start],
			end:   offsetEnd(offsets, segment, end),
		})
	}
	return out
}

// readNumber consumes a digit run with optional . or , thousands separators.
// A separator only continues the number when followed by exactly three
// digits, so "25,3" is two candidates while "1.000.000" is one.
func readNumber(runes []rune, i int) (int64, int) {
	var digits strings.Builder
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
			i++
		case (r == '.' || r == ',') && isSeparatorGroup(runes, i):
			i++ // skip the separator, keep reading the group
		default:
			value, _ := strconv.ParseInt(digits.String(), 10, 64)
			return value, i
		}
	}
	value, _ := strconv.ParseInt(digits.String(), 10, 64)
	return value, i
}

// isSeparatorGroup reports whether the rune at i starts a ".ddd" or ",ddd"
// thousands group that is not followed by a fourth digit.
func isSeparatorGroup(runes []rune, i int) bool {
	for k := 1; k <= 3; k++ {
		if i+k >= len(runes) || !unicode.IsDigit(runes[i+k]) {
			return false
		}
	}
	// A fourth digit would make it a decimal-style tail, not a group.
	if i+4 < len(runes) && unicode.IsDigit(runes[i+4]) {
		return false
	}
	return true
}

// readUnit tries to read a recognized unit word at position i.
// The word must end at a non-letter boundary so "trong" never reads as "tr".
func readUnit(runes []rune, i int) (mult int64, end int, ok bool) {
	if i >= len(runes) {
		return 0, 0, false
	}
	rest := strings.ToLower(string(runes[i:]))
	for _, u := range unitWords {
		if !strings.HasPrefix(rest, u.word) {
			continue
		}
		wordLen := len([]rune(u.word))
		if i+wordLen < len(runes) && unicode.IsLetter(runes[i+wordLen]) {
			continue
		}
		return u.mult, i + wordLen, true
	}
	return 0, 0, false
}

func skipSpaces(runes []rune, i int) int {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}

// runeOffsets maps rune indices to byte offsets for token slicing.
func runeOffsets(s string) []int {
	offsets := make([]int, 0, len(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return offsets
}

func offsetEnd(offsets []int, s string, runeEnd int) int {
	if runeEnd >= len(offsets) {
		return len(s)
	}
	return offsets[runeEnd]
}
