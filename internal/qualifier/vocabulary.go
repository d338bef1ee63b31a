// Package qualifier holds the read-only qualifier vocabulary used to classify
// sensor readings: which codes mask a reading, which mark it approved or
// estimated, and the palette of mask styles.
package qualifier

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

const (
	// ApprovedCode marks a reading as approved for publication
	ApprovedCode = "A"
	// EstimatedCode marks a reading as estimated
	EstimatedCode = "E"
	// ProvisionalCode marks a reading as provisional. Its absence is not
	// significant; a reading without ApprovedCode is provisional.
	ProvisionalCode = "P"
)

// PaletteSize is the number of distinct mask styles before the palette repeats
const PaletteSize = 14

// defaultMasks maps masking qualifier codes to human-readable reasons
var defaultMasks = map[string]string{
	"ICE": "Ice affected",
	"FLD": "Flood",
	"BKW": "Backwater",
	"ZFL": "Zeroflow",
	"DRY": "Dry",
	"SSN": "Seasonal",
	"PR":  "Partial record",
	"RAT": "Rating development",
	"EQP": "Equipment malfunction",
	"MNT": "Maintenance",
	"DIS": "Discontinued",
	"TST": "Test",
	"PMP": "Pump",
	"***": "Unavailable",
}

// Vocabulary is an immutable qualifier vocabulary. The zero value is not
// usable; build one with New or Default.
type Vocabulary struct {
	masks     map[string]string
	approved  map[string]struct{}
	estimated map[string]struct{}
	palette   []string
}

// Option customizes a Vocabulary under construction
type Option func(*Vocabulary)

// WithApprovedCodes replaces the set of codes that mark a reading approved
func WithApprovedCodes(codes ...string) Option {
	return func(v *Vocabulary) {
		v.approved = codeSet(codes)
	}
}

// WithEstimatedCodes replaces the set of codes that mark a reading estimated
func WithEstimatedCodes(codes ...string) Option {
	return func(v *Vocabulary) {
		v.estimated = codeSet(codes)
	}
}

// WithPalette replaces the mask style palette. An empty palette is ignored.
func WithPalette(styles ...string) Option {
	return func(v *Vocabulary) {
		if len(styles) > 0 {
			v.palette = append([]string(nil), styles...)
		}
	}
}

// New builds a vocabulary from a code -> reason mask table. The table is
// copied, so later changes by the caller have no effect.
func New(masks map[string]string, opts ...Option) *Vocabulary {
	v := &Vocabulary{
		masks:     make(map[string]string, len(masks)),
		approved:  codeSet([]string{ApprovedCode}),
		estimated: codeSet([]string{EstimatedCode}),
		palette:   defaultPalette(),
	}
	for code, reason := range masks {
		v.masks[normalize(code)] = reason
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Default returns the standard hydrologic masking vocabulary
func Default() *Vocabulary {
	return New(defaultMasks)
}

// With returns a new vocabulary with extra mask codes added. Codes already
// present take the new reason.
func (v *Vocabulary) With(extra map[string]string) *Vocabulary {
	merged := lo.Assign(v.masks, lo.MapKeys(extra, func(_ string, code string) string {
		return normalize(code)
	}))

	return &Vocabulary{
		masks:     merged,
		approved:  v.approved,
		estimated: v.estimated,
		palette:   v.palette,
	}
}

// Reason returns the masking reason for a single qualifier code
func (v *Vocabulary) Reason(code string) (string, bool) {
	reason, ok := v.masks[normalize(code)]
	return reason, ok
}

// MaskReasons returns the sorted, de-duplicated masking reasons matched by a
// qualifier set. Codes outside the vocabulary are ignored.
func (v *Vocabulary) MaskReasons(qualifiers []string) []string {
	var reasons []string
	for _, q := range qualifiers {
		if reason, ok := v.Reason(q); ok {
			reasons = append(reasons, reason)
		}
	}
	if len(reasons) == 0 {
		return nil
	}
	reasons = lo.Uniq(reasons)
	sort.Strings(reasons)
	return reasons
}

// IsApproved reports whether any qualifier marks the reading approved
func (v *Vocabulary) IsApproved(qualifiers []string) bool {
	return containsAny(v.approved, qualifiers)
}

// IsEstimated reports whether any qualifier marks the reading estimated
func (v *Vocabulary) IsEstimated(qualifiers []string) bool {
	return containsAny(v.estimated, qualifiers)
}

// Style returns the palette style for the n-th distinct mask label,
// wrapping around once the palette is exhausted.
func (v *Vocabulary) Style(n int) string {
	return v.palette[n%len(v.palette)]
}

// Palette returns a copy of the mask style palette
func (v *Vocabulary) Palette() []string {
	return append([]string(nil), v.palette...)
}

// Codes returns the masking codes in sorted order
func (v *Vocabulary) Codes() []string {
	codes := lo.Keys(v.masks)
	sort.Strings(codes)
	return codes
}

func defaultPalette() []string {
	palette := make([]string, PaletteSize)
	for i := range palette {
		palette[i] = fmt.Sprintf("mask-%d", i)
	}
	return palette
}

func codeSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[normalize(c)] = struct{}{}
	}
	return set
}

func containsAny(set map[string]struct{}, qualifiers []string) bool {
	for _, q := range qualifiers {
		if _, ok := set[normalize(q)]; ok {
			return true
		}
	}
	return false
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
