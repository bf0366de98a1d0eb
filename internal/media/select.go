package media

import (
	"errors"
	"strconv"
	"strings"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/width"
)

// ErrVariantUnavailable is returned when no variant satisfies the requested
// quality and no acceptable fallback exists (typically content that needs
// elevated privileges for the requested tier).
var ErrVariantUnavailable = errors.New("no stream variant matches the requested quality")

// labelMatchThreshold is the Jaro-Winkler score above which a requested
// quality label is considered the same tier as an advertised one.
const labelMatchThreshold = 0.85

// Preference is a requested quality: a rank (0 = best available, larger =
// lower, out-of-range clamps to the lowest tier) or an explicit label.
type Preference struct {
	Rank  int
	Label string
}

// ParsePreference reads a CLI quality argument. Plain integers are ranks,
// anything else is an explicit label.
func ParsePreference(s string) Preference {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return Preference{Rank: n}
	}
	return Preference{Label: s}
}

// Selection is the outcome of Select.
type Selection struct {
	Video *Variant
	Audio *Variant
	// CodecFallback is set when the codec preference could not be honored
	// and the best available codec was chosen instead.
	CodecFallback bool
}

// Select picks the video and audio variants for a part. The quality
// preference is hard (an unknown explicit label fails), the codec
// preference is soft: a tier is never rejected on codec alone.
func Select(set StreamSet, pref Preference, codec string) (Selection, error) {
	tiers := videoTiers(set)
	if len(tiers) == 0 {
		return Selection{}, ErrVariantUnavailable
	}

	var tier []Variant
	if pref.Label != "" {
		tier = tierByLabel(tiers, pref.Label)
		if tier == nil {
			return Selection{}, ErrVariantUnavailable
		}
	} else {
		rank := pref.Rank
		if rank >= len(tiers) {
			rank = len(tiers) - 1 // clamp to lowest tier
		}
		tier = tiers[rank]
	}

	sel := Selection{Audio: bestAudio(set)}
	sel.Video, sel.CodecFallback = pickCodec(tier, codec)
	return sel, nil
}

// videoTiers groups the best-first video list into quality tiers,
// preserving order. Variants within a tier differ only by codec.
func videoTiers(set StreamSet) [][]Variant {
	var tiers [][]Variant
	for _, v := range set.Video {
		if n := len(tiers); n > 0 && tiers[n-1][0].QualityID == v.QualityID {
			tiers[n-1] = append(tiers[n-1], v)
			continue
		}
		tiers = append(tiers, []Variant{v})
	}
	return tiers
}

func tierByLabel(tiers [][]Variant, label string) []Variant {
	want := normalizeLabel(label)
	for _, tier := range tiers {
		got := normalizeLabel(tier[0].Quality)
		if got == want || strings.HasPrefix(got, want) {
			return tier
		}
	}
	// Labels from the service carry decorations ("1080P 高清码率"); fall
	// back to a fuzzy comparison before giving up.
	for _, tier := range tiers {
		score := edlib.JaroWinklerSimilarity(normalizeLabel(tier[0].Quality), want)
		if float64(score) >= labelMatchThreshold {
			return tier
		}
	}
	return nil
}

// normalizeLabel folds full-width characters to ASCII and lowercases, so
// "１０８０Ｐ" and "1080p" compare equal.
func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(width.Narrow.String(s)))
}

func pickCodec(tier []Variant, codec string) (*Variant, bool) {
	if codec == "" {
		return &tier[0], false
	}
	for i := range tier {
		if strings.HasPrefix(tier[i].Codec, codec) {
			return &tier[i], false
		}
	}
	return &tier[0], true
}

func bestAudio(set StreamSet) *Variant {
	if len(set.Audio) == 0 {
		return nil
	}
	return &set.Audio[0]
}
