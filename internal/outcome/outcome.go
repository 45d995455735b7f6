// Package outcome defines the binary outcome domain of the prediction game.
package outcome

import (
	"fmt"
	"regexp"
	"strings"
)

// Outcome is one of the two game results. Alpha is the first enumerated
// value: defaults and tie-breaks always favor it.
type Outcome int

const (
	Alpha Outcome = iota
	Omega
)

// Canonical display labels as produced by the recognition endpoint.
const (
	LabelAlpha = "Альфа"
	LabelOmega = "Омега"
)

func (o Outcome) String() string {
	if o == Omega {
		return LabelOmega
	}
	return LabelAlpha
}

// MarshalJSON encodes the canonical label.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return []byte(`"` + o.String() + `"`), nil
}

// UnmarshalJSON accepts anything Parse accepts.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	v, err := Parse(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Parse maps a user- or endpoint-supplied value to an Outcome. Accepts the
// canonical Russian labels, latin aliases, and the single-key shortcuts used
// by the dashboard ("a"/"o" in either case, latin or cyrillic).
func Parse(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "альфа", "alpha", "a", "а":
		return Alpha, nil
	case "омега", "omega", "o", "о":
		return Omega, nil
	}
	return Alpha, fmt.Errorf("unknown outcome %q", s)
}

// Detection patterns mirror the recognition endpoint: exact words plus
// scattered-letter fallbacks for noisy OCR output.
var (
	alphaPattern = regexp.MustCompile(`(?i)альфа|alpha|а.*л.*ь.*ф.*а`)
	omegaPattern = regexp.MustCompile(`(?i)омега|omega|о.*м.*е.*г.*а`)
)

// Detect scans raw recognized text for an outcome mention. Alpha is checked
// first, matching the endpoint's precedence. Returns false when neither value
// is present.
func Detect(text string) (Outcome, bool) {
	clean := strings.ToLower(strings.TrimSpace(text))
	if clean == "" {
		return Alpha, false
	}
	if alphaPattern.MatchString(clean) {
		return Alpha, true
	}
	if omegaPattern.MatchString(clean) {
		return Omega, true
	}
	return Alpha, false
}
