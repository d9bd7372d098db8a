// Package mood holds the batch mood contract: the closed label set, the
// time-of-day buckets fed to the model, and predictors that produce a label.
package mood

import (
	"errors"
	"fmt"
	"strings"
)

// Label is one of the fixed mood categories.
type Label string

const (
	Happy     Label = "happy"
	Angry     Label = "angry"
	Sad       Label = "sad"
	Energized Label = "energized"
)

// Labels is the closed set a predictor may return, in prompt order.
var Labels = []Label{Happy, Angry, Sad, Energized}

var ErrInvalidLabel = errors.New("mood label outside the allowed set")

// ParseLabel accepts a label regardless of case and surrounding whitespace.
func ParseLabel(s string) (Label, error) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
	return l, nil
}

func (l Label) Valid() bool {
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}

func (l Label) String() string {
	return string(l)
}

func labelStrings() []string {
	out := make([]string, len(Labels))
	for i, l := range Labels {
		out[i] = string(l)
	}
	return out
}
