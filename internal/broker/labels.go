package broker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/appcourier/appcourier/internal/domain"
)

// The selection round trip is a string contract: the 1-based index embedded
// in a poll option label must parse back to the same index. Formatting and
// parsing live side by side here so they cannot drift apart.

var optionIndexRe = regexp.MustCompile(`^(\d+)\.`)

// FormatOptionLabel renders the label shown for candidate number index
// (1-based), e.g. "2. Demo Pro ⭐4.0".
func FormatOptionLabel(index int, c domain.CatalogCandidate) string {
	score := "N/A"
	if c.RatingScore > 0 {
		score = strconv.FormatFloat(c.RatingScore, 'f', 1, 64)
	}
	return fmt.Sprintf("%d. %s ⭐%s", index, c.Title, score)
}

// ParseOptionIndex recovers the 1-based index from a voted option label.
func ParseOptionIndex(label string) (int, error) {
	m := optionIndexRe.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0, fmt.Errorf("option label %q carries no index", label)
	}
	return strconv.Atoi(m[1])
}
