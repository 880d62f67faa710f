package taskutil

import (
	"regexp"

	"github.com/opst/eoflow/pkg/domain"
)

// SynchronizationParameter is the name of the source port which marks
// a data source as synchronized with another one.
const SynchronizationParameter = "synchronizeWith"

var dateToken = regexp.MustCompile(`\d{4}[0-1]\d[0-3]\d`)

// Couple is a pair of outputs of synchronized data sources.
//
// Secondary is nil when no secondary output shares the date of Primary.
type Couple struct {
	Primary   *string
	Secondary *string
}

// DateToken returns the first 8-digit date (yyyymmdd) embedded in s.
func DateToken(s string) (string, bool) {
	tok := dateToken.FindString(s)
	return tok, tok != ""
}

// CoupleTaskOutputs pairs each primary value with the first secondary value sharing its date token.
//
// The result has one Couple per primary value, in order.
// This is a best-effort join: values without date tokens have no secondary.
func CoupleTaskOutputs(primary, secondary []string) []Couple {
	byDate := map[string]string{}
	for _, s := range secondary {
		tok, ok := DateToken(s)
		if !ok {
			continue
		}
		if _, seen := byDate[tok]; !seen {
			byDate[tok] = s
		}
	}

	couples := make([]Couple, 0, len(primary))
	for i := range primary {
		c := Couple{Primary: &primary[i]}
		if tok, ok := DateToken(primary[i]); ok {
			if s, ok := byDate[tok]; ok {
				c.Secondary = &s
			}
		}
		couples = append(couples, c)
	}
	return couples
}

// IsSynchronized tells whether the component is a data source synchronized with another one.
func IsSynchronized(c domain.Component) bool {
	if c.Kind != domain.DataSource {
		return false
	}
	_, ok := c.Source(SynchronizationParameter)
	return ok
}
