package store

import (
	"fmt"
	"strings"

	"github.com/awakeconnect/awake/apperr"
)

// Collection names a countable set of records. Only the constants below are valid;
// a Collection is spliced into SQL so it must never come straight from user input.
type Collection string

const (
	Users        Collection = "users"
	Students     Collection = "students"
	Donors       Collection = "donors"
	Universities Collection = "universities"
	Applications Collection = "applications"
)

// AllCollections in the order reports print them.
var AllCollections = []Collection{Students, Donors, Universities, Applications, Users}

func (c Collection) Valid() bool {
	for _, known := range AllCollections {
		if c == known {
			return true
		}
	}
	return false
}

// Title is the label used in human readable output, e.g. "Users".
func (c Collection) Title() string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseCollection resolves a user supplied name, case-insensitively.
func ParseCollection(name string) (Collection, error) {
	c := Collection(strings.ToLower(strings.TrimSpace(name)))
	if !c.Valid() {
		return "", apperr.WithFields(
			apperr.Wrap(fmt.Errorf("unknown collection %q", name), apperr.ErrBadRequest, ""),
			map[string]any{"collection": name},
		)
	}
	return c, nil
}
