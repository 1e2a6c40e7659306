package app

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// collate.Collator keeps internal buffers, so every use is serialized
var (
	collatorMu sync.Mutex
	collator   = collate.New(language.English, collate.IgnoreCase)
)

// SetLocale switches the collation used by CompareByName
func SetLocale(locale string) error {
	tag, err := language.Parse(locale)
	if err != nil {
		return err
	}
	collatorMu.Lock()
	collator = collate.New(tag, collate.IgnoreCase)
	collatorMu.Unlock()
	return nil
}

func collateStrings(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

// CompareByName orders apps by display name under the configured locale.
// Names equal under collation fall back to a byte comparison, then to the
// id, so the order is total.
func CompareByName(a, b *App) int {
	an, bn := a.DisplayName(), b.DisplayName()
	if c := collateStrings(an, bn); c != 0 {
		return c
	}
	if c := strings.Compare(an, bn); c != 0 {
		return c
	}
	return strings.Compare(a.id, b.id)
}

// Compare ranks apps for "recently used" surfaces: running or starting apps
// first, then the most recently used, then by name.
func Compare(a, b *App) int {
	aActive, bActive := a.state.Active(), b.state.Active()
	if aActive != bActive {
		if aActive {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(b.lastUserTime, a.lastUserTime); c != 0 {
		return c
	}
	return CompareByName(a, b)
}

// SortByName sorts apps in place with CompareByName
func SortByName(apps []*App) {
	slices.SortStableFunc(apps, CompareByName)
}

// SortByRecency sorts apps in place with Compare
func SortByRecency(apps []*App) {
	slices.SortStableFunc(apps, Compare)
}
