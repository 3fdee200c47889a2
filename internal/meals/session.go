// Package meals models the dated meal sessions of an order and the line
// items served in them.
package meals

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Breakfast = "breakfast"
	Lunch     = "lunch"
	Dinner    = "dinner"
	Snacks    = "snacks"
	Other     = "other"
)

const dateLayout = "2006-01-02"

// MealSession is one dated meal booking within an order.
type MealSession struct {
	Key             string   `json:"sessionKey"`
	MenuType        string   `json:"menuType,omitempty"`
	Date            string   `json:"date,omitempty"`
	NumberOfMembers *int     `json:"numberOfMembers,omitempty"`
	Services        []string `json:"services,omitempty"`
	Amount          float64  `json:"amount"`
}

// LineItem always belongs to exactly one session of one order.
type LineItem struct {
	ID            string `json:"id"`
	SessionKey    string `json:"sessionKey"`
	MenuItemID    string `json:"menuItemId,omitempty"`
	ItemName      string `json:"itemName"`
	Customization string `json:"customization,omitempty"`
	MenuType      string `json:"menuType,omitempty"`
}

// NormalizeMenuType maps free-form labels onto the known meal types.
func NormalizeMenuType(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "breakfast":
		return Breakfast
	case "lunch":
		return Lunch
	case "dinner":
		return Dinner
	case "snacks", "snack":
		return Snacks
	case "":
		return ""
	}
	return Other
}

// Priority orders sessions inside one day.
func Priority(menuType string) int {
	switch NormalizeMenuType(menuType) {
	case Breakfast:
		return 1
	case Lunch:
		return 2
	case Dinner:
		return 3
	case Snacks:
		return 4
	}
	return 99
}

// NewSessionKey returns a key of the form session_<TYPE>_<serial>.
func NewSessionKey(menuType string) string {
	t := strings.ToUpper(strings.TrimSpace(menuType))
	if t == "" {
		t = strings.ToUpper(Other)
	}
	return fmt.Sprintf("session_%s_%s", t, uuid.NewString()[:8])
}

// MenuTypeFromKey parses the type out of a session_<TYPE>_<serial> key.
// Older orders keyed their amounts by the meal type itself ("lunch"), which
// is recognised too. It returns "" when nothing can be parsed.
func MenuTypeFromKey(key string) string {
	parts := strings.SplitN(key, "_", 3)
	if len(parts) == 3 && strings.EqualFold(parts[0], "session") && parts[1] != "" {
		return strings.ToUpper(parts[1])
	}
	if NormalizeMenuType(key) != Other && NormalizeMenuType(key) != "" {
		return strings.ToUpper(key)
	}
	return ""
}

// Label picks the display menu type: the session's own, then the key
// prefix, then the item's tag, then OTHER.
func Label(sessionMenuType, key, itemMenuType string) string {
	if s := strings.TrimSpace(sessionMenuType); s != "" {
		return strings.ToUpper(s)
	}
	if s := MenuTypeFromKey(key); s != "" {
		return s
	}
	if s := strings.TrimSpace(itemMenuType); s != "" {
		return strings.ToUpper(s)
	}
	return strings.ToUpper(Other)
}

var dateLayouts = []string{
	dateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02/01/2006",
}

// ParseDate accepts the date shapes found in stored sessions.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// NormalizeDate returns YYYY-MM-DD, or the trimmed input if it cannot be parsed.
func NormalizeDate(raw string) string {
	if t, ok := ParseDate(raw); ok {
		return t.Format(dateLayout)
	}
	return strings.TrimSpace(raw)
}

// ResolveSession looks a key up exactly first, then case-insensitively.
// Historical orders carry inconsistent casing; the scan walks keys in
// sorted order so the result never depends on map iteration.
func ResolveSession(sessions map[string]MealSession, key string) (MealSession, bool) {
	if s, ok := sessions[key]; ok {
		if s.Key == "" {
			s.Key = key
		}
		return s, true
	}
	for _, k := range sortedKeys(sessions) {
		if strings.EqualFold(k, key) {
			s := sessions[k]
			if s.Key == "" {
				s.Key = k
			}
			return s, true
		}
	}
	return MealSession{}, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
