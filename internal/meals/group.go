package meals

import (
	"sort"
	"strings"
)

// SessionGroup is one session of one day with the items served in it.
type SessionGroup struct {
	Key      string     `json:"sessionKey"`
	MenuType string     `json:"menuType"`
	Members  *int       `json:"members,omitempty"`
	Services []string   `json:"services,omitempty"`
	Amount   float64    `json:"amount"`
	Items    []LineItem `json:"items"`
}

// DateGroup holds the sessions of one day in meal order.
type DateGroup struct {
	Date     string         `json:"date"`
	Sessions []SessionGroup `json:"sessions"`
}

// GroupByDateThenSession rebuilds the date -> session -> item hierarchy
// every document is laid out from.
//
// Items are bucketed by their resolved session key, not by menu type, so
// two lunch bookings on the same day stay two groups. An item whose session
// cannot be resolved is kept under legacy_<menutype> on fallbackDate.
// Dates ascend (unparseable last); within a day sessions follow meal
// priority, then key. Items keep their input order.
func GroupByDateThenSession(items []LineItem, sessions map[string]MealSession, fallbackDate string) []DateGroup {
	return group(items, sessions, fallbackDate, false)
}

// GroupAllSessions is GroupByDateThenSession that also lists sessions
// without any item, as amount-only bills need them.
func GroupAllSessions(items []LineItem, sessions map[string]MealSession, fallbackDate string) []DateGroup {
	return group(items, sessions, fallbackDate, true)
}

func group(items []LineItem, sessions map[string]MealSession, fallbackDate string, includeEmpty bool) []DateGroup {
	byDate := make(map[string]map[string]*SessionGroup)

	bucket := func(date, key string, init func() *SessionGroup) *SessionGroup {
		day, ok := byDate[date]
		if !ok {
			day = make(map[string]*SessionGroup)
			byDate[date] = day
		}
		g, ok := day[key]
		if !ok {
			g = init()
			day[key] = g
		}
		return g
	}

	sessionDate := func(s MealSession) string {
		if strings.TrimSpace(s.Date) != "" {
			return NormalizeDate(s.Date)
		}
		return NormalizeDate(fallbackDate)
	}

	fromSession := func(s MealSession, itemMenuType string) func() *SessionGroup {
		return func() *SessionGroup {
			return &SessionGroup{
				Key:      s.Key,
				MenuType: Label(s.MenuType, s.Key, itemMenuType),
				Members:  s.NumberOfMembers,
				Services: s.Services,
				Amount:   s.Amount,
				Items:    []LineItem{},
			}
		}
	}

	if includeEmpty {
		for _, k := range sortedKeys(sessions) {
			s, _ := ResolveSession(sessions, k)
			bucket(sessionDate(s), s.Key, fromSession(s, ""))
		}
	}

	for _, item := range items {
		if s, ok := ResolveSession(sessions, item.SessionKey); ok {
			g := bucket(sessionDate(s), s.Key, fromSession(s, item.MenuType))
			g.Items = append(g.Items, item)
			continue
		}

		label := Label("", item.SessionKey, item.MenuType)
		key := "legacy_" + strings.ToLower(label)
		g := bucket(NormalizeDate(fallbackDate), key, func() *SessionGroup {
			return &SessionGroup{Key: key, MenuType: label, Items: []LineItem{}}
		})
		g.Items = append(g.Items, item)
	}

	out := make([]DateGroup, 0, len(byDate))
	for date, day := range byDate {
		dg := DateGroup{Date: date, Sessions: make([]SessionGroup, 0, len(day))}
		for _, g := range day {
			dg.Sessions = append(dg.Sessions, *g)
		}
		sort.Slice(dg.Sessions, func(i, j int) bool {
			a, b := dg.Sessions[i], dg.Sessions[j]
			if pa, pb := Priority(a.MenuType), Priority(b.MenuType); pa != pb {
				return pa < pb
			}
			return a.Key < b.Key
		})
		out = append(out, dg)
	}

	sort.Slice(out, func(i, j int) bool {
		return dateLess(out[i].Date, out[j].Date)
	})
	return out
}

func dateLess(a, b string) bool {
	ta, okA := ParseDate(a)
	tb, okB := ParseDate(b)
	switch {
	case okA && okB:
		if !ta.Equal(tb) {
			return ta.Before(tb)
		}
		return a < b
	case okA:
		return true
	case okB:
		return false
	}
	return a < b
}
