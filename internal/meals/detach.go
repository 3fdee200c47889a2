package meals

import (
	"errors"
	"strings"
)

var (
	ErrSingleSession   = errors.New("order has only one session")
	ErrSessionNotFound = errors.New("session not found in order")
	ErrDateNotFound    = errors.New("no session on that date")
	ErrWouldEmptyOrder = errors.New("detaching would leave the order without sessions")
	ErrNothingToMerge  = errors.New("at least two orders are needed to merge")
)

// Booking is the part of an order that owns sessions and their items.
type Booking struct {
	Sessions MealTypeAmounts
	Items    []LineItem
}

// DetachSession splits one session, and the items booked in it, out of b.
// b itself is not modified.
func DetachSession(b Booking, sessionKey string) (remaining, detached Booking, err error) {
	sessions := b.Sessions.Sessions()
	if len(sessions) <= 1 {
		return Booking{}, Booking{}, ErrSingleSession
	}

	s, ok := ResolveSession(sessions, sessionKey)
	if !ok {
		return Booking{}, Booking{}, ErrSessionNotFound
	}

	remaining, detached = split(b, map[string]bool{s.Key: true})
	return remaining, detached, nil
}

// DetachDate splits every session dated date out of b.
func DetachDate(b Booking, date string) (remaining, detached Booking, err error) {
	sessions := b.Sessions.Sessions()
	if len(sessions) <= 1 {
		return Booking{}, Booking{}, ErrSingleSession
	}

	want := NormalizeDate(date)
	keys := make(map[string]bool)
	for key, s := range sessions {
		if s.Date != "" && NormalizeDate(s.Date) == want {
			keys[key] = true
		}
	}

	switch {
	case len(keys) == 0:
		return Booking{}, Booking{}, ErrDateNotFound
	case len(keys) == len(sessions):
		return Booking{}, Booking{}, ErrWouldEmptyOrder
	}

	remaining, detached = split(b, keys)
	return remaining, detached, nil
}

func split(b Booking, keys map[string]bool) (remaining, detached Booking) {
	remaining = Booking{Sessions: make(MealTypeAmounts), Items: []LineItem{}}
	detached = Booking{Sessions: make(MealTypeAmounts), Items: []LineItem{}}

	for key, v := range b.Sessions {
		if keys[key] {
			detached.Sessions[key] = v
		} else {
			remaining.Sessions[key] = v
		}
	}

	sessions := b.Sessions.Sessions()
	for _, item := range b.Items {
		if s, ok := ResolveSession(sessions, item.SessionKey); ok && keys[s.Key] {
			detached.Items = append(detached.Items, item)
			continue
		}
		remaining.Items = append(remaining.Items, item)
	}
	return remaining, detached
}

// Merge combines several bookings into one. A session key already taken
// (ignoring case) is replaced by a fresh key and the items booked under it
// follow the new key.
func Merge(bookings ...Booking) (Booking, error) {
	if len(bookings) < 2 {
		return Booking{}, ErrNothingToMerge
	}

	out := Booking{Sessions: make(MealTypeAmounts), Items: []LineItem{}}
	taken := func(key string) bool {
		for k := range out.Sessions {
			if strings.EqualFold(k, key) {
				return true
			}
		}
		return false
	}

	for _, b := range bookings {
		sessions := b.Sessions.Sessions()
		rename := make(map[string]string, len(sessions))

		for _, key := range sortedKeys(sessions) {
			newKey := key
			for taken(newKey) {
				s := sessions[key]
				newKey = NewSessionKey(Label(s.MenuType, key, ""))
			}
			rename[key] = newKey
			out.Sessions[newKey] = b.Sessions[key]
		}

		for _, item := range b.Items {
			if s, ok := ResolveSession(sessions, item.SessionKey); ok {
				item.SessionKey = rename[s.Key]
			}
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}
