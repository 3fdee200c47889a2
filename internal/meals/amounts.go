package meals

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

var ErrInvalidMealTypeAmounts = errors.New("mealTypeAmounts must be a JSON object")

// MealTypeAmount is one value of the persisted mealTypeAmounts map. Older
// orders stored a bare number per session, newer ones an object; both stay
// readable. The concrete type is fixed at decode time so nothing downstream
// needs to inspect raw JSON again.
type MealTypeAmount interface {
	isMealTypeAmount()
}

// LegacyAmount is the amount-only form.
type LegacyAmount float64

// SessionDetail is the full form.
type SessionDetail struct {
	Amount          float64  `json:"amount"`
	Date            string   `json:"date,omitempty"`
	NumberOfMembers *int     `json:"numberOfMembers,omitempty"`
	Services        []string `json:"services,omitempty"`
	MenuType        string   `json:"menuType,omitempty"`
}

func (LegacyAmount) isMealTypeAmount()  {}
func (SessionDetail) isMealTypeAmount() {}

// MealTypeAmounts maps session keys to their amounts.
type MealTypeAmounts map[string]MealTypeAmount

func (m *MealTypeAmounts) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return ErrInvalidMealTypeAmounts
	}

	res := gjson.ParseBytes(data)
	out := make(MealTypeAmounts)

	switch {
	case res.Type == gjson.Null:
	case res.IsObject():
		res.ForEach(func(key, value gjson.Result) bool {
			out[key.String()] = decodeAmount(value)
			return true
		})
	default:
		return ErrInvalidMealTypeAmounts
	}

	*m = out
	return nil
}

func (m MealTypeAmounts) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]MealTypeAmount(m))
}

func decodeAmount(v gjson.Result) MealTypeAmount {
	switch {
	case v.Type == gjson.Number, v.Type == gjson.String:
		// numeric strings come from old form submissions
		return LegacyAmount(v.Float())
	case v.IsObject():
		d := SessionDetail{
			Amount:   v.Get("amount").Float(),
			Date:     v.Get("date").String(),
			MenuType: v.Get("menuType").String(),
		}
		if n := v.Get("numberOfMembers"); n.Exists() && n.Type != gjson.Null {
			members := int(n.Int())
			d.NumberOfMembers = &members
		}
		for _, s := range v.Get("services").Array() {
			d.Services = append(d.Services, s.String())
		}
		return d
	}
	return LegacyAmount(0)
}

// Sessions expands the map into MealSession values keyed like the map.
func (m MealTypeAmounts) Sessions() map[string]MealSession {
	out := make(map[string]MealSession, len(m))
	for key, v := range m {
		s := MealSession{Key: key}
		switch e := v.(type) {
		case LegacyAmount:
			s.Amount = float64(e)
		case SessionDetail:
			s.Amount = e.Amount
			s.Date = e.Date
			s.NumberOfMembers = e.NumberOfMembers
			s.Services = e.Services
			s.MenuType = e.MenuType
		}
		out[key] = s
	}
	return out
}

// FromSessions is the inverse of Sessions. A session carrying nothing but
// an amount is written back in the legacy form.
func FromSessions(sessions map[string]MealSession) MealTypeAmounts {
	out := make(MealTypeAmounts, len(sessions))
	for key, s := range sessions {
		if s.Date == "" && s.MenuType == "" && s.NumberOfMembers == nil && len(s.Services) == 0 {
			out[key] = LegacyAmount(s.Amount)
			continue
		}
		out[key] = SessionDetail{
			Amount:          s.Amount,
			Date:            s.Date,
			NumberOfMembers: s.NumberOfMembers,
			Services:        s.Services,
			MenuType:        s.MenuType,
		}
	}
	return out
}

// Total adds up every session amount.
func (m MealTypeAmounts) Total() float64 {
	var total float64
	for _, s := range m.Sessions() {
		total += s.Amount
	}
	return total
}

// TotalMembers adds up the headcounts. ok is false when no session records one.
func (m MealTypeAmounts) TotalMembers() (members int, ok bool) {
	for _, s := range m.Sessions() {
		if s.NumberOfMembers != nil {
			members += *s.NumberOfMembers
			ok = true
		}
	}
	return members, ok
}
