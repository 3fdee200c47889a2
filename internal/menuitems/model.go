// Package menuitems is the catalogue of dishes that order line items refer to.
package menuitems

import (
	"errors"
	"strings"
	"time"

	"caterly/internal/meals"
)

var (
	ErrNotFound      = errors.New("menu item not found")
	ErrNameMissing   = errors.New("menu item name is required")
	ErrNegativePrice = errors.New("price cannot be negative")
	ErrInvalidImport = errors.New("invalid menu file")
)

// MenuItem is one dish of the catalogue.
type MenuItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	MenuType    string    `json:"menuType"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Input struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	MenuType    string  `json:"menuType"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	IsActive    *bool   `json:"isActive"`
}

func (in Input) toItem() (MenuItem, error) {
	item := MenuItem{
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		MenuType:    meals.NormalizeMenuType(in.MenuType),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	if item.Name == "" {
		return item, ErrNameMissing
	}
	if item.Price < 0 {
		return item, ErrNegativePrice
	}
	return item, nil
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	MenuType   string
	Category   string
	ActiveOnly bool
}

func (f Filter) match(item MenuItem) bool {
	if f.MenuType != "" && item.MenuType != meals.NormalizeMenuType(f.MenuType) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(item.Category, f.Category) {
		return false
	}
	return !f.ActiveOnly || item.IsActive
}
