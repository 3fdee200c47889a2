// Package customers keeps the catering company's client records.
package customers

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("customer not found")
	ErrNameMissing = errors.New("customer name is required")
	ErrInUse       = errors.New("customer still has orders or bills")
)

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Input is the writable part of a customer.
type Input struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

func (in Input) normalize() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" {
		return in, ErrNameMissing
	}
	return in, nil
}
