// Package catalog holds the bookable services. Duration and price are read at
// booking time and copied onto the appointment.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrServiceNotFound is returned when a requested service id does not exist.
var ErrServiceNotFound = errors.New("catalog: service not found")

// Service is one bookable treatment.
type Service struct {
	ID       string
	Name     string
	Duration time.Duration
	Price    decimal.Decimal
}

// Repository reads services.
type Repository interface {
	Get(ctx context.Context, id string) (*Service, error)
	// GetMany returns services in the order requested, repeating duplicates.
	GetMany(ctx context.Context, ids []string) ([]Service, error)
}

// Totals sums duration and price over the selection.
func Totals(services []Service) (time.Duration, decimal.Decimal) {
	var d time.Duration
	price := decimal.Zero
	for _, s := range services {
		d += s.Duration
		price = price.Add(s.Price)
	}
	return d, price
}

func missing(ids []string, found map[string]Service) error {
	var absent []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			absent = append(absent, id)
		}
	}
	if len(absent) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrServiceNotFound, strings.Join(absent, ", "))
}

func ordered(ids []string, found map[string]Service) []Service {
	out := make([]Service, 0, len(ids))
	for _, id := range ids {
		out = append(out, found[id])
	}
	return out
}
