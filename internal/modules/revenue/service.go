// README: Revenue service builds gap-free daily reports.
package revenue

import (
	"context"
	"time"

	"dispatchdesk/internal/types"
)

const defaultCurrency = "INR"

type store interface {
	Daily(ctx context.Context, from, to time.Time) ([]dailyRow, error)
}

type Service struct {
	store store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Daily reports every day from `from` through `to`, both inclusive.
func (s *Service) Daily(ctx context.Context, from, to time.Time) (Report, error) {
	from, to = day(from), day(to)
	if to.Before(from) {
		return Report{}, ErrBadRange
	}
	n := int(to.Sub(from).Hours()/24) + 1
	if n > maxDays {
		return Report{}, ErrBadRange
	}

	rows, err := s.store.Daily(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		return Report{}, err
	}
	byDay := make(map[string]dailyRow, len(rows))
	currency := defaultCurrency
	for _, r := range rows {
		byDay[r.Day.UTC().Format(dateLayout)] = r
		if r.Currency != "" {
			currency = r.Currency
		}
	}

	rep := Report{
		From:  from.Format(dateLayout),
		To:    to.Format(dateLayout),
		Days:  make([]Day, 0, n),
		Total: types.Money{Currency: currency},
	}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		entry := Day{Date: key, Total: types.Money{Currency: currency}}
		if r, ok := byDay[key]; ok {
			entry.Orders = r.Orders
			entry.Total.Amount = r.Amount
		}
		rep.Total = rep.Total.Add(entry.Total)
		rep.Days = append(rep.Days, entry)
	}
	return rep, nil
}
