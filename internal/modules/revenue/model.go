// README: Daily revenue points for the dashboard chart.
package revenue

import (
	"errors"
	"time"

	"dispatchdesk/internal/types"
)

// maxDays bounds a single report.
const maxDays = 366

var ErrBadRange = errors.New("invalid date range")

// Day is the delivered total for one UTC calendar day.
type Day struct {
	Date   string      `json:"date"`
	Orders int         `json:"orders"`
	Total  types.Money `json:"total"`
}

// Report is a continuous run of days; days without sales are zero.
type Report struct {
	From  string      `json:"from"`
	To    string      `json:"to"`
	Days  []Day       `json:"days"`
	Total types.Money `json:"total"`
}

const dateLayout = "2006-01-02"

func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrBadRange
	}
	return t, nil
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
