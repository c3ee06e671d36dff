package schedule

import (
	"fmt"
	"time"

	"github.com/jbrpriv/RentifyPro-sub000/model"
)

// DateFormat is the day-granularity date layout used throughout.
const DateFormat = "2006-01-02"

// Generate expands a lease's financial terms into its dated payment
// obligations: durationMonths entries, due dates advanced by whole calendar
// months from the start date. Entry 0 is the rent bundled into the initial
// checkout and is created already paid; all others start pending.
//
// The function is pure: the same terms always produce the same schedule.
func Generate(agreementID, startDate string, durationMonths int, rentAmount int64, paidAt time.Time) ([]model.RentScheduleEntry, error) {
	if durationMonths <= 0 {
		return nil, fmt.Errorf("duration must be at least one month, got %d", durationMonths)
	}
	if rentAmount <= 0 {
		return nil, fmt.Errorf("rent amount must be positive, got %d", rentAmount)
	}

	start, err := time.Parse(DateFormat, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}

	entries := make([]model.RentScheduleEntry, 0, durationMonths)
	for i := 0; i < durationMonths; i++ {
		e := model.RentScheduleEntry{
			AgreementID: agreementID,
			Seq:         i,
			DueDate:     start.AddDate(0, i, 0).Format(DateFormat),
			Amount:      rentAmount,
			Status:      model.EntryPending,
		}
		if i == 0 {
			e.Status = model.EntryPaid
			e.PaidDate = paidAt.Format(DateFormat)
			e.PaidAmount = rentAmount
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// DaysPastDue returns the whole days between the due date and today.
// Zero or negative means not yet due.
func DaysPastDue(dueDate string, today time.Time) (int, error) {
	due, err := time.Parse(DateFormat, dueDate)
	if err != nil {
		return 0, fmt.Errorf("invalid due date %q: %w", dueDate, err)
	}
	t, err := time.Parse(DateFormat, today.Format(DateFormat))
	if err != nil {
		return 0, err
	}
	return int(t.Sub(due).Hours() / 24), nil
}
