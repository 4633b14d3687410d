package domain

import (
	programdomain "github.com/campbright/enroll/internal/program/domain"
)

// Recognized time-slot values. Anything else is priced by the fallback policy.
const (
	TimeSlotMorning   = "morning"
	TimeSlotAfternoon = "afternoon"
	TimeSlotFullDay   = "fullDay"
	TimeSlotWeeklong  = "weeklong"
)

// SlotFallback decides the rate for a time slot the rate table has no column
// for. The historical behavior of graceful degradation to the full-day rate
// is the default; callers may substitute a stricter policy.
type SlotFallback func(slot string, rates programdomain.RateTable) (int64, error)

// FullDayFallback prices any unrecognized slot at the full-day rate.
func FullDayFallback(_ string, rates programdomain.RateTable) (int64, error) {
	return rates.FullDay, nil
}

// RejectUnknownSlots refuses to price unrecognized slots.
func RejectUnknownSlots(slot string, _ programdomain.RateTable) (int64, error) {
	return 0, ErrInvalidTimeSlot
}

// Quote holds per-child amounts and their sum, in minor currency units.
type Quote struct {
	PerChild []int64
	Total    int64
}

// PriceQuote computes each child's fee from the rate table. Pure and
// deterministic; integer minor-unit arithmetic only.
func PriceQuote(slots []string, rates programdomain.RateTable, fallback SlotFallback) (Quote, error) {
	if fallback == nil {
		fallback = FullDayFallback
	}

	quote := Quote{PerChild: make([]int64, 0, len(slots))}
	for _, slot := range slots {
		var amount int64
		switch slot {
		case TimeSlotMorning:
			amount = rates.HalfDayMorning
		case TimeSlotAfternoon:
			amount = rates.HalfDayAfternoon
		case TimeSlotFullDay:
			amount = rates.FullDay
		default:
			fell, err := fallback(slot, rates)
			if err != nil {
				return Quote{}, err
			}
			amount = fell
		}
		quote.PerChild = append(quote.PerChild, amount)
		quote.Total += amount
	}
	return quote, nil
}
