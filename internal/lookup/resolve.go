package lookup

import (
	"github.com/angelmondragon/vehiclevault-lookup/pkg/dates"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/dvla"
)

// Source tags where a resolved MOT expiry came from.
type Source string

const (
	SourceMOTHistory       Source = "MOT_HISTORY"
	SourceVES              Source = "VES"
	SourceSORN             Source = "SORN"
	SourceFromRegistration Source = "CALCULATED_FROM_REGISTRATION"
	SourceNoData           Source = "NO_DATA"
)

// DefaultFirstMOTMonths is the age at which a new vehicle needs its first MOT.
const DefaultFirstMOTMonths = 36

// Evidence is everything the resolvers may consult.
type Evidence struct {
	HistoryExpiry string
	Record        *dvla.Record
}

// Resolution is the chosen MOT expiry. Date is empty when unknown.
type Resolution struct {
	Date      string
	Estimated bool
	Source    Source
}

// Resolver inspects the evidence and reports whether it produced a resolution.
type Resolver func(Evidence) (Resolution, bool)

// DefaultResolvers returns the resolvers in priority order.
func DefaultResolvers(firstMOTMonths int) []Resolver {
	if firstMOTMonths <= 0 {
		firstMOTMonths = DefaultFirstMOTMonths
	}
	return []Resolver{
		FromMOTHistory,
		FromVehicleEnquiry,
		SORNSuppressesEstimate,
		EstimateFromRegistration(firstMOTMonths),
	}
}

// Resolve runs the resolvers in order and returns the first hit, or NO_DATA.
func Resolve(resolvers []Resolver, ev Evidence) Resolution {
	for _, resolve := range resolvers {
		if res, ok := resolve(ev); ok {
			return res
		}
	}
	return Resolution{Source: SourceNoData}
}

func FromMOTHistory(ev Evidence) (Resolution, bool) {
	date := dates.NormalizeISO(ev.HistoryExpiry)
	if !dates.IsISO(date) {
		return Resolution{}, false
	}
	return Resolution{Date: date, Source: SourceMOTHistory}, true
}

func FromVehicleEnquiry(ev Evidence) (Resolution, bool) {
	if ev.Record == nil {
		return Resolution{}, false
	}
	date := dates.NormalizeISO(ev.Record.MotExpiryDate)
	if !dates.IsISO(date) {
		return Resolution{}, false
	}
	return Resolution{Date: date, Source: SourceVES}, true
}

// SORNSuppressesEstimate stops the chain for vehicles declared off the road;
// they need no MOT so no date is estimated.
func SORNSuppressesEstimate(ev Evidence) (Resolution, bool) {
	if !ev.Record.IsSORN() {
		return Resolution{}, false
	}
	return Resolution{Source: SourceSORN}, true
}

// EstimateFromRegistration dates the first MOT as the last day of the month
// that is months after first registration, falling back to the month the
// latest V5C was issued.
func EstimateFromRegistration(months int) Resolver {
	return func(ev Evidence) (Resolution, bool) {
		if ev.Record == nil {
			return Resolution{}, false
		}
		year, month, ok := dates.ParseYearMonth(ev.Record.MonthOfFirstRegistration)
		if !ok {
			year, month, ok = dates.ParseYearMonth(ev.Record.DateOfLastV5CIssued)
		}
		if !ok {
			return Resolution{}, false
		}
		due := dates.LastDayOfMonthAfter(year, month, months)
		return Resolution{
			Date:      dates.Format(due),
			Estimated: true,
			Source:    SourceFromRegistration,
		}, true
	}
}
