package dvsa

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"

	"github.com/angelmondragon/vehiclevault-lookup/pkg/dates"
)

// TestRecord is one MOT test from a vehicle's history.
type TestRecord struct {
	CompletedDate string `json:"completedDate"`
	ExpiryDate    string `json:"expiryDate"`
	TestResult    string `json:"testResult"`
}

type vehicle struct {
	Registration string       `json:"registration"`
	MotTests     []TestRecord `json:"motTests"`
}

// envelope accepts either a single vehicle object or an array of vehicles, in
// which case the first one is used.
type envelope struct {
	vehicle *vehicle
}

var errUnexpectedEnvelope = errors.New("unexpected MOT history envelope")

func (e *envelope) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errUnexpectedEnvelope
	}
	switch trimmed[0] {
	case '[':
		var vehicles []vehicle
		if err := json.Unmarshal(trimmed, &vehicles); err != nil {
			return err
		}
		if len(vehicles) > 0 {
			e.vehicle = &vehicles[0]
		}
		return nil
	case '{':
		var v vehicle
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return err
		}
		e.vehicle = &v
		return nil
	case 'n':
		e.vehicle = nil
		return nil
	default:
		return errUnexpectedEnvelope
	}
}

// LatestExpiry returns the normalized expiry date of the most recently
// completed test, ignoring tests without a valid expiry. The result does not
// depend on the order of tests.
func LatestExpiry(tests []TestRecord) string {
	candidates := make([]TestRecord, 0, len(tests))
	for _, test := range tests {
		normalized := TestRecord{
			CompletedDate: dates.NormalizeISO(test.CompletedDate),
			ExpiryDate:    dates.NormalizeISO(test.ExpiryDate),
			TestResult:    test.TestResult,
		}
		if !dates.IsISO(normalized.ExpiryDate) {
			continue
		}
		candidates = append(candidates, normalized)
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].CompletedDate != candidates[j].CompletedDate {
			return candidates[i].CompletedDate > candidates[j].CompletedDate
		}
		return candidates[i].ExpiryDate > candidates[j].ExpiryDate
	})
	return candidates[0].ExpiryDate
}
