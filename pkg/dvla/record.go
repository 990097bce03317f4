package dvla

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is a Vehicle Enquiry Service response. The typed fields are the ones
// the lookup policy reads; Fields keeps every attribute the provider returned
// so callers can pass it through untouched.
type Record struct {
	RegistrationNumber       string
	Make                     string
	Colour                   string
	FuelType                 string
	YearOfManufacture        int
	MonthOfFirstRegistration string
	DateOfLastV5CIssued      string
	TaxStatus                string
	TaxDueDate               string
	MotStatus                string
	MotExpiryDate            string

	Fields map[string]any
}

// RecordFromFields builds a Record from a decoded provider payload.
func RecordFromFields(fields map[string]any) *Record {
	if fields == nil {
		fields = map[string]any{}
	}
	return &Record{
		RegistrationNumber:       stringField(fields, "registrationNumber"),
		Make:                     stringField(fields, "make"),
		Colour:                   stringField(fields, "colour"),
		FuelType:                 stringField(fields, "fuelType"),
		YearOfManufacture:        intField(fields, "yearOfManufacture"),
		MonthOfFirstRegistration: stringField(fields, "monthOfFirstRegistration"),
		DateOfLastV5CIssued:      stringField(fields, "dateOfLastV5CIssued"),
		TaxStatus:                stringField(fields, "taxStatus"),
		TaxDueDate:               stringField(fields, "taxDueDate"),
		MotStatus:                stringField(fields, "motStatus"),
		MotExpiryDate:            stringField(fields, "motExpiryDate"),
		Fields:                   fields,
	}
}

// IsSORN reports whether the vehicle is declared off the road.
func (r *Record) IsSORN() bool {
	if r == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(r.TaxStatus), "SORN")
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func intField(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
