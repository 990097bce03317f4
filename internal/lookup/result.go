package lookup

import "encoding/json"

// Result is the normalized vehicle record returned to callers. Fields carries
// the enquiry payload verbatim; the MOT and registration keys are always set
// and take precedence over provider values of the same name.
type Result struct {
	RegistrationNumber string
	MotExpiryDate      string
	MotExpiryEstimated bool
	MotExpirySource    Source
	MotHistoryError    string
	Fields             map[string]any
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+5)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["registrationNumber"] = r.RegistrationNumber
	out["motExpiryDate"] = nullable(r.MotExpiryDate)
	out["motExpiryEstimated"] = r.MotExpiryEstimated
	out["motExpirySource"] = r.MotExpirySource
	out["motHistoryError"] = nullable(r.MotHistoryError)
	return json.Marshal(out)
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
