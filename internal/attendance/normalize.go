package attendance

import "strconv"

// The external recognizer has produced several row shapes over time
// (snake_case from the CSV writer, camelCase from the JSON bridge). Each
// field is read through an ordered alias list at this boundary so nothing
// downstream probes dynamic keys.
var fieldAliases = map[string][]string{
	"student_id": {"student_id", "studentId", "id"},
	"name":       {"name", "studentName", "student_name"},
	"status":     {"status", "Status"},
	"date":       {"date", "Date", "day"},
	"time":       {"time", "timestamp", "Time"},
	"subject":    {"subject", "Subject"},
}

// missingField is the placeholder for a field absent under every alias.
const missingField = "N/A"

func stringField(row map[string]any, field string) string {
	for _, key := range fieldAliases[field] {
		if v, ok := row[key]; ok {
			if s := asString(v); s != "" {
				return s
			}
		}
	}
	return missingField
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// floatField reads a numeric field through its aliases, 0 when absent.
func floatField(row map[string]any, keys ...string) float64 {
	for _, key := range keys {
		switch t := row[key].(type) {
		case float64:
			return t
		case int:
			return float64(t)
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return f
			}
		}
	}
	return 0
}
