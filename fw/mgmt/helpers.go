package mgmt

import "encoding/json"

// errJSON builds a minimal {"error": "..."} payload. No third-party JSON
// library appears anywhere in the example pool for either the teacher or
// its neighbors, so this stays on stdlib encoding/json — the idiomatic
// default even in dependency-heavy Go services.
func errJSON(msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return string(b)
}

func ackJSON(fields map[string]any) string {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["ok"] = true
	b, _ := json.Marshal(fields)
	return string(b)
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return errJSON(err.Error())
	}
	return string(b)
}
