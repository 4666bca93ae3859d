package admin

import (
	"encoding/json"
	"net/http"
)

// errorBody is the payload of every non-2xx admin and guard response:
//
//	{"error":{"message":"...","type":"...","code":"..."}}
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

var errTypeByStatus = map[int]string{
	http.StatusUnauthorized:    "authentication_error",
	http.StatusForbidden:       "permission_error",
	http.StatusNotFound:        "not_found_error",
	http.StatusNotImplemented:  "not_implemented_error",
	http.StatusTooManyRequests: "rate_limit_error",
}

// writeError writes an errorBody. Empty errType is derived from status and
// empty code falls back to errType.
func writeError(w http.ResponseWriter, status int, message, errType, code string) {
	detail := errorDetail{Message: message, Type: errType, Code: code}
	if detail.Type == "" {
		detail.Type = defaultErrType(status)
	}
	if detail.Code == "" {
		detail.Code = detail.Type
	}
	writeJSON(w, status, errorBody{Error: detail})
}

func defaultErrType(status int) string {
	if t, ok := errTypeByStatus[status]; ok {
		return t
	}
	if status >= 400 && status < 500 {
		return "invalid_request_error"
	}
	return "server_error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
