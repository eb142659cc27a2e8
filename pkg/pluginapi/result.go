package pluginapi

import "net/http"

// ProcessResult is returned from pre-mutation hooks so the host can decide
// whether to proceed.
type ProcessResult struct {
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error"`
}

// WebResponse tells the host how to answer the client of a route hook.
type WebResponse int

const (
	WebResponseOK WebResponse = iota
	WebResponseBadRequest
	WebResponseUnauthorized
	WebResponseNotFound
	WebResponseNotImplemented
	WebResponseInternalError
)

var webResponseNames = map[WebResponse]string{
	WebResponseOK:             "Ok",
	WebResponseBadRequest:     "BadRequest",
	WebResponseUnauthorized:   "Unauthorized",
	WebResponseNotFound:       "NotFound",
	WebResponseNotImplemented: "NotImplemented",
	WebResponseInternalError:  "InternalError",
}

func (r WebResponse) String() string {
	if name, ok := webResponseNames[r]; ok {
		return name
	}
	return "Unknown"
}

// HTTPStatus maps the response to the status code a host should send.
func (r WebResponse) HTTPStatus() int {
	switch r {
	case WebResponseOK:
		return http.StatusOK
	case WebResponseBadRequest:
		return http.StatusBadRequest
	case WebResponseUnauthorized:
		return http.StatusUnauthorized
	case WebResponseNotFound:
		return http.StatusNotFound
	case WebResponseNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Declined reports whether the plugin chose not to handle the request.
func (r WebResponse) Declined() bool {
	return r == WebResponseNotImplemented
}
