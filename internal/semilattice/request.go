package semilattice

import (
	"net/http"
	"net/url"
	"strings"
)

// Request is one call against a document, independent of the transport
type Request struct {
	Method      string
	Resource    []string
	Body        []byte
	ContentType string
	Query       url.Values
}

// QueryParam returns a query parameter and whether it was present
func (r Request) QueryParam(name string) (string, bool) {
	if r.Query == nil {
		return "", false
	}
	values, ok := r.Query[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// SanitizedBody returns the body in a form safe to put in a log line
func (r Request) SanitizedBody() string {
	const limit = 512
	body := strings.ToValidUTF8(string(r.Body), "?")
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}

// SplitResource turns a URL path into resource segments, dropping empty ones
func SplitResource(path string) []string {
	var out []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			out = append(out, segment)
		}
	}
	return out
}

// Response is the outcome of a request. Body holds the rendered value on
// success; Message optionally describes an error.
type Response struct {
	Status  int
	Body    any
	Message string
}

// OK reports whether the response carries a rendered value
func (r Response) OK() bool {
	return r.Status == http.StatusOK
}

func jsonResponse(body any) Response {
	return Response{Status: http.StatusOK, Body: body}
}

func statusResponse(status int) Response {
	return Response{Status: status}
}

func errorResponse(status int, message string) Response {
	return Response{Status: status, Message: message}
}
