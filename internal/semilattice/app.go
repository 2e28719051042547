// Package semilattice serves a versioned metadata document over a small set of
// verbs. Requests address a field of the document by path and read it (GET),
// merge into it (POST), replace it (PUT) or delete it (DELETE).
package semilattice

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"gihan9a/semilattice/internal/adapter"
	"gihan9a/semilattice/internal/vclock"

	"github.com/google/uuid"
)

// JSONContentType is the body type accepted by POST and PUT
const JSONContentType = "application/json"

// Store holds the authoritative document
type Store[T any] interface {
	// Fetch returns a private copy of the current document
	Fetch() (T, error)
	// Commit submits a whole mutated document
	Commit(doc T) error
}

// Wrapper builds the adapter tree of a document
type Wrapper[T any] func(doc *T, ctx vclock.Context) adapter.Node

// Callback recomputes derived state after a mutation. It may reject the
// document with ErrCannotSatisfyGoals or adapter.ErrGone.
type Callback[T any] func(doc *T, prio PriorityMap) error

// Handler answers requests
type Handler interface {
	Handle(req Request) Response
}

// Option configures an App
type Option func(*options)

type options struct {
	enforceContentType bool
	logger             *slog.Logger
}

// WithContentTypeCheck makes POST and PUT require a JSON Content-Type
func WithContentTypeCheck(enforce bool) Option {
	return func(o *options) {
		o.enforceContentType = enforce
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// App dispatches requests against one document
type App[T any] struct {
	store    Store[T]
	wrap     Wrapper[T]
	callback Callback[T]
	us       uuid.UUID
	opts     options
}

// NewApp creates an App acting as node us. A nil callback does nothing.
func NewApp[T any](store Store[T], wrap Wrapper[T], callback Callback[T], us uuid.UUID, opts ...Option) *App[T] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if callback == nil {
		callback = func(*T, PriorityMap) error { return nil }
	}
	return &App[T]{store: store, wrap: wrap, callback: callback, us: us, opts: o}
}

// Root renders the whole document
func (a *App[T]) Root() (any, error) {
	// keep in sync with Handle's behavior for an empty resource
	doc, err := a.store.Fetch()
	if err != nil {
		return nil, err
	}
	return a.wrap(&doc, vclock.NewContext(a.us)).Render(), nil
}

// Handle runs one request to completion
func (a *App[T]) Handle(req Request) Response {
	switch req.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return statusResponse(http.StatusMethodNotAllowed)
	}

	doc, err := a.store.Fetch()
	if err != nil {
		a.opts.logger.Error("Unable to fetch metadata", "error", err)
		return errorResponse(http.StatusInternalServerError, "unable to read metadata")
	}

	// as we traverse the subfields this keeps track of the acting node
	root := a.wrap(&doc, vclock.NewContext(a.us))

	head, err := Resolve(root, req.Resource)
	if err != nil {
		a.opts.logger.Debug("Resource not found", "error", err)
		return statusResponse(http.StatusNotFound)
	}

	var res Response
	switch req.Method {
	case http.MethodGet:
		return jsonResponse(head.Render())
	case http.MethodPost:
		res, err = a.merge(&doc, head, req)
	case http.MethodPut:
		res, err = a.replace(&doc, head, req)
	case http.MethodDelete:
		res, err = a.erase(&doc, head, req)
	}
	if err != nil {
		return a.failure(err)
	}
	return res
}

func (a *App[T]) merge(doc *T, head adapter.Node, req Request) (Response, error) {
	change, res, ok := a.parseBody(req)
	if !ok {
		return res, nil
	}

	// Determine for which namespaces we should prioritize distribution
	value, present := req.QueryParam(PriorityParam)
	prio, err := ParsePriority(value, present, req.Resource)
	if err != nil {
		a.opts.logger.Info("Invalid value for prefer_distribution argument", "value", value, "error", err)
		return statusResponse(http.StatusBadRequest), nil
	}

	if err := head.Apply(change); err != nil {
		return Response{}, err
	}
	a.logChange(req.Resource, change)

	return a.commit(doc, head, prio)
}

func (a *App[T]) replace(doc *T, head adapter.Node, req Request) (Response, error) {
	change, res, ok := a.parseBody(req)
	if !ok {
		return res, nil
	}

	a.logChange(req.Resource, change)

	if err := head.Reset(); err != nil {
		return Response{}, err
	}
	if err := head.Apply(change); err != nil {
		return Response{}, err
	}

	return a.commit(doc, head, NoPriority())
}

func (a *App[T]) erase(doc *T, head adapter.Node, req Request) (Response, error) {
	if err := head.Erase(); err != nil {
		return Response{}, err
	}

	a.opts.logger.Info("Deleting", "resource", "/"+joinPath(req.Resource))

	return a.commit(doc, head, NoPriority())
}

// commit runs the recompute callback, hands the document to the store and
// renders the mutated node
func (a *App[T]) commit(doc *T, head adapter.Node, prio PriorityMap) (Response, error) {
	if err := a.callback(doc, prio); err != nil {
		return Response{}, err
	}
	if err := a.store.Commit(*doc); err != nil {
		return Response{}, err
	}
	return jsonResponse(head.Render()), nil
}

// parseBody checks the content type and decodes the body. When ok is false
// res is the response to send.
func (a *App[T]) parseBody(req Request) (change any, res Response, ok bool) {
	if a.opts.enforceContentType && !a.verifyContentType(req, JSONContentType) {
		return nil, statusResponse(http.StatusUnsupportedMediaType), false
	}

	change, err := adapter.Decode(req.Body)
	if err != nil {
		a.opts.logger.Info("Json body failed to parse", "body", req.SanitizedBody(), "error", err)
		return nil, statusResponse(http.StatusBadRequest), false
	}
	return change, Response{}, true
}

// verifyContentType compares only the beginning of the content type, since
// clients may append parameters such as a charset
func (a *App[T]) verifyContentType(req Request, expected string) bool {
	if len(req.ContentType) >= len(expected) && strings.EqualFold(req.ContentType[:len(expected)], expected) {
		return true
	}

	actual := req.ContentType
	if actual == "" {
		actual = "<NONE>"
	}
	a.opts.logger.Info("Bad request, unexpected Content-Type", "expected", expected, "actual", actual)
	return false
}

func (a *App[T]) logChange(resource []string, change any) {
	data, err := json.Marshal(AbsoluteChange(resource, change))
	if err != nil {
		a.opts.logger.Warn("Unable to format change", "error", err)
		return
	}
	a.opts.logger.Info("Applying data", "change", string(data))
}

// failure maps errors raised while mutating to a response
func (a *App[T]) failure(err error) Response {
	switch {
	case errors.Is(err, adapter.ErrSchemaMismatch):
		a.opts.logger.Info("Request failed with a schema mismatch", "error", err)
		return errorResponse(http.StatusBadRequest, err.Error())
	case errors.Is(err, adapter.ErrPermissionDenied):
		a.opts.logger.Info("Request failed with permission denied", "error", err)
		return errorResponse(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrCannotSatisfyGoals):
		a.opts.logger.Info("The server was given a set of goals for which it couldn't find a valid blueprint", "error", err)
		return errorResponse(http.StatusInternalServerError, err.Error())
	case errors.Is(err, adapter.ErrGone):
		a.opts.logger.Info("Request failed because the resource is gone", "error", err)
		return errorResponse(http.StatusGone, err.Error())
	default:
		a.opts.logger.Error("Unexpected error while handling request", "error", err)
		return errorResponse(http.StatusInternalServerError, "internal error")
	}
}
