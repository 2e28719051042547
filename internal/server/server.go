package server

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"gihan9a/semilattice/internal/config"
	"gihan9a/semilattice/internal/semilattice"

	"github.com/gorilla/mux"
)

// Subscription represents a client subscription to changes of a resource
type Subscription struct {
	ID           string
	Resource     []string
	W            http.ResponseWriter
	F            http.Flusher
	LastResource []byte // Store the last rendering to calculate patches
	LastHash     string // Store the hash of the last rendering
}

// Endpoint mounts a document handler under a URL prefix
type Endpoint struct {
	Prefix  string
	Handler semilattice.Handler
	// OnChange registers a callback run after the document changes and
	// returns a function removing it. Nil disables subscriptions.
	OnChange func(func()) func()
}

type endpoint struct {
	Endpoint
	dirty atomic.Bool
}

// SemilatticeServer serves metadata documents over HTTP
type SemilatticeServer struct {
	config        *config.Config
	endpoints     []*endpoint
	subscriptions map[*endpoint]map[string]Subscription
	mu            sync.Mutex
	wake          chan struct{}
	done          chan struct{}
	closeOnce     sync.Once
	unsubscribe   []func()
	logger        *slog.Logger
}

// NewSemilatticeServer creates a server for the given endpoints
func NewSemilatticeServer(cfg *config.Config, logger *slog.Logger, endpoints ...Endpoint) *SemilatticeServer {
	if logger == nil {
		logger = slog.Default()
	}

	server := &SemilatticeServer{
		config:        cfg,
		subscriptions: make(map[*endpoint]map[string]Subscription),
		wake:          make(chan struct{}, 1),
		done:          make(chan struct{}),
		logger:        logger,
	}

	for _, e := range endpoints {
		ep := &endpoint{Endpoint: e}
		server.endpoints = append(server.endpoints, ep)
		if e.OnChange != nil {
			server.unsubscribe = append(server.unsubscribe, e.OnChange(func() { server.markChanged(ep) }))
		}
	}

	// Start forwarding document changes to subscribers
	go server.watchChanges()

	return server
}

// Close stops delivering updates to subscribers
func (s *SemilatticeServer) Close() {
	s.closeOnce.Do(func() {
		for _, unsubscribe := range s.unsubscribe {
			unsubscribe()
		}
		close(s.done)
	})
}

// markChanged flags an endpoint's document as changed and wakes the notifier
func (s *SemilatticeServer) markChanged(ep *endpoint) {
	ep.dirty.Store(true)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// watchChanges sends updates to subscribers of every changed document
func (s *SemilatticeServer) watchChanges() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
			for _, ep := range s.endpoints {
				if ep.dirty.Swap(false) {
					s.notifySubscribers(ep)
				}
			}
		}
	}
}

// SetupRoutes configures the HTTP routes for the server
func (s *SemilatticeServer) SetupRoutes() http.Handler {
	router := mux.NewRouter()
	for _, ep := range s.endpoints {
		handler := s.handleRequest(ep)
		router.Path(ep.Prefix).HandlerFunc(handler)
		router.PathPrefix(ep.Prefix + "/").HandlerFunc(handler)
	}
	return router
}
