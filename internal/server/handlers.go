package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gihan9a/semilattice/internal/semilattice"
	"gihan9a/semilattice/internal/utils"
)

// maxBodySize bounds the request bodies read into memory
const maxBodySize = 4 << 20

// handleRequest translates HTTP requests into document requests
func (s *SemilatticeServer) handleRequest(ep *endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Add CORS headers if enabled
		if s.config.CORS.Enabled {
			s.addCORSHeaders(w, r)

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			http.Error(w, fmt.Sprintf("Error reading request: %v", err), http.StatusBadRequest)
			return
		}

		req := semilattice.Request{
			Method:      r.Method,
			Resource:    semilattice.SplitResource(strings.TrimPrefix(r.URL.Path, ep.Prefix)),
			Body:        body,
			ContentType: r.Header.Get("Content-Type"),
			Query:       r.URL.Query(),
		}

		// Check if this is a subscription request
		if r.Method == http.MethodGet && strings.EqualFold(r.Header.Get("Subscribe"), "true") && ep.OnChange != nil {
			s.handleSubscription(w, r, ep, req)
			return
		}

		s.writeResponse(w, ep.Handler.Handle(req))
	}
}

// writeResponse sends a rendered value as JSON, or the error status
func (s *SemilatticeServer) writeResponse(w http.ResponseWriter, res semilattice.Response) {
	if !res.OK() {
		if res.Message != "" {
			http.Error(w, res.Message, res.Status)
			return
		}
		w.WriteHeader(res.Status)
		return
	}

	data, err := json.Marshal(res.Body)
	if err != nil {
		s.logger.Error("Unable to encode response", "error", err)
		http.Error(w, "Error encoding response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", semilattice.JSONContentType)
	w.Header().Set("Version", utils.CalculateHash(data))
	w.Write(data)
}

// handleSubscription streams the rendering of a resource and its later changes
func (s *SemilatticeServer) handleSubscription(w http.ResponseWriter, r *http.Request, ep *endpoint, req semilattice.Request) {
	// Ensure we can flush the response
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	subID, res := s.AddSubscription(ep, req, w, flusher)
	if subID == "" {
		s.writeResponse(w, res)
		return
	}

	// Keep the connection open until client disconnects
	<-r.Context().Done()
	s.RemoveSubscription(ep, subID)
}

// addCORSHeaders adds CORS headers to the response
func (s *SemilatticeServer) addCORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", s.config.CORS.AllowOrigins)
	w.Header().Set("Access-Control-Allow-Methods", s.config.CORS.AllowMethods)
	w.Header().Set("Access-Control-Allow-Headers", s.config.CORS.AllowHeaders)

	if s.config.CORS.AllowCredentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}

	w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", s.config.CORS.MaxAge))
}
