package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"gihan9a/semilattice/internal/semilattice"
	"gihan9a/semilattice/internal/utils"
	"gihan9a/semilattice/pkg/braidproto"
)

// AddSubscription registers a subscriber and sends it the initial rendering.
// Rendering happens under s.mu after registration is certain, so a commit
// racing the subscription is delivered as a later update. When the resource
// cannot be rendered nothing is written and the failed response is returned
// with an empty id.
func (s *SemilatticeServer) AddSubscription(ep *endpoint, req semilattice.Request, w http.ResponseWriter, f http.Flusher) (string, semilattice.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := ep.Handler.Handle(req)
	if !res.OK() {
		return "", res
	}
	initial, err := json.Marshal(res.Body)
	if err != nil {
		s.logger.Error("Unable to encode rendering", "error", err)
		return "", semilattice.Response{Status: http.StatusInternalServerError, Message: "Error encoding response"}
	}

	// Set headers for streaming
	w.Header().Set("Content-Type", semilattice.JSONContentType)
	w.Header().Set("Subscribe", "true")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(braidproto.StatusSubscribed)

	subID := utils.GenerateRandomID()
	sub := Subscription{
		ID:           subID,
		Resource:     req.Resource,
		W:            w,
		F:            f,
		LastResource: initial,
		LastHash:     utils.CalculateHash(initial),
	}

	if _, exists := s.subscriptions[ep]; !exists {
		s.subscriptions[ep] = make(map[string]Subscription)
	}
	s.subscriptions[ep][subID] = sub

	if err := s.send(sub, braidproto.FullUpdate(sub.LastHash, initial)); err != nil {
		s.logger.Warn("Unable to send initial update", "subscription", subID, "error", err)
	}

	s.logger.Info("Added subscription", "subscription", subID, "endpoint", ep.Prefix, "resource", "/"+strings.Join(req.Resource, "/"))
	return subID, res
}

// RemoveSubscription removes a subscription
func (s *SemilatticeServer) RemoveSubscription(ep *endpoint, subID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if subs, exists := s.subscriptions[ep]; exists {
		delete(subs, subID)
		s.logger.Info("Removed subscription", "subscription", subID, "endpoint", ep.Prefix)

		// Clean up empty subscription maps
		if len(subs) == 0 {
			delete(s.subscriptions, ep)
		}
	}
}

// SubscriberCount returns the number of open subscriptions on a prefix
func (s *SemilatticeServer) SubscriberCount(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ep, subs := range s.subscriptions {
		if ep.Prefix == prefix {
			return len(subs)
		}
	}
	return 0
}

// notifySubscribers re-renders every subscribed resource of an endpoint and
// sends the changes
func (s *SemilatticeServer) notifySubscribers(ep *endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subscriptions[ep]
	if len(subs) == 0 {
		return
	}

	s.logger.Debug("Notifying subscribers", "count", len(subs), "endpoint", ep.Prefix)

	for subID, sub := range subs {
		newData := s.render(ep, sub.Resource)
		newHash := utils.CalculateHash(newData)
		if sub.LastHash == newHash {
			continue
		}

		update, err := braidproto.DiffUpdate(newHash, sub.LastHash, sub.LastResource, newData)
		if err != nil {
			s.logger.Warn("Unable to compute patch, falling back to full update", "subscription", subID, "error", err)
			update = braidproto.FullUpdate(newHash, newData)
		}
		if err := s.send(sub, update); err != nil {
			s.logger.Warn("Unable to send update", "subscription", subID, "error", err)
			continue
		}

		sub.LastResource = newData
		sub.LastHash = newHash
		subs[subID] = sub
	}
}

// render returns the JSON rendering of a resource, or null once it no
// longer resolves
func (s *SemilatticeServer) render(ep *endpoint, resource []string) []byte {
	res := ep.Handler.Handle(semilattice.Request{Method: http.MethodGet, Resource: resource})
	if !res.OK() {
		return []byte("null")
	}
	data, err := json.Marshal(res.Body)
	if err != nil {
		s.logger.Error("Unable to encode rendering", "error", err)
		return []byte("null")
	}
	return data
}

func (s *SemilatticeServer) send(sub Subscription, update braidproto.Update) error {
	if _, err := update.WriteTo(sub.W); err != nil {
		return err
	}
	sub.F.Flush()
	return nil
}
