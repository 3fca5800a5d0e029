package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/courierloop/courierloop-backend/api/middleware"
	"github.com/courierloop/courierloop-backend/api/responses"
	"github.com/courierloop/courierloop-backend/internal/realtime"
	"github.com/courierloop/courierloop-backend/pkg/enums"
	pkgerrors "github.com/courierloop/courierloop-backend/pkg/errors"
	"github.com/courierloop/courierloop-backend/pkg/logger"
)

const (
	maxSubscribeTopics = 20
	sseHeartbeat       = 25 * time.Second
)

// RealtimeSubscribe streams topic events over server-sent events until the
// client disconnects. Delivery is at-most-once; a lagging client loses its
// oldest undelivered events rather than stalling the publisher.
func RealtimeSubscribe(hub *realtime.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topics, err := parseTopics(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		sub := hub.Subscribe(topics)
		defer sub.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, ": subscribed to %d topics\n\n", len(topics))
		flusher.Flush()

		heartbeat := time.NewTicker(sseHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-heartbeat.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()
			case evt := <-sub.C():
				data, err := json.Marshal(evt)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Name, data)
				flusher.Flush()
			}
		}
	}
}

func parseTopics(r *http.Request) ([]string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("topics"))
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "topics query parameter required")
	}

	role := middleware.RoleFromContext(r.Context())
	actorID := middleware.UserIDFromContext(r.Context())

	topics := []string{}
	for _, part := range strings.Split(raw, ",") {
		topic := strings.TrimSpace(part)
		if topic == "" {
			continue
		}
		if !strings.HasPrefix(topic, "driver:") && !strings.HasPrefix(topic, "order:") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown topic format").
				WithDetails(map[string]any{"topic": topic})
		}
		// A driver stream carries position pings; only that driver or an
		// admin may attach to it.
		if strings.HasPrefix(topic, "driver:") && role != string(enums.UserRoleAdmin) {
			if strings.TrimPrefix(topic, "driver:") != actorID {
				return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot subscribe to another driver's stream")
			}
		}
		topics = append(topics, topic)
	}
	if len(topics) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "topics query parameter required")
	}
	if len(topics) > maxSubscribeTopics {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many topics").
			WithDetails(map[string]any{"max": maxSubscribeTopics})
	}
	return topics, nil
}
