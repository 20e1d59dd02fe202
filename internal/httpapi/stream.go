package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/RSuyash/repomesh/internal/eventbus"
	"github.com/RSuyash/repomesh/internal/logging"
)

const sseKeepAliveInterval = 15 * time.Second

// subscribeParams reads the Broker filter parameters common to both
// transports (spec.md section 6: "filters: recipient_id, channel,
// include_broadcast").
func subscribeParams(c *gin.Context) (recipientID, channel string, includeBroadcast bool) {
	return c.Query("recipient_id"), c.Query("channel"), c.Query("include_broadcast") == "true"
}

// EventsSSE handles GET /v1/events/sse: a text/event-stream of Event
// envelopes with a 15s keep-alive comment during idle periods.
func EventsSSE(broker *eventbus.Broker) gin.HandlerFunc {
	return func(c *gin.Context) {
		recipientID, channel, includeBroadcast := subscribeParams(c)
		sub := broker.Subscribe(recipientID, channel, includeBroadcast)
		defer broker.Unsubscribe(sub.ID)

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			WriteError(c, errNotFlushable)
			return
		}

		ticker := time.NewTicker(sseKeepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-c.Request.Context().Done():
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					continue
				}
				c.Writer.WriteString("data: ")
				c.Writer.Write(data)
				c.Writer.WriteString("\n\n")
				flusher.Flush()
				ticker.Reset(sseKeepAliveInterval)
			case <-ticker.C:
				c.Writer.WriteString(": keep-alive\n\n")
				flusher.Flush()
			}
		}
	}
}

var errNotFlushable = &flushError{}

type flushError struct{}

func (*flushError) Error() string { return "response writer does not support flushing" }

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EventsWS handles GET /v1/events/ws: a WebSocket stream of the same Event
// envelopes the SSE endpoint emits, one connection per Broker subscription.
func EventsWS(broker *eventbus.Broker, log *logging.Logger) gin.HandlerFunc {
	log = log.WithComponent("events_ws")
	return func(c *gin.Context) {
		conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		recipientID, channel, includeBroadcast := subscribeParams(c)
		sub := broker.Subscribe(recipientID, channel, includeBroadcast)
		defer broker.Unsubscribe(sub.ID)

		// Drain and discard any client-sent frames so control frames (close,
		// ping) are still processed; this stream is server-to-client only.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-c.Request.Context().Done():
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := conn.WriteJSON(event); err != nil {
					return
				}
			}
		}
	}
}
