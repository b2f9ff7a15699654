package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/swellmap/swellmap/internal/api/middleware"
	"github.com/swellmap/swellmap/internal/api/models"
	"github.com/swellmap/swellmap/internal/spot"
	"github.com/swellmap/swellmap/internal/spotsync"
)

const (
	// Time allowed to write a message to the peer.
	streamWriteWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	streamPongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than streamPongWait.
	streamPingPeriod = (streamPongWait * 9) / 10
	// Clients only send control frames.
	streamMaxMessageSize = 512
	// Changes buffered per connection before the store starts dropping them.
	streamBuffer = 64
)

// StreamConfig holds configuration for the spot stream.
type StreamConfig struct {
	// AllowedOrigins lists the browser origins allowed to connect. When
	// empty, only same-origin requests and non-browser clients are accepted.
	AllowedOrigins []string

	Logger zerolog.Logger
}

// StreamHandler pushes store changes to WebSocket clients.
type StreamHandler struct {
	sync     SpotSync
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(sync SpotSync, cfg StreamConfig) *StreamHandler {
	h := &StreamHandler{
		sync:   sync,
		logger: cfg.Logger.With().Str("component", "stream").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}

	if len(cfg.AllowedOrigins) > 0 {
		allowed := slices.Clone(cfg.AllowedOrigins)
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowed, origin)
		}
	}

	return h
}

// Stream handles GET /v1/spots/stream. The first message carries every
// stored spot; each later message carries the spots touched by one store
// mutation, or the whole store after a reset.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the snapshot so no change falls between them.
	changes, cancel := h.sync.Subscribe(streamBuffer)
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an error response.
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.logger.With().Str("request_id", middleware.GetRequestID(r.Context())).Logger()
	log.Debug().Msg("stream client connected")

	ctx, stop := context.WithCancel(r.Context())
	defer stop()
	go h.readPump(conn, stop, log)

	if err := h.write(conn, h.snapshotEvent(models.StreamEventInit)); err != nil {
		log.Debug().Err(err).Msg("failed to send initial snapshot")
		return
	}

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(streamWriteWait))
			return

		case change, ok := <-changes:
			if !ok {
				return
			}
			if err := h.write(conn, h.changeEvent(change)); err != nil {
				log.Debug().Err(err).Msg("failed to write stream event")
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				log.Debug().Err(err).Msg("failed to ping stream client")
				return
			}
		}
	}
}

// readPump discards client messages and keeps the read deadline moving on
// pongs. It cancels the stream when the connection fails or closes.
func (h *StreamHandler) readPump(conn *websocket.Conn, stop context.CancelFunc, log zerolog.Logger) {
	defer stop()

	conn.SetReadLimit(streamMaxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
		log.Debug().Err(err).Msg("failed to set stream read deadline")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("stream client read error")
			}
			return
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, event models.StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *StreamHandler) snapshotEvent(kind string) models.StreamEvent {
	return models.StreamEvent{
		Type:  kind,
		Spots: sortedSpots(h.sync.Spots()),
		Time:  models.Timestamp(time.Now()),
	}
}

func (h *StreamHandler) changeEvent(change spotsync.Change) models.StreamEvent {
	if change.Kind == spotsync.ChangeReset {
		return h.snapshotEvent(models.StreamEventReset)
	}

	spots := make([]spot.Spot, 0, len(change.SpotIDs))
	for _, id := range change.SpotIDs {
		spots = append(spots, h.sync.GetSpot(id))
	}
	return models.StreamEvent{
		Type:    models.StreamEventMerged,
		SpotIDs: change.SpotIDs,
		Spots:   spots,
		Time:    models.Timestamp(time.Now()),
	}
}
