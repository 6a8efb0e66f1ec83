package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/kvchat/internal/core"
	"github.com/vovakirdan/kvchat/internal/proto"
)

// WSHandler upgrades HTTP connections and streams room snapshots to the UI.
// Each published tick is pushed as a full replacement list; inbound frames
// carry send and switch commands.
type WSHandler struct {
	session *core.Session
	log     *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(session *core.Session, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{session: session, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	connID := uuid.NewString()
	watchID, snapshots := h.session.Watch()
	defer h.session.Unwatch(watchID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Current state first, so a reconnecting UI renders immediately
	// instead of waiting out a poll interval.
	if err := wsjson.Write(ctx, conn, statusOutbound(h.session)); err != nil {
		return
	}
	if room, ok := h.session.Room(); ok {
		if err := wsjson.Write(ctx, conn, snapshotOutbound(room.ID, h.session.Messages())); err != nil {
			return
		}
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, connID)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, snapshots)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", connID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, connID string) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if protoErr := h.handleInbound(ctx, inbound); protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, errorOutbound(protoErr.Code, protoErr.Msg)); writeErr != nil {
				return writeErr
			}
			h.log.Debug().Str("conn_id", connID).Str("code", protoErr.Code).Msg("ws command rejected")
		}
	}
}

func (h *WSHandler) handleInbound(ctx context.Context, inbound proto.Inbound) *proto.Error {
	switch inbound.Type {
	case proto.InboundTypeSend:
		var send proto.SendData
		if err := json.Unmarshal(inbound.Data, &send); err != nil {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed send data"}
		}
		if err := h.session.Send(ctx, send.Body); err != nil {
			return sendErrorToProto(err)
		}
		return nil
	case proto.InboundTypeSwitch:
		var sw proto.SwitchData
		if err := json.Unmarshal(inbound.Data, &sw); err != nil {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed switch data"}
		}
		if sw.RoomID == 0 {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room_id is required"}
		}
		if err := h.session.SwitchRoom(core.Room{ID: sw.RoomID, Title: sw.Title}); err != nil {
			return sendErrorToProto(err)
		}
		return nil
	default:
		return &proto.Error{Code: "invalid_message", Msg: "unknown message type"}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, snapshots <-chan []core.Message) error {
	for {
		select {
		case msgs, ok := <-snapshots:
			if !ok {
				return nil
			}
			room, bound := h.session.Room()
			if !bound {
				continue
			}
			if err := wsjson.Write(ctx, conn, snapshotOutbound(room.ID, msgs)); err != nil {
				h.log.Error().Err(err).Msg("write ws snapshot")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func sendErrorToProto(err error) *proto.Error {
	switch {
	case errors.Is(err, core.ErrEmptyMessage):
		return &proto.Error{Code: core.ErrCodeEmptyMessage, Msg: "message is empty"}
	case errors.Is(err, core.ErrNotConnected):
		return &proto.Error{Code: core.ErrCodeNotConnected, Msg: "no room bound"}
	default:
		return &proto.Error{Code: core.ErrCodeSendFailed, Msg: "send failed, try again"}
	}
}
