package http

import (
	"github.com/vovakirdan/kvchat/internal/core"
	"github.com/vovakirdan/kvchat/internal/proto"
)

func kindToString(kind core.MessageKind) string {
	switch kind {
	case core.KindName:
		return "name"
	case core.KindShare:
		return "share"
	default:
		return "text"
	}
}

func messageData(msg core.Message) proto.MessageData {
	return proto.MessageData{
		Username: msg.Username,
		Body:     msg.Body,
		Time:     msg.Time,
		Kind:     kindToString(msg.Kind),
	}
}

func snapshotOutbound(roomID int64, msgs []core.Message) proto.Outbound {
	data := make([]proto.MessageData, 0, len(msgs))
	for _, msg := range msgs {
		data = append(data, messageData(msg))
	}
	return proto.Outbound{
		Type: proto.OutboundTypeSnapshot,
		Snapshot: &proto.SnapshotData{
			RoomID:   roomID,
			Messages: data,
		},
	}
}

func statusOutbound(session *core.Session) proto.Outbound {
	status := proto.StatusData{
		Connected: session.Connected(),
		Username:  session.Username(),
	}
	if room, ok := session.Room(); ok {
		status.RoomID = room.ID
		status.RoomTitle = room.Title
	}
	return proto.Outbound{
		Type:   proto.OutboundTypeStatus,
		Status: &status,
	}
}

func errorOutbound(code, msg string) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: msg},
	}
}
