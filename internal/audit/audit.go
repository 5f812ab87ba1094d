package audit

import (
	"context"

	"github.com/johnrodneybargayo/gabay-rooms/pkg/log"
)

// Audit actions for the room synchronization service.
const (
	ActionCreateRoom  = "room.create"
	ActionJoinRoom    = "room.join"
	ActionLeaveRoom   = "room.leave"
	ActionSendMessage = "room.message"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, roomID string, participantID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldRoomID, roomID).
		Str(log.FieldParticipantID, participantID).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action string, roomID string, participantID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldRoomID, roomID).
		Str(log.FieldParticipantID, participantID).
		Str(FieldDetail, detail).
		Msg(msg)
}
