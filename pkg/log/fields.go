package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Chat domain
	FieldRoomID        = "room_id"
	FieldParticipantID = "participant_id"
	FieldMessageID     = "message_id"
	FieldClientID      = "client_id"
	FieldDisplayName   = "display_name"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
