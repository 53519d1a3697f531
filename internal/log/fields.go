package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldStudentID  = "student_id"
	FieldAdmission  = "admission_number"
	FieldMonth      = "month"
	FieldYear       = "year"
	FieldAmount     = "amount_paise"
	FieldSessionID  = "session_id"
	FieldArchive    = "archive"
)

// Components defines standard component names.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentStudent  = "student"
	ComponentLedger   = "ledger"
	ComponentSummary  = "summary"
	ComponentStorage  = "storage"
	ComponentBackup   = "backup"
	ComponentSession  = "session"
	ComponentDocument = "document"
	ComponentNotify   = "notify"
)
