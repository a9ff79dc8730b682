package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldDeviceID  = "device_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Media fields
	FieldFilename  = "filename"
	FieldMediaType = "media_type"
	FieldSizeKB    = "size_kb"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"

	// Network fields
	FieldRemoteAddr = "remote_addr"
)
