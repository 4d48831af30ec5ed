package constants

// Common error messages
const (
	ErrInvalidJSON      = "invalid json or missing fields"
	ErrInvalidMultipart = "invalid multipart form"
	ErrFileUnreadable   = "uploaded file could not be read"
	ErrInvalidDate      = "date must be in YYYY-MM-DD format"
	ErrTeamIDRequired   = "team_id is required"
	ErrDB               = "DB error"
	ErrMethodNotAllowed = "Method Not Allowed"
)

// Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// Date formats
const (
	DateTimeFormat = "2006-01-02 15:04:05"
	DateFormatISO  = "2006-01-02"
	DateFormatUS   = "01/02/2006"
)
