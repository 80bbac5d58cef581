package constants

// HTTP and API constants
const (
	// Content types
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"

	// HTTP Headers
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"

	// Auth
	BearerPrefix = "Bearer "

	// Response Keys
	ResponseError   = "error"
	ResponseMessage = "message"
	ResponseData    = "data"
)

// Context Keys
const (
	ContextKeyUser  = "user"
	ContextKeyToken = "token"
)

// Enrollment modes (OpenEdX course modes)
const (
	ModeAudit        = "audit"
	ModeHonor        = "honor"
	ModeVerified     = "verified"
	ModeProfessional = "professional"
)

// Enrollment status values
const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusCompleted = "completed"
	EnrollmentStatusDropped   = "dropped"
)

// Order status values
const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
	OrderStatusExpired = "expired"
)

// Catalog defaults (the storefront lists twelve courses per page)
const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// DefaultCurrency is used when OpenEdX reports no currency for a mode.
const DefaultCurrency = "USD"
