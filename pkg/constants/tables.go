package constants

// Storefront table names. SQL is composed from these across the persistence
// layer so a rename only touches this file.
const (
	TableUser       = "users"
	TableSession    = "sessions"
	TableCart       = "carts"
	TableCartItem   = "cart_items"
	TableEnrollment = "enrollments"
	TableOrder      = "orders"
	TableOrderItem  = "order_items"
	TableCoupon     = "coupons"
)

// Common field names shared by several tables.
const (
	FieldID        = "id"
	FieldUserID    = "user_id"
	FieldCourseID  = "course_id"
	FieldMode      = "mode"
	FieldPrice     = "price"
	FieldCurrency  = "currency"
	FieldStatus    = "status"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// users fields
const (
	FieldUsername  = "username"
	FieldEmail     = "email"
	FieldPassword  = "password"
	FieldEdxUserID = "edx_user_id"
	FieldIsAdmin   = "is_admin"
)

// sessions fields
const (
	FieldToken        = "token"
	FieldExpiresAt    = "expires_at"
	FieldIPAddress    = "ip_address"
	FieldUserAgent    = "user_agent"
	FieldIsRevoked    = "is_revoked"
	FieldLastActivity = "last_activity"
)

// cart_items fields
const (
	FieldCartID     = "cart_id"
	FieldCourseJSON = "course_json"
)

// enrollments fields
const (
	FieldIsActive     = "is_active"
	FieldEnrolledAt   = "enrolled_at"
	FieldLastAccessed = "last_accessed"
)

// orders fields
const (
	FieldOrderID         = "order_id"
	FieldPaymentIntentID = "payment_intent_id"
	FieldAmount          = "amount"
	FieldCouponCode      = "coupon_code"
	FieldDiscount        = "discount"
	FieldCourseName      = "course_name"
)

// coupons fields
const (
	FieldCode        = "code"
	FieldDescription = "description"
	FieldPercentOff  = "percent_off"
	FieldRule        = "rule"
	FieldStartsAt    = "starts_at"
	FieldEndsAt      = "ends_at"
)
