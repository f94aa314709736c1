package constants

// ContextKeyUserID is the session and gin-context key for the authenticated
// user's ID.
const ContextKeyUserID = "user_id"

// ContextKeyUserRole is the gin-context key for the authenticated user's role.
const ContextKeyUserRole = "user_role"

// MinPasswordLength is the minimum accepted password length at signup.
const MinPasswordLength = 8

// DefaultPaymentMethod is recorded when a payment arrives through the payment
// processor rather than being entered manually.
const DefaultPaymentMethod = "stripe"
