// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"
	KeyAccessDenied     = "auth.access_denied"

	// Datasets
	KeyDatasetCreated       = "dataset.created"
	KeyDatasetUpdated       = "dataset.updated"
	KeyDatasetDeleted       = "dataset.deleted"
	KeyDatasetNotFound      = "dataset.not_found"
	KeyDatasetPublished     = "dataset.published"
	KeyDatasetArchived      = "dataset.archived"
	KeyDatasetSuspended     = "dataset.suspended"
	KeyDatasetCodeExists    = "dataset.code_exists"
	KeyDatasetNotPublished  = "dataset.not_published"
	KeyCategoryNotFound     = "category.not_found"

	// Access
	KeyAccessGranted       = "access.granted"
	KeyAccessRevoked       = "access.revoked"
	KeyAccessNotFound      = "access.not_found"
	KeyAccessAlreadyActive = "access.already_active"
	KeyAccessExpired       = "access.expired"
	KeyAccessQuotaExceeded = "access.quota_exceeded"

	// Ratings
	KeyRatingSubmitted = "rating.submitted"
	KeyRatingDeleted   = "rating.deleted"
	KeyRatingNotFound  = "rating.not_found"
	KeyRatingInvalid   = "rating.invalid"

	// Transactions
	KeyTransactionCreated   = "transaction.created"
	KeyTransactionNotFound  = "transaction.not_found"
	KeyTransactionCancelled = "transaction.cancelled"
	KeyPaymentFailed        = "transaction.payment_failed"

	// Refunds
	KeyRefundRequested    = "refund.requested"
	KeyRefundApproved     = "refund.approved"
	KeyRefundRejected     = "refund.rejected"
	KeyRefundNotFound     = "refund.not_found"
	KeyRefundNotEligible  = "refund.not_eligible"
	KeyRefundAmountExceed = "refund.amount_exceeds"

	// Revenue
	KeyRevenueNotFound    = "revenue.not_found"
	KeyRevenueRecomputed  = "revenue.recomputed"
	KeyRevenueMarkedPaid  = "revenue.marked_paid"

	// Validation
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationRequired = "validation.required"
)
