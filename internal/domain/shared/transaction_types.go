package shared

// TransactionType classifies ledger entries
type TransactionType string

const (
	TransactionTypeDeposit         TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal      TransactionType = "WITHDRAWAL"
	TransactionTypeSale            TransactionType = "SALE"
	TransactionTypeCommission      TransactionType = "COMMISSION"
	TransactionTypeRefund          TransactionType = "REFUND"
	TransactionTypeAdminAdjustment TransactionType = "ADMIN_ADJUSTMENT"
)

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeSale,
		TransactionTypeCommission, TransactionTypeRefund, TransactionTypeAdminAdjustment:
		return true
	}
	return false
}

// TransactionStatus is the status of a ledger entry. It mirrors the status of the
// deposit or withdrawal the entry belongs to.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusProcessing TransactionStatus = "PROCESSING"
	TransactionStatusConfirmed  TransactionStatus = "CONFIRMED"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusRejected   TransactionStatus = "REJECTED"
	TransactionStatusRetained   TransactionStatus = "RETIDO"
)

// FailureReason defines withdrawal and deposit failure categories
type FailureReason string

const (
	FailureReasonGatewayError   FailureReason = "GATEWAY_ERROR"
	FailureReasonProviderFailed FailureReason = "PROVIDER_REPORTED_FAILURE"
	FailureReasonAdminRejected  FailureReason = "REJECTED_BY_ADMIN"
	FailureReasonRetained       FailureReason = "FUNDS_RETAINED_BY_PROVIDER"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// Provider names the acquiring gateway a deposit or withdrawal was routed to.
type Provider string

const (
	ProviderKeyClub Provider = "keyclub"
	ProviderXFlow   Provider = "xflow"
)
