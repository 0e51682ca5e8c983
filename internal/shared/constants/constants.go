package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// HTTP Headers
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"

	// Context keys
	ContextKeySubject   = "subject"
	ContextKeyUserRole  = "user_role"
	ContextKeyRequestID = "request_id"

	// Table names
	TableSellIntents        = "sell_intents"
	TableSettlementRecords  = "settlement_records"
	TableUnmatchedDeposits  = "unmatched_deposits"
	TableBalanceAccounts    = "balance_accounts"
	TableLedgerOperations   = "ledger_operations"
	TableGooseDBVersion     = "goose_db_version"
	DefaultReceiveCurrency  = "NGN"
	DefaultIntentTTLMinutes = 30
)
