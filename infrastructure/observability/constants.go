package observability

// Metric name prefixes
const (
	MetricPrefix = "arenawager"
)

// Metric names
const (
	// Wager metrics
	WagersCreatedTotal   = MetricPrefix + ".wagers.created_total"
	WagersAcceptedTotal  = MetricPrefix + ".wagers.accepted_total"
	WagersResolvedTotal  = MetricPrefix + ".wagers.resolved_total"
	WagersCancelledTotal = MetricPrefix + ".wagers.cancelled_total"
	WagersActive         = MetricPrefix + ".wagers.active"

	// Economy metrics
	TaxCollectedTotal        = MetricPrefix + ".tax.collected_total"
	BalanceTransactionsTotal = MetricPrefix + ".balance.transactions_total"
)

// Label keys
const (
	LabelType   = "type"
	LabelArena  = "arena"
	LabelReason = "reason"
)
