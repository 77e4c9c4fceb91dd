package audithook

// Action constants for audit events.
const (
	// Sale actions
	ActionSaleCompleted = "sale.completed"
	ActionSaleSandboxed = "sale.sandboxed"
	ActionSaleFailed    = "sale.failed"

	// Stock actions
	ActionStockLow = "stock.low"

	// Catalog actions
	ActionProductCreated = "product.created"
	ActionProductUpdated = "product.updated"
	ActionProductDeleted = "product.deleted"

	// Invoice actions
	ActionInvoiceRendered = "invoice.rendered"
)

// Resource constants for audit events.
const (
	ResourceSale    = "sale"
	ResourceProduct = "product"
	ResourceInvoice = "invoice"
)

// Category constants for audit events.
const (
	CategoryBilling   = "billing"
	CategoryInventory = "inventory"
	CategoryDocument  = "document"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
