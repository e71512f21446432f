package api

import "encoding/json"

// User is the authenticated account, cached opaquely at login and decoded
// only for display.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Organization string `json:"organization"`
	Role         string `json:"role"`
}

// Product is a catalogue item.
type Product struct {
	ID         int64  `json:"id"`
	SKU        string `json:"sku"`
	Barcode    string `json:"barcode"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int64  `json:"quantity"`
	UpdatedAt  string `json:"updated_at"`
}

// SaleItem is one line of a sale.
type SaleItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
	UnitCents int64 `json:"unit_cents"`
}

// Sale is a point-of-sale transaction.
type Sale struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customer_id"`
	Items      []SaleItem `json:"items"`
	TotalCents int64      `json:"total_cents"`
	CreatedAt  string     `json:"created_at"`
}

// Invoice is the billing document generated for a sale.
type Invoice struct {
	ID         int64  `json:"id"`
	SaleID     int64  `json:"sale_id"`
	Number     string `json:"number"`
	TotalCents int64  `json:"total_cents"`
	IssuedAt   string `json:"issued_at"`
}

// Work order stages, in kanban column order.
const (
	StageIntake    = "intake"
	StageDiagnosis = "diagnosis"
	StageRepair    = "repair"
	StageTesting   = "testing"
	StageReady     = "ready"
	StageDelivered = "delivered"
)

// WorkOrder is a repair ticket on the kanban board.
type WorkOrder struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Device     string `json:"device"`
	CustomerID int64  `json:"customer_id"`
	Stage      string `json:"stage"`
	Notes      string `json:"notes"`
	CreatedAt  string `json:"created_at"`
}

// loginResponse is the server reply to POST /auth/login. The user profile is
// kept raw so the credential store persists it without interpretation.
type loginResponse struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	User    json.RawMessage `json:"user"`
}
