package models

// PurchaseStatus is the provisioning state of a purchase record.
type PurchaseStatus string

const (
	StatusPending   PurchaseStatus = "pending"
	StatusCompleted PurchaseStatus = "completed"
	StatusFailed    PurchaseStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s PurchaseStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Purchase 购买记录
// One row per (order, identity, entitlement) extracted from an order.
type Purchase struct {
	BaseModel

	OrderID string `json:"order_id" gorm:"not null;size:64;index"`

	// Unbounded: values are stored before validation so bad ones can be marked failed
	Identity    string         `json:"identity" gorm:"not null;type:text"`
	Entitlement string         `json:"entitlement" gorm:"not null;type:text"`
	Status      PurchaseStatus `json:"status" gorm:"not null;size:20;default:'pending';index"`

	// Only set when Status is failed
	ErrorMessage *string `json:"error_message" gorm:"type:text"`
}

// TableName 指定表名
func (Purchase) TableName() string {
	return "purchases"
}
