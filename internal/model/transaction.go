package model

import (
	"fmt"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TxIn  TransactionType = "in"
	TxOut TransactionType = "out"
)

func (t TransactionType) Valid() bool {
	return t == TxIn || t == TxOut
}

// Label is the human-readable name used in activity descriptions
func (t TransactionType) Label() string {
	if t == TxIn {
		return "Stock In"
	}
	return "Stock Out"
}

// Delta is the signed stock change this movement applies
func (t TransactionType) Delta(quantity int) int {
	if t == TxIn {
		return quantity
	}
	return -quantity
}

// Transaction is one stock movement. Type and Quantity never change after
// creation; deleting it goes through the ledger reversal.
type Transaction struct {
	BaseModel
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `json:"product,omitempty"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User           `json:"user,omitempty"`
	Type      TransactionType `gorm:"type:varchar(10);not null;index" json:"type"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Notes     *string         `gorm:"type:text" json:"notes"`
}

func (t *Transaction) Describe(productName string) string {
	return fmt.Sprintf("%s: %s (%d unit)", t.Type.Label(), productName, t.Quantity)
}
