package ledger

import (
	"fmt"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
)

// DocumentKind identifies the business document being posted
type DocumentKind string

const (
	KindCreditNote DocumentKind = "CREDIT_NOTE" // Customer credit note, sale-side return
	KindDebitNote  DocumentKind = "DEBIT_NOTE"  // Supplier debit note, purchase-side return
	KindExpense    DocumentKind = "EXPENSE"     // Expense claim or supplier bill
)

// IsValid checks if the kind is a known DocumentKind
func (k DocumentKind) IsValid() bool {
	switch k {
	case KindCreditNote, KindDebitNote, KindExpense:
		return true
	}
	return false
}

// String returns the string representation of DocumentKind
func (k DocumentKind) String() string {
	return string(k)
}

// Direction derives the ledger direction from the document kind
func (k DocumentKind) Direction() Direction {
	if k == KindCreditNote {
		return DirectionSale
	}
	return DirectionPurchase
}

// ReferenceType returns the journal reference type used when posting this kind
func (k DocumentKind) ReferenceType() ReferenceType {
	return ReferenceType(k)
}

// ContraRole returns which contact mapping supplies the receivable/payable category
func (k DocumentKind) ContraRole() ContactRole {
	if k == KindCreditNote {
		return RoleCustomer
	}
	return RoleVendor
}

// SettlementFlag tells whether settling this kind moves money out of or into the bank
func (k DocumentKind) SettlementFlag() DebitCreditFlag {
	if k == KindDebitNote {
		return FlagCredit
	}
	return FlagDebit
}

// Direction is the sale or purchase side of a document
type Direction string

const (
	DirectionSale     Direction = "SALE"
	DirectionPurchase Direction = "PURCHASE"
)

// IsSale returns true for sale-direction documents
func (d Direction) IsSale() bool {
	return d == DirectionSale
}

// DocumentStatus is the payment lifecycle of a document
type DocumentStatus string

const (
	StatusPending       DocumentStatus = "PENDING"        // Not posted yet
	StatusOpen          DocumentStatus = "OPEN"           // Posted, nothing settled
	StatusPartiallyPaid DocumentStatus = "PARTIALLY_PAID" // Posted, partially settled
	StatusClosed        DocumentStatus = "CLOSED"         // Fully settled
)

// IsValid checks if the status is a valid DocumentStatus
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusOpen, StatusPartiallyPaid, StatusClosed:
		return true
	}
	return false
}

// String returns the string representation of DocumentStatus
func (s DocumentStatus) String() string {
	return string(s)
}

// CanSettle returns true if a settlement may be applied in this status
func (s DocumentStatus) CanSettle() bool {
	return s == StatusOpen || s == StatusPartiallyPaid
}

// HasSettlements returns true if money has already been applied to the document
func (s DocumentStatus) HasSettlements() bool {
	return s == StatusPartiallyPaid || s == StatusClosed
}

// DiscountType is how a line discount is expressed. Empty means no discount.
type DiscountType string

const (
	DiscountNone       DiscountType = ""
	DiscountFixed      DiscountType = "FIXED"
	DiscountPercentage DiscountType = "PERCENTAGE"
)

// IsValid checks if the discount type is known
func (t DiscountType) IsValid() bool {
	return t == DiscountNone || t == DiscountFixed || t == DiscountPercentage
}

// PayMode is how an expense was paid
type PayMode string

const (
	PayModeBank   PayMode = "BANK"
	PayModeCash   PayMode = "CASH"
	PayModeCredit PayMode = "CREDIT" // Owed to the payee, settled later
)

// IsValid checks if the pay mode is known
func (m PayMode) IsValid() bool {
	return m == PayModeBank || m == PayModeCash || m == PayModeCredit
}

// SettlesOnPost returns true when the expense was paid at the time it was recorded
func (m PayMode) SettlesOnPost() bool {
	return m == PayModeBank || m == PayModeCash
}

// ContactRole selects the receivable or payable mapping of a contact
type ContactRole string

const (
	RoleCustomer ContactRole = "CUSTOMER"
	RoleVendor   ContactRole = "VENDOR"
)

// ReferenceType tags a journal with the business event that produced it
type ReferenceType string

const (
	RefCreditNote        ReferenceType = "CREDIT_NOTE"
	RefDebitNote         ReferenceType = "DEBIT_NOTE"
	RefExpense           ReferenceType = "EXPENSE"
	RefReverseCreditNote ReferenceType = "REVERSE_CREDIT_NOTE"
	RefReverseDebitNote  ReferenceType = "REVERSE_DEBIT_NOTE"
	RefReverseExpense    ReferenceType = "REVERSE_EXPENSE"
	RefRefund            ReferenceType = "REFUND"
)

// String returns the string representation of ReferenceType
func (r ReferenceType) String() string {
	return string(r)
}

// IsReversal returns true for REVERSE_* reference types
func (r ReferenceType) IsReversal() bool {
	return strings.HasPrefix(string(r), "REVERSE_")
}

// Reverse returns the REVERSE_* counterpart of a posting reference type
func (r ReferenceType) Reverse() (ReferenceType, error) {
	switch r {
	case RefCreditNote:
		return RefReverseCreditNote, nil
	case RefDebitNote:
		return RefReverseDebitNote, nil
	case RefExpense:
		return RefReverseExpense, nil
	}
	return "", ErrNotReversible.WithMessage(fmt.Sprintf("Journals of type %s cannot be reversed", r))
}

// DocumentKind returns the document kind a posting reference type belongs to
func (r ReferenceType) DocumentKind() (DocumentKind, bool) {
	k := DocumentKind(r)
	return k, k.IsValid()
}

// ParseReferenceType parses a reference type name case-insensitively
func ParseReferenceType(s string) (ReferenceType, error) {
	r := ReferenceType(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RefCreditNote, RefDebitNote, RefExpense,
		RefReverseCreditNote, RefReverseDebitNote, RefReverseExpense, RefRefund:
		return r, nil
	}
	return "", shared.ErrInvalidInput.WithMessage(fmt.Sprintf("Unknown reference type %q", s))
}

// DebitCreditFlag records whether a settlement moved money out of (D) or into (C) the bank
type DebitCreditFlag string

const (
	FlagDebit  DebitCreditFlag = "D"
	FlagCredit DebitCreditFlag = "C"
)

// Side is the debit or credit column of a journal line
type Side int

const (
	Debit Side = iota
	Credit
)

// Opposite returns the other column
func (s Side) Opposite() Side {
	if s == Debit {
		return Credit
	}
	return Debit
}

func (s Side) String() string {
	if s == Debit {
		return "DEBIT"
	}
	return "CREDIT"
}
