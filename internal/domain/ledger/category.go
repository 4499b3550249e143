package ledger

import (
	"fmt"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// CategoryCode names a well-known ledger category the engine posts to
// without it being referenced by a document line.
type CategoryCode string

const (
	CodeInventoryAsset   CategoryCode = "INVENTORY_ASSET"
	CodeCostOfGoodsSold  CategoryCode = "COST_OF_GOODS_SOLD"
	CodeInputVAT         CategoryCode = "INPUT_VAT"
	CodeOutputVAT        CategoryCode = "OUTPUT_VAT"
	CodeSalesDiscount    CategoryCode = "SALES_DISCOUNT"
	CodePurchaseDiscount CategoryCode = "PURCHASE_DISCOUNT"
	CodeInputExciseTax   CategoryCode = "INPUT_EXCISE_TAX"
	CodeOutputExciseTax  CategoryCode = "OUTPUT_EXCISE_TAX"
	CodePettyCash        CategoryCode = "PETTY_CASH"
)

// AllCategoryCodes returns the closed set of well-known codes
func AllCategoryCodes() []CategoryCode {
	return []CategoryCode{
		CodeInventoryAsset,
		CodeCostOfGoodsSold,
		CodeInputVAT,
		CodeOutputVAT,
		CodeSalesDiscount,
		CodePurchaseDiscount,
		CodeInputExciseTax,
		CodeOutputExciseTax,
		CodePettyCash,
	}
}

// IsWellKnown returns true if the code belongs to the closed set
func (c CategoryCode) IsWellKnown() bool {
	for _, known := range AllCategoryCodes() {
		if c == known {
			return true
		}
	}
	return false
}

// String returns the string representation of CategoryCode
func (c CategoryCode) String() string {
	return string(c)
}

// Category is a chart-of-accounts bucket journal lines post against
type Category struct {
	ID   uuid.UUID
	Code string
	Name string
}

// NewCategory creates a category with a generated ID
func NewCategory(code, name string) (*Category, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.ErrInvalidInput.WithMessage("Category code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.ErrInvalidInput.WithMessage("Category code cannot exceed 50 characters")
	}
	if strings.TrimSpace(name) == "" {
		name = code
	}
	return &Category{ID: uuid.New(), Code: code, Name: name}, nil
}

// CategorySet is the closed set of well-known categories resolved once
// per posting. Codes absent from the directory only fail when used.
type CategorySet struct {
	byCode map[CategoryCode]*Category
}

// NewCategorySet indexes the categories returned by the directory
func NewCategorySet(categories []Category) CategorySet {
	set := CategorySet{byCode: make(map[CategoryCode]*Category, len(categories))}
	for i := range categories {
		c := categories[i]
		set.byCode[CategoryCode(c.Code)] = &c
	}
	return set
}

// Get returns the category for code or ErrCategoryNotFound
func (s CategorySet) Get(code CategoryCode) (*Category, error) {
	if c, ok := s.byCode[code]; ok {
		return c, nil
	}
	return nil, ErrCategoryNotFound.WithMessage(fmt.Sprintf("Category %s is not configured", code))
}

// CategoryIndex maps category IDs to categories for the lines of one posting
type CategoryIndex map[uuid.UUID]*Category

// NewCategoryIndex indexes categories by ID
func NewCategoryIndex(categories []Category) CategoryIndex {
	idx := make(CategoryIndex, len(categories))
	for i := range categories {
		c := categories[i]
		idx[c.ID] = &c
	}
	return idx
}

// Get returns the category for id or ErrCategoryNotFound
func (idx CategoryIndex) Get(id uuid.UUID) (*Category, error) {
	if c, ok := idx[id]; ok {
		return c, nil
	}
	return nil, ErrCategoryNotFound.WithMessage(fmt.Sprintf("Category %s not found", id))
}

// ContactCategory maps a contact in a role to its receivable or payable category
type ContactCategory struct {
	ContactID  uuid.UUID
	Role       ContactRole
	CategoryID uuid.UUID
}
