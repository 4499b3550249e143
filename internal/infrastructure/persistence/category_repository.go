package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCategoryDirectory implements ledger.CategoryDirectory using GORM
type GormCategoryDirectory struct {
	db *gorm.DB
}

// NewGormCategoryDirectory creates a new GormCategoryDirectory
func NewGormCategoryDirectory(db *gorm.DB) *GormCategoryDirectory {
	return &GormCategoryDirectory{db: db}
}

// FindByCodes returns the categories carrying any of codes. Unknown codes
// are skipped; callers decide whether a missing code is fatal.
func (r *GormCategoryDirectory) FindByCodes(ctx context.Context, codes []ledger.CategoryCode) ([]ledger.Category, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	raw := make([]string, len(codes))
	for i, c := range codes {
		raw[i] = c.String()
	}

	var rows []models.CategoryModel
	if err := r.db.WithContext(ctx).Where("code IN ?", raw).Find(&rows).Error; err != nil {
		return nil, err
	}
	return categoriesToDomain(rows), nil
}

// FindByIDs returns the categories with any of ids
func (r *GormCategoryDirectory) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]ledger.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.CategoryModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return categoriesToDomain(rows), nil
}

// FindByCode finds a single category by its code
func (r *GormCategoryDirectory) FindByCode(ctx context.Context, code string) (*ledger.Category, error) {
	var row models.CategoryModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrCategoryNotFound.WithMessage(fmt.Sprintf("Category %s is not configured", code))
		}
		return nil, err
	}
	c := row.ToDomain()
	return &c, nil
}

// Upsert creates the category or renames the existing one with the same
// code. The stored ID is written back to category.
func (r *GormCategoryDirectory) Upsert(ctx context.Context, category *ledger.Category) error {
	model := models.CategoryModelFromDomain(category)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.Assignments(map[string]any{"name": category.Name, "updated_at": time.Now().UTC()}),
		}).Create(model).Error; err != nil {
			return err
		}

		var stored models.CategoryModel
		if err := tx.Where("code = ?", category.Code).First(&stored).Error; err != nil {
			return err
		}
		category.ID = stored.ID
		return nil
	})
}

func categoriesToDomain(rows []models.CategoryModel) []ledger.Category {
	out := make([]ledger.Category, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// GormContactCategoryRepository implements ledger.ContactCategoryRepository using GORM
type GormContactCategoryRepository struct {
	db *gorm.DB
}

// NewGormContactCategoryRepository creates a new GormContactCategoryRepository
func NewGormContactCategoryRepository(db *gorm.DB) *GormContactCategoryRepository {
	return &GormContactCategoryRepository{db: db}
}

// FindCategoryID returns the receivable or payable category of a contact
func (r *GormContactCategoryRepository) FindCategoryID(ctx context.Context, contactID uuid.UUID, role ledger.ContactRole) (uuid.UUID, error) {
	var row models.ContactCategoryModel
	if err := r.db.WithContext(ctx).
		Where("contact_id = ? AND role = ?", contactID, role).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, ledger.ErrContactCategoryNotFound.WithMessage(
				fmt.Sprintf("Contact %s has no %s category", contactID, role))
		}
		return uuid.Nil, err
	}
	return row.CategoryID, nil
}

// Save creates or replaces the mapping of a contact in a role
func (r *GormContactCategoryRepository) Save(ctx context.Context, mapping *ledger.ContactCategory) error {
	row := models.ContactCategoryModel{
		ContactID:  mapping.ContactID,
		Role:       mapping.Role,
		CategoryID: mapping.CategoryID,
		UpdatedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contact_id"}, {Name: "role"}},
		DoUpdates: clause.AssignmentColumns([]string{"category_id", "updated_at"}),
	}).Create(&row).Error
}

// Ensure the GORM implementations satisfy the ledger ports
var (
	_ ledger.CategoryDirectory         = (*GormCategoryDirectory)(nil)
	_ ledger.ContactCategoryRepository = (*GormContactCategoryRepository)(nil)
)
