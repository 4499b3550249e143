package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CategorySeed is one chart-of-accounts entry to create or rename
type CategorySeed struct {
	Code string `json:"code" yaml:"code" validate:"required,max=50"`
	Name string `json:"name" yaml:"name" validate:"max=200"`
}

// SeedCategoriesCommand upserts a chart of accounts
type SeedCategoriesCommand struct {
	Categories []CategorySeed `json:"categories" yaml:"categories" validate:"required,min=1,dive"`
}

// SeedResult is returned by CategoryService.Seed
type SeedResult struct {
	Upserted []ledger.Category
	// Well-known codes still absent after seeding. Postings that need them
	// fail with ErrCategoryNotFound.
	MissingWellKnown []ledger.CategoryCode
}

// CategoryService maintains the category directory
type CategoryService struct {
	scope TransactionScope
	serviceConfig
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(scope TransactionScope, opts ...ServiceOption) *CategoryService {
	return &CategoryService{
		scope:         scope,
		serviceConfig: newServiceConfig(opts),
	}
}

// Seed upserts every category by code in one transaction. Existing codes
// keep their ID and take the new name.
func (s *CategoryService) Seed(ctx context.Context, cmd SeedCategoriesCommand) (result *SeedResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "category", "seed")
	defer span.End()
	started := time.Now()
	defer func() { s.finish(ctx, span, "seed_categories", started, err) }()

	if err = validateCommand(cmd); err != nil {
		return nil, err
	}

	result = &SeedResult{}
	custom := 0
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		seen := make(map[string]bool, len(cmd.Categories))
		for _, seed := range cmd.Categories {
			category, err := ledger.NewCategory(seed.Code, seed.Name)
			if err != nil {
				return err
			}
			if seen[category.Code] {
				return ledger.ErrDuplicateCategory.WithMessage(fmt.Sprintf("Category %s appears twice in the seed", category.Code))
			}
			seen[category.Code] = true

			if err := repos.Categories().Upsert(ctx, category); err != nil {
				return fmt.Errorf("failed to upsert category %s: %w", category.Code, err)
			}
			result.Upserted = append(result.Upserted, *category)
			if !ledger.CategoryCode(category.Code).IsWellKnown() {
				custom++
			}
		}

		set, err := loadCategorySet(ctx, repos)
		if err != nil {
			return err
		}
		for _, code := range ledger.AllCategoryCodes() {
			if _, err := set.Get(code); err != nil {
				result.MissingWellKnown = append(result.MissingWellKnown, code)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to seed categories: %w", err)
	}

	if len(result.MissingWellKnown) > 0 {
		s.logger.Warn("well-known categories missing after seeding",
			zap.Int("missing", len(result.MissingWellKnown)),
			zap.Any("codes", result.MissingWellKnown),
		)
	}
	s.logger.Info("categories seeded",
		zap.Int("count", len(result.Upserted)),
		zap.Int("custom", custom),
	)
	return result, nil
}
