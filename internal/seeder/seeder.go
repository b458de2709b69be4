package seeder

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/database"
	"github.com/Additional-Code/procura/internal/entity"
)

// DevPassword is the password of every seeded account.
const DevPassword = "procura-dev"

// Module provides the Seeder for CLI commands.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	cost   int
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, cfg config.Config, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, cost: cfg.Auth.BcryptCost, logger: logger}
}

// Users seeds one approved account per role if they are missing.
func (s *Seeder) Users(ctx context.Context) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(DevPassword), s.cost)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	roles := []entity.Role{entity.RoleBuyer, entity.RoleVendor, entity.RoleApprover, entity.RoleAdmin}
	for _, role := range roles {
		user := entity.User{
			Name:         fmt.Sprintf("Demo %s", role),
			Email:        fmt.Sprintf("%s@procura.local", role),
			PasswordHash: string(hash),
			Role:         role,
			Company:      "Procura Demo",
			Approved:     true,
			CreatedAt:    now,
		}
		_, err := s.db.NewInsert().Model(&user).
			On("CONFLICT (email) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded users", zap.Int("count", len(roles)))
	}
	return nil
}

// RFPs seeds a published RFP owned by the demo buyer when it has none.
func (s *Seeder) RFPs(ctx context.Context) error {
	var buyer entity.User
	err := s.db.NewSelect().Model(&buyer).
		Where("email = ?", fmt.Sprintf("%s@procura.local", entity.RoleBuyer)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("demo buyer missing, seed users first: %w", err)
	}

	exists, err := s.db.NewSelect().Model((*entity.RFP)(nil)).Where("created_by = ?", buyer.ID).Exists(ctx)
	if err != nil || exists {
		return err
	}

	now := time.Now().UTC()
	rfp := entity.RFP{
		Title:        "Office laptops",
		Description:  "Twenty developer laptops with three year warranty",
		Category:     "IT hardware",
		Budget:       decimal.NewFromInt(40000),
		Deadline:     now.AddDate(0, 1, 0),
		Requirements: []string{"16GB RAM", "Next business day support"},
		Attachments:  []string{},
		Status:       entity.RFPPublished,
		CreatedBy:    buyer.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.db.NewInsert().Model(&rfp).Exec(ctx); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("seeded rfps", zap.Int64("id", rfp.ID))
	}
	return nil
}
