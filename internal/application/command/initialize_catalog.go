package command

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bizhub-io/gamification-engine/internal/domain/achievement"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// INITIALIZE CATALOG COMMAND
// Seeds the default achievement definitions. Upserts match on name, so the
// command is idempotent and never duplicates or resurrects deactivated rows
// with new IDs.
// ══════════════════════════════════════════════════════════════════════════════

// InitializeCatalogHandler seeds the built-in achievement catalog.
type InitializeCatalogHandler struct {
	catalog achievement.CatalogRepository
	clock   shared.Clock
	logger  *slog.Logger
}

// NewInitializeCatalogHandler creates a new InitializeCatalogHandler.
func NewInitializeCatalogHandler(
	catalog achievement.CatalogRepository,
	clock shared.Clock,
	logger *slog.Logger,
) *InitializeCatalogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InitializeCatalogHandler{
		catalog: catalog,
		clock:   clock,
		logger:  logger.With("handler", "initialize_catalog"),
	}
}

// Handle upserts every default definition and returns how many were written.
func (h *InitializeCatalogHandler) Handle(ctx context.Context) (int, error) {
	now := h.clock.Now()
	seeded := 0

	for _, def := range achievement.DefaultCatalog() {
		a := &achievement.Achievement{
			ID:          uuid.NewString(),
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			Category:    def.Category,
			Type:        def.Type,
			Points:      def.Points,
			Criteria:    def.Criteria,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := a.Validate(); err != nil {
			return seeded, shared.WrapError("achievement", "InitializeCatalog", shared.ErrInvalidEntity, "invalid seed definition "+def.Name, err)
		}
		if err := h.catalog.UpsertByName(ctx, a); err != nil {
			return seeded, shared.WrapError("achievement", "InitializeCatalog", shared.ErrExternalService, "upserting "+def.Name, err)
		}
		seeded++
	}

	h.logger.Info("achievement catalog initialized", "definitions", seeded)
	return seeded, nil
}
