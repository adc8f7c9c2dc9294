package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/buidl-renaissance/appblocks/internal/storage"
	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

// Catalog serves the connector/scope catalog and resolves recipes into
// concrete scope sets. Resolution is pure: it never reads or writes
// installation state.
type Catalog interface {
	ListConnectors(ctx context.Context, activeOnly bool) ([]itypes.Connector, error)
	GetConnector(ctx context.Context, id string) (*itypes.ConnectorWithScopes, error)
	ListConnectorScopes(ctx context.Context, connectorID string) ([]itypes.Scope, error)
	ListProviderScopes(ctx context.Context, providerID uuid.UUID) ([]itypes.Scope, error)
	ListRecipes(ctx context.Context, connectorID string) ([]itypes.ConnectorRecipe, error)
	ResolveRecipe(ctx context.Context, connectorID string, recipeID string) (itypes.StringList, error)
	ConsentView(ctx context.Context, connectorID string, recipeID string, role itypes.Role) ([]itypes.ConsentScope, error)
}

var _ Catalog = (*CatalogService)(nil)

type CatalogService struct {
	db     storage.DatabaseStorage
	logger *logrus.Logger
}

func NewCatalogService(db storage.DatabaseStorage) (*CatalogService, error) {
	if db == nil {
		return nil, fmt.Errorf("database storage cannot be nil")
	}
	return &CatalogService{
		db:     db,
		logger: logrus.WithField("service", "catalog").Logger,
	}, nil
}

func (s *CatalogService) ListConnectors(ctx context.Context, activeOnly bool) ([]itypes.Connector, error) {
	connectors, err := s.db.FindConnectors(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list connectors: %w", err)
	}
	return connectors, nil
}

func (s *CatalogService) GetConnector(ctx context.Context, id string) (*itypes.ConnectorWithScopes, error) {
	connector, err := s.db.FindConnectorById(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get connector: %w", err)
	}
	if connector == nil {
		return nil, ErrConnectorNotFound
	}
	scopes, err := s.db.GetConnectorScopes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get connector scopes: %w", err)
	}
	return &itypes.ConnectorWithScopes{
		Connector: *connector,
		Scopes:    scopes,
	}, nil
}

func (s *CatalogService) ListConnectorScopes(ctx context.Context, connectorID string) ([]itypes.Scope, error) {
	scopes, err := s.db.GetConnectorScopes(ctx, connectorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connector scopes: %w", err)
	}
	return scopes, nil
}

func (s *CatalogService) ListProviderScopes(ctx context.Context, providerID uuid.UUID) ([]itypes.Scope, error) {
	scopes, err := s.db.GetProviderScopes(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider scopes: %w", err)
	}
	return scopes, nil
}

func (s *CatalogService) ListRecipes(ctx context.Context, connectorID string) ([]itypes.ConnectorRecipe, error) {
	recipes, err := s.db.GetConnectorRecipes(ctx, connectorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, nil
}

// ResolveRecipe maps a recipe id to its fixed scope list. The "custom"
// recipe resolves to the connector's full offered set so the consent step
// can deselect individual scopes.
func (s *CatalogService) ResolveRecipe(ctx context.Context, connectorID string, recipeID string) (itypes.StringList, error) {
	if recipeID == itypes.RecipeCustom {
		scopes, err := s.db.GetConnectorScopes(ctx, connectorID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve custom recipe: %w", err)
		}
		names := make(itypes.StringList, 0, len(scopes))
		for _, scope := range scopes {
			names = append(names, scope.Name)
		}
		return names.Normalize(), nil
	}

	recipe, err := s.db.GetConnectorRecipe(ctx, connectorID, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipe: %w", err)
	}
	if recipe == nil {
		return nil, ErrRecipeNotFound
	}
	return recipe.Scopes.Normalize(), nil
}

// ConsentView builds the scope presentation for the consent step: every
// offered scope with its description, whether the operator's role can grant
// it, and whether the chosen recipe preselects it.
func (s *CatalogService) ConsentView(ctx context.Context, connectorID string, recipeID string, role itypes.Role) ([]itypes.ConsentScope, error) {
	offered, err := s.db.GetConnectorScopes(ctx, connectorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get connector scopes: %w", err)
	}

	var preset itypes.StringList
	if recipeID != "" {
		preset, err = s.ResolveRecipe(ctx, connectorID, recipeID)
		if err != nil {
			return nil, err
		}
	}

	view := make([]itypes.ConsentScope, 0, len(offered))
	for _, scope := range offered {
		view = append(view, itypes.ConsentScope{
			Scope:      scope,
			Selectable: scope.IsPublicRead || role.AtLeast(scope.RequiredRole),
			Preset:     preset.Contains(scope.Name),
		})
	}
	return view, nil
}
