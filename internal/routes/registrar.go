package routes

import (
	"context"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/google/uuid"
)

// Registrar is the gateway boundary. It registers services and routes and
// returns the identifiers the gateway assigned to them.
type Registrar interface {
	RegisterService(ctx context.Context, service models.KongService) (string, error)
	RegisterRoute(ctx context.Context, service models.KongService, route models.Route) (string, error)
	DeleteRoute(ctx context.Context, kongID string) error
}

// LocalRegistrar keeps identifiers already assigned and mints uuids for new records.
type LocalRegistrar struct{}

// RegisterService implements Registrar.
func (LocalRegistrar) RegisterService(_ context.Context, service models.KongService) (string, error) {
	if service.KongID != "" {
		return service.KongID, nil
	}
	return uuid.NewString(), nil
}

// RegisterRoute implements Registrar.
func (LocalRegistrar) RegisterRoute(_ context.Context, _ models.KongService, route models.Route) (string, error) {
	if route.KongID != "" {
		return route.KongID, nil
	}
	return uuid.NewString(), nil
}

// DeleteRoute implements Registrar.
func (LocalRegistrar) DeleteRoute(context.Context, string) error { return nil }
