// Package routes owns the route registry: services, the path prefixes they
// serve, and the static model catalog behind endpoint routes.
package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/db"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Registry reads and writes routes. Every write drops all cache namespaces.
type Registry struct {
	db        *gorm.DB
	registrar Registrar
	store     cache.Store
}

// NewRegistry constructs a Registry. A nil registrar falls back to LocalRegistrar.
func NewRegistry(conn *gorm.DB, registrar Registrar, store cache.Store) *Registry {
	if registrar == nil {
		registrar = LocalRegistrar{}
	}
	return &Registry{db: conn, registrar: registrar, store: store}
}

// ServiceInput describes a service registration.
type ServiceInput struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	URL            string `json:"url"`
	HealthCheckURL string `json:"health_check_url"`
}

// RegisterService creates or updates a service by name.
func (r *Registry) RegisterService(ctx context.Context, in ServiceInput) (models.KongService, error) {
	name := strings.TrimSpace(in.Name)
	url := strings.TrimSpace(in.URL)
	if name == "" || url == "" {
		return models.KongService{}, pwerrors.WrongParameters("service name and url are required", map[string]any{
			"name": name, "url": url,
		})
	}

	var service models.KongService
	errFind := r.db.WithContext(ctx).Where("name = ?", name).First(&service).Error
	if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return models.KongService{}, fmt.Errorf("routes: find service: %w", errFind)
	}
	service.Name = name
	service.Description = strings.TrimSpace(in.Description)
	service.URL = url
	service.HealthCheckURL = strings.TrimSpace(in.HealthCheckURL)

	kongID, errRegister := r.registrar.RegisterService(ctx, service)
	if errRegister != nil {
		return models.KongService{}, pwerrors.Wrap(pwerrors.KindOther, errRegister, "gateway service registration failed")
	}
	service.KongID = kongID
	if errSave := r.db.WithContext(ctx).Save(&service).Error; errSave != nil {
		return models.KongService{}, fmt.Errorf("routes: save service: %w", errSave)
	}
	r.invalidate(ctx)
	return service, nil
}

// RouteInput describes a route registration.
type RouteInput struct {
	ServiceName string           `json:"service_name"`
	Name        string           `json:"name"`
	URLPrefix   string           `json:"url_prefix"`
	RouteType   models.RouteType `json:"route_type"`
	Description string           `json:"description"`
	ExtraInfo   map[string]any   `json:"extra_info"`
}

// RegisterRoute creates or updates a route by name. Prefixes overlapping a
// route with another name are rejected.
func (r *Registry) RegisterRoute(ctx context.Context, in RouteInput) (models.Route, error) {
	name := strings.TrimSpace(in.Name)
	prefix := NormalizePrefix(in.URLPrefix)
	if name == "" || prefix == "/" {
		return models.Route{}, pwerrors.WrongParameters("route name and url_prefix are required", map[string]any{
			"name": name, "url_prefix": in.URLPrefix,
		})
	}
	if !in.RouteType.Valid() {
		return models.Route{}, pwerrors.WrongParameters("unknown route type", map[string]any{"route_type": in.RouteType})
	}
	extra := datatypes.JSON([]byte("{}"))
	if len(in.ExtraInfo) > 0 {
		raw, errEncode := json.Marshal(in.ExtraInfo)
		if errEncode != nil {
			return models.Route{}, pwerrors.WrongParameters("extra_info is not serializable", nil)
		}
		extra = raw
	}

	var route models.Route
	errTx := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var service models.KongService
		if errFind := tx.Where("name = ?", strings.TrimSpace(in.ServiceName)).First(&service).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return pwerrors.DoesNotExist("service not registered", map[string]any{"service_name": in.ServiceName})
			}
			return fmt.Errorf("routes: find service: %w", errFind)
		}

		var others []models.Route
		if errList := tx.Where("name <> ?", name).Find(&others).Error; errList != nil {
			return fmt.Errorf("routes: list routes: %w", errList)
		}
		for _, other := range others {
			if strings.HasPrefix(other.URLPrefix, prefix) || strings.HasPrefix(prefix, other.URLPrefix) {
				return pwerrors.WrongParameters("url_prefix overlaps an existing route", map[string]any{
					"url_prefix": prefix, "conflicts_with": other.Name,
				})
			}
		}

		errFind := tx.Where("name = ?", name).First(&route).Error
		if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("routes: find route: %w", errFind)
		}
		route.Name = name
		route.URLPrefix = prefix
		route.RouteType = in.RouteType
		route.ServiceID = service.ID
		route.Description = strings.TrimSpace(in.Description)
		route.ExtraInfo = extra

		kongID, errRegister := r.registrar.RegisterRoute(ctx, service, route)
		if errRegister != nil {
			return pwerrors.Wrap(pwerrors.KindOther, errRegister, "gateway route registration failed")
		}
		route.KongID = kongID
		if errSave := tx.Omit(clause.Associations).Save(&route).Error; errSave != nil {
			return fmt.Errorf("routes: save route: %w", errSave)
		}
		route.Service = service
		return nil
	})
	if errTx != nil {
		return models.Route{}, errTx
	}
	r.invalidate(ctx)
	log.WithFields(log.Fields{"route": route.Name, "url_prefix": route.URLPrefix}).Info("route registered")
	return route, nil
}

// Lookup returns the single route whose prefix matches path.
func (r *Registry) Lookup(ctx context.Context, path string) (models.Route, error) {
	var matches []models.Route
	errFind := r.db.WithContext(ctx).
		Where("url_prefix IN ?", CandidatePrefixes(path)).
		Find(&matches).Error
	if errFind != nil {
		return models.Route{}, fmt.Errorf("routes: lookup: %w", errFind)
	}
	switch len(matches) {
	case 0:
		return models.Route{}, pwerrors.DoesNotExist("no route matches path", map[string]any{"path": path})
	case 1:
		return matches[0], nil
	default:
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, m.Name)
		}
		log.WithFields(log.Fields{"path": path, "routes": names}).Error("ambiguous route configuration")
		return models.Route{}, pwerrors.Other("path matches more than one route", map[string]any{"path": path, "routes": names})
	}
}

// ListFilter narrows List.
type ListFilter struct {
	Name      string
	RouteType models.RouteType
	ServiceID uint64
}

// List returns routes ordered by prefix.
func (r *Registry) List(ctx context.Context, filter ListFilter) ([]models.Route, error) {
	q := r.db.WithContext(ctx).Model(&models.Route{}).Preload("Service")
	if name := strings.TrimSpace(filter.Name); name != "" {
		cond, pattern := db.CaseInsensitiveLike(r.db, "name", name)
		q = q.Where(cond, pattern)
	}
	if filter.RouteType != "" {
		q = q.Where("route_type = ?", filter.RouteType)
	}
	if filter.ServiceID != 0 {
		q = q.Where("service_id = ?", filter.ServiceID)
	}
	var out []models.Route
	if errFind := q.Order("url_prefix ASC").Find(&out).Error; errFind != nil {
		return nil, fmt.Errorf("routes: list: %w", errFind)
	}
	return out, nil
}

// DeleteRoute removes a route and every policy attached to it.
func (r *Registry) DeleteRoute(ctx context.Context, id uint64) error {
	var route models.Route
	if errFind := r.db.WithContext(ctx).First(&route, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return pwerrors.DoesNotExist("route not found", map[string]any{"id": id})
		}
		return fmt.Errorf("routes: find route: %w", errFind)
	}
	if errRegistrar := r.registrar.DeleteRoute(ctx, route.KongID); errRegistrar != nil {
		return pwerrors.Wrap(pwerrors.KindOther, errRegistrar, "gateway route removal failed")
	}
	errTx := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		policies := tx.Model(&models.PermissionPolicy{}).Select("id").Where("route_id = ?", route.ID)
		if err := tx.Where("policy_id IN (?)", policies).Delete(&models.PolicyAction{}).Error; err != nil {
			return fmt.Errorf("routes: delete policy actions: %w", err)
		}
		if err := tx.Where("policy_id IN (?)", policies).Delete(&models.PolicyUser{}).Error; err != nil {
			return fmt.Errorf("routes: delete user assignments: %w", err)
		}
		if err := tx.Where("policy_id IN (?)", policies).Delete(&models.PolicyGroup{}).Error; err != nil {
			return fmt.Errorf("routes: delete group assignments: %w", err)
		}
		if err := tx.Where("route_id = ?", route.ID).Delete(&models.PermissionPolicy{}).Error; err != nil {
			return fmt.Errorf("routes: delete policies: %w", err)
		}
		if err := tx.Delete(&models.Route{}, route.ID).Error; err != nil {
			return fmt.Errorf("routes: delete route: %w", err)
		}
		return nil
	})
	if errTx != nil {
		return errTx
	}
	r.invalidate(ctx)
	return nil
}

func (r *Registry) invalidate(ctx context.Context) {
	if r.store == nil {
		return
	}
	if errInvalidate := cache.InvalidateEverything(ctx, r.store); errInvalidate != nil {
		log.WithError(errInvalidate).Error("cache invalidation after registry write failed")
	}
}

// NormalizePrefix returns prefix with a leading and a trailing slash.
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix != "/" {
		prefix += "/"
	}
	return prefix
}

// CandidatePrefixes lists every slash terminated prefix of path, shortest first.
func CandidatePrefixes(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return []string{"/"}
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			out = append(out, path[:i+1])
		}
	}
	return out
}
