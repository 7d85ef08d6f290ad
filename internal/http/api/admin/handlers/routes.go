package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/routes"
	"github.com/gin-gonic/gin"
)

// RoutesHandler exposes the route registry.
type RoutesHandler struct {
	registry *routes.Registry
}

// NewRoutesHandler constructs a RoutesHandler.
func NewRoutesHandler(registry *routes.Registry) *RoutesHandler {
	return &RoutesHandler{registry: registry}
}

// serviceView is the wire form of a service.
type serviceView struct {
	ID             uint64 `json:"pk"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	URL            string `json:"url"`
	HealthCheckURL string `json:"health_check_url"`
	KongID         string `json:"kong_id"`
}

// routeView is the wire form of a route.
type routeView struct {
	ID          uint64           `json:"pk"`
	Name        string           `json:"name"`
	URLPrefix   string           `json:"url_prefix"`
	RouteType   models.RouteType `json:"route_type"`
	Description string           `json:"description"`
	ExtraInfo   any              `json:"extra_info"`
	KongID      string           `json:"kong_id"`
	ServiceID   uint64           `json:"service_id"`
	Service     string           `json:"service,omitempty"`
}

func newServiceView(s models.KongService) serviceView {
	return serviceView{
		ID:             s.ID,
		Name:           s.Name,
		Description:    s.Description,
		URL:            s.URL,
		HealthCheckURL: s.HealthCheckURL,
		KongID:         s.KongID,
	}
}

func newRouteView(r models.Route) routeView {
	var extra any = map[string]any{}
	if len(r.ExtraInfo) > 0 {
		extra = r.ExtraInfo
	}
	return routeView{
		ID:          r.ID,
		Name:        r.Name,
		URLPrefix:   r.URLPrefix,
		RouteType:   r.RouteType,
		Description: r.Description,
		ExtraInfo:   extra,
		KongID:      r.KongID,
		ServiceID:   r.ServiceID,
		Service:     r.Service.Name,
	}
}

// RegisterService creates or updates a service.
func (h *RoutesHandler) RegisterService(c *gin.Context) {
	var body routes.ServiceInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		pwerrors.Abort(c, pwerrors.WrongParameters("invalid json", map[string]any{"error": "invalid_json"}))
		return
	}
	service, errRegister := h.registry.RegisterService(c.Request.Context(), body)
	if errRegister != nil {
		pwerrors.Abort(c, errRegister)
		return
	}
	c.JSON(http.StatusOK, newServiceView(service))
}

// RegisterRoute creates or updates a route.
func (h *RoutesHandler) RegisterRoute(c *gin.Context) {
	var body routes.RouteInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		pwerrors.Abort(c, pwerrors.WrongParameters("invalid json", map[string]any{"error": "invalid_json"}))
		return
	}
	route, errRegister := h.registry.RegisterRoute(c.Request.Context(), body)
	if errRegister != nil {
		pwerrors.Abort(c, errRegister)
		return
	}
	c.JSON(http.StatusOK, newRouteView(route))
}

// List returns registered routes filtered by name, route_type and service_id.
func (h *RoutesHandler) List(c *gin.Context) {
	filter := routes.ListFilter{
		Name:      c.Query("name"),
		RouteType: models.RouteType(strings.TrimSpace(c.Query("route_type"))),
	}
	if raw := strings.TrimSpace(c.Query("service_id")); raw != "" {
		id, errParse := strconv.ParseUint(raw, 10, 64)
		if errParse != nil {
			pwerrors.Abort(c, pwerrors.WrongParameters("invalid service_id", map[string]any{"service_id": raw}))
			return
		}
		filter.ServiceID = id
	}
	list, errList := h.registry.List(c.Request.Context(), filter)
	if errList != nil {
		pwerrors.Abort(c, errList)
		return
	}
	out := make([]routeView, 0, len(list))
	for _, r := range list {
		out = append(out, newRouteView(r))
	}
	c.JSON(http.StatusOK, out)
}

// Delete removes a route and its policies.
func (h *RoutesHandler) Delete(c *gin.Context) {
	raw := strings.TrimSpace(c.Param("id"))
	id, errParse := strconv.ParseUint(raw, 10, 64)
	if errParse != nil || id == 0 {
		pwerrors.Abort(c, pwerrors.WrongParameters("invalid id", map[string]any{"id": raw}))
		return
	}
	if errDelete := h.registry.DeleteRoute(c.Request.Context(), id); errDelete != nil {
		pwerrors.Abort(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
