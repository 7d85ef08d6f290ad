package permission

import (
	"strings"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/routes"
)

// Endpoint segments served by endpoint routes.
const (
	SegmentList            = "list"
	SegmentListWithoutPag  = "list-without-pag"
	SegmentRetrieve        = "retrieve"
	SegmentRetrieveFile    = "retrieve-file"
	SegmentDelete          = "delete"
	SegmentDeleteFile      = "delete-file"
	SegmentRemoveFileField = "remove-file-field"
	SegmentSave            = "save"
	SegmentBulkSave        = "bulk-save"
	SegmentActions         = "actions"
	SegmentOptions         = "options"
	SegmentListOptions     = "list-options"
	SegmentRetrieveOptions = "retrieve-options"
	SegmentAggregate       = "aggregate"
	SegmentPivot           = "pivot"
)

// Segments lists every endpoint segment the classifier knows.
var Segments = []string{
	SegmentList, SegmentListWithoutPag, SegmentRetrieve, SegmentRetrieveFile,
	SegmentDelete, SegmentDeleteFile, SegmentRemoveFileField, SegmentSave,
	SegmentBulkSave, SegmentActions, SegmentOptions, SegmentListOptions,
	SegmentRetrieveOptions, SegmentAggregate, SegmentPivot,
}

// Methods accepted on endpoint routes.
const (
	MethodGet    = "get"
	MethodPost   = "post"
	MethodDelete = "delete"
)

// Classifier maps a request on a route to the role it requires.
type Classifier struct {
	catalog *routes.Catalog
}

// NewClassifier builds a Classifier resolving action roles through catalog.
func NewClassifier(catalog *routes.Catalog) *Classifier {
	return &Classifier{catalog: catalog}
}

// Classify returns the role required to call segment/action on route with method.
// Unclassifiable combinations return a NotImplemented error; unknown actions
// return ObjectDoesNotExist.
func (c *Classifier) Classify(route models.Route, method, segment, action string) (Role, error) {
	switch route.RouteType {
	case models.RouteTypeAux, models.RouteTypeGUI, models.RouteTypeDatavis:
		return RoleCanRetrieve, nil
	case models.RouteTypeMedia:
		return RoleCanRetrieveFile, nil
	case models.RouteTypeStatic:
		return RoleAllowAny, nil
	case models.RouteTypeAdmin:
		return RoleIsStaff, nil
	case models.RouteTypeEndpoint:
		return c.classifyEndpoint(route, strings.ToLower(strings.TrimSpace(method)), segment, action)
	}
	return "", notImplemented("route type is not classified", route, method, segment)
}

func (c *Classifier) classifyEndpoint(route models.Route, method, segment, action string) (Role, error) {
	if method != MethodGet && method != MethodPost && method != MethodDelete {
		return "", notImplemented("method is not classified", route, method, segment)
	}
	switch segment {
	case SegmentList, SegmentAggregate:
		return RoleCanList, nil
	case SegmentListWithoutPag, SegmentPivot:
		return RoleCanListWithoutPag, nil
	case SegmentRetrieve:
		return RoleCanRetrieve, nil
	case SegmentRetrieveFile:
		return RoleCanRetrieveFile, nil
	case SegmentDelete:
		switch method {
		case MethodDelete:
			return RoleCanDelete, nil
		case MethodPost:
			return RoleCanDeleteMany, nil
		}
		return "", notImplemented("get on delete is not implemented", route, method, segment)
	case SegmentDeleteFile, SegmentRemoveFileField:
		return RoleCanDeleteFile, nil
	case SegmentSave, SegmentBulkSave:
		return RoleCanSave, nil
	case SegmentActions:
		switch method {
		case MethodGet:
			return RoleIsAuthenticated, nil
		case MethodPost:
			return c.actionRole(route, action)
		}
		return "", notImplemented("method is not classified for actions", route, method, segment)
	case SegmentOptions, SegmentListOptions, SegmentRetrieveOptions:
		switch method {
		case MethodGet:
			if segment == SegmentRetrieveOptions {
				return RoleCanRetrieve, nil
			}
			return RoleCanList, nil
		case MethodPost:
			return RoleCanSave, nil
		}
		return "", notImplemented("method is not classified for options", route, method, segment)
	}
	return "", notImplemented("endpoint segment is not classified", route, method, segment)
}

func (c *Classifier) actionRole(route models.Route, action string) (Role, error) {
	meta, ok := c.catalog.Action(route.Name, action)
	if !ok {
		return "", pwerrors.DoesNotExist("action does not exist on model", map[string]any{
			"model_class": route.Name, "action": action,
		})
	}
	// Roles are checked when the config loads; anything else falls back to the
	// default action role, which still requires a policy grant.
	role := Role(meta.PermissionRole)
	if !role.Valid() {
		return RoleCanRunActions, nil
	}
	return role, nil
}

func notImplemented(message string, route models.Route, method, segment string) error {
	return pwerrors.NotImplemented(message, map[string]any{
		"route_type": route.RouteType, "method": method, "endpoint": segment,
	})
}

// ParsePath splits the part of path after route's prefix into the endpoint
// segment and, for actions, the action name.
func ParsePath(route models.Route, path string) (segment, action string) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = "/" + strings.TrimLeft(path, "/")
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	rest := strings.TrimPrefix(path, route.URLPrefix)
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "", ""
	}
	segment = parts[0]
	if segment == SegmentActions && len(parts) > 1 {
		action = parts[1]
	}
	return segment, action
}
