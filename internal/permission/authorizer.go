package permission

import (
	"context"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/routes"
)

// Result describes a resolved permission check.
type Result struct {
	Route    models.Route `json:"-"`
	Endpoint string       `json:"endpoint"`
	Action   string       `json:"action,omitempty"`
	Role     Role         `json:"role"`
	Allowed  bool         `json:"allowed"`
}

// Authorizer runs the full check for an inbound path: route lookup,
// classification and resolution.
type Authorizer struct {
	registry   *routes.Registry
	classifier *Classifier
	resolver   *Resolver
}

// NewAuthorizer wires the check pipeline.
func NewAuthorizer(registry *routes.Registry, classifier *Classifier, resolver *Resolver) *Authorizer {
	return &Authorizer{registry: registry, classifier: classifier, resolver: resolver}
}

// Check resolves whether user may call method on path.
func (a *Authorizer) Check(ctx context.Context, isAuthenticated bool, user models.User, path, method string) (Result, error) {
	route, errLookup := a.registry.Lookup(ctx, path)
	if errLookup != nil {
		return Result{}, errLookup
	}
	segment, action := ParsePath(route, path)
	role, errClassify := a.classifier.Classify(route, method, segment, action)
	if errClassify != nil {
		return Result{}, errClassify
	}
	allowed, errResolve := a.resolver.HasPermission(ctx, isAuthenticated, route, user, role, action)
	if errResolve != nil {
		return Result{}, errResolve
	}
	return Result{Route: route, Endpoint: segment, Action: action, Role: role, Allowed: allowed}, nil
}

// Require is Check returning a Forbidden error naming the missing role when denied.
func (a *Authorizer) Require(ctx context.Context, isAuthenticated bool, user models.User, path, method string) (Result, error) {
	result, errCheck := a.Check(ctx, isAuthenticated, user, path, method)
	if errCheck != nil {
		return result, errCheck
	}
	if !result.Allowed {
		if !isAuthenticated {
			return result, pwerrors.Unauthorized("not_authenticated", "authentication credentials were not provided")
		}
		return result, pwerrors.Forbidden("permission denied", map[string]any{
			"role": result.Role, "route": result.Route.Name,
		})
	}
	return result, nil
}
