package permission

import (
	"context"
	"fmt"
	"sort"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/metrics"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Resolver decides whether a user holds a role on a route.
type Resolver struct {
	db    *gorm.DB
	cache *cache.PermissionCache
}

// NewResolver constructs a Resolver. A nil cache resolves every call directly.
func NewResolver(conn *gorm.DB, permissionCache *cache.PermissionCache) *Resolver {
	return &Resolver{db: conn, cache: permissionCache}
}

// HasPermission reports whether user may exercise role on route. action is
// only consulted for can_run_actions. Capabilities nobody decided are denied.
func (r *Resolver) HasPermission(ctx context.Context, isAuthenticated bool, route models.Route, user models.User, role Role, action string) (bool, error) {
	allowed, errResolve := r.resolve(ctx, isAuthenticated, route, user, role, action)
	if errResolve != nil {
		return false, errResolve
	}
	if allowed {
		metrics.PermissionDecisions.WithLabelValues("allow").Inc()
	} else {
		metrics.PermissionDecisions.WithLabelValues("deny").Inc()
	}
	return allowed, nil
}

func (r *Resolver) resolve(ctx context.Context, isAuthenticated bool, route models.Route, user models.User, role Role, action string) (bool, error) {
	switch {
	case role == RoleAllowAny:
		return true, nil
	case user.IsSuperuser:
		return true, nil
	case role == RoleIsAuthenticated:
		return isAuthenticated, nil
	case role == RoleIsStaff:
		return user.IsStaff, nil
	case !isAuthenticated, !role.Capability():
		return false, nil
	}

	compute := func(ctx context.Context) (bool, error) {
		d, errLayer := r.layer(ctx, route, user, role, action)
		if errLayer != nil {
			return false, errLayer
		}
		return d == Allow, nil
	}
	if r.cache == nil {
		return compute(ctx)
	}
	key := string(role)
	if role == RoleCanRunActions && action != "" {
		key += ":" + action
	}
	return r.cache.Resolve(ctx, route.URLPrefix, key, user.ID, compute)
}

// assignment is one policy assignment applicable to the user.
type assignment struct {
	direct   bool
	id       uint64
	priority int
	general  models.GeneralPolicy
	policy   models.PermissionPolicy
}

// assignments returns the policy assignments of user on route in resolution order.
func (r *Resolver) assignments(ctx context.Context, route models.Route, user models.User, action string) ([]assignment, error) {
	policies := r.db.WithContext(ctx).Model(&models.PermissionPolicy{}).Select("id").Where("route_id = ?", route.ID)

	var direct []models.PolicyUser
	errDirect := r.db.WithContext(ctx).
		Preload("Policy").
		Preload("Policy.ActionPermissions", "action = ?", action).
		Where("user_id = ? AND policy_id IN (?)", user.ID, policies).
		Find(&direct).Error
	if errDirect != nil {
		return nil, fmt.Errorf("permission: user assignments: %w", errDirect)
	}

	var groupIDs []uint64
	errGroups := r.db.WithContext(ctx).Table("user_groups").
		Where("user_id = ?", user.ID).
		Pluck("group_id", &groupIDs).Error
	if errGroups != nil {
		return nil, fmt.Errorf("permission: group memberships: %w", errGroups)
	}

	var viaGroups []models.PolicyGroup
	if len(groupIDs) > 0 {
		errGroup := r.db.WithContext(ctx).
			Preload("Policy").
			Preload("Policy.ActionPermissions", "action = ?", action).
			Where("group_id IN ? AND policy_id IN (?)", groupIDs, policies).
			Find(&viaGroups).Error
		if errGroup != nil {
			return nil, fmt.Errorf("permission: group assignments: %w", errGroup)
		}
	}

	out := make([]assignment, 0, len(direct)+len(viaGroups))
	for _, a := range direct {
		out = append(out, assignment{direct: true, id: a.ID, priority: a.Priority, general: a.GeneralPolicy, policy: a.Policy})
	}
	for _, a := range viaGroups {
		out = append(out, assignment{id: a.ID, priority: a.Priority, general: a.GeneralPolicy, policy: a.Policy})
	}
	sortAssignments(out)
	return out, nil
}

// sortAssignments orders by priority; ties put direct assignments first, then lower ids.
func sortAssignments(list []assignment) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		if a.direct != b.direct {
			return a.direct
		}
		return a.id < b.id
	})
}

func (r *Resolver) layer(ctx context.Context, route models.Route, user models.User, role Role, action string) (Decision, error) {
	list, errList := r.assignments(ctx, route, user, action)
	if errList != nil {
		return NoChange, errList
	}
	for _, a := range list {
		if d := a.decide(role, action); d != NoChange {
			log.WithFields(log.Fields{
				"user_id":  user.ID,
				"route":    route.Name,
				"role":     role,
				"policy":   a.policy.ID,
				"decision": d.String(),
			}).Debug("permission resolved by policy")
			return d, nil
		}
	}
	return Deny, nil
}

// decide evaluates a single assignment for role.
func (a assignment) decide(role Role, action string) Decision {
	switch a.general {
	case models.GeneralPolicyWrite:
		return Allow
	case models.GeneralPolicyRead:
		if role.read() {
			return Allow
		}
		return NoChange
	}

	value := role.policyValue(a.policy)
	if role == RoleCanRunActions && value == models.PolicyCustom {
		for _, override := range a.policy.ActionPermissions {
			if override.Action == action {
				return decisionOf(override.Permission)
			}
		}
		return NoChange
	}
	return decisionOf(value)
}
