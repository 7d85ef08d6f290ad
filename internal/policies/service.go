// Package policies holds the administrative writes behind permission
// resolution: policies and their assignments, group membership and row
// permission grants. Every write drops the cache namespaces it can affect
// before returning.
package policies

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service writes policies, assignments, groups and row grants.
type Service struct {
	db    *gorm.DB
	store cache.Store
}

// NewService constructs a Service. A nil store skips invalidation.
func NewService(conn *gorm.DB, store cache.Store) *Service {
	return &Service{db: conn, store: store}
}

// PolicyInput describes a policy. Empty capability values mean no_change.
type PolicyInput struct {
	Description       string                        `json:"description"`
	RouteID           uint64                        `json:"route_id"`
	CanList           models.PolicyValue            `json:"can_list"`
	CanListWithoutPag models.PolicyValue            `json:"can_list_without_pag"`
	CanRetrieve       models.PolicyValue            `json:"can_retrieve"`
	CanRetrieveFile   models.PolicyValue            `json:"can_retrieve_file"`
	CanDelete         models.PolicyValue            `json:"can_delete"`
	CanDeleteMany     models.PolicyValue            `json:"can_delete_many"`
	CanDeleteFile     models.PolicyValue            `json:"can_delete_file"`
	CanSave           models.PolicyValue            `json:"can_save"`
	CanRunActions     models.PolicyValue            `json:"can_run_actions"`
	Actions           map[string]models.PolicyValue `json:"action_permissions"`
}

func orNoChange(v models.PolicyValue) models.PolicyValue {
	if strings.TrimSpace(string(v)) == "" {
		return models.PolicyNoChange
	}
	return models.PolicyValue(strings.ToLower(strings.TrimSpace(string(v))))
}

// build validates in and returns the policy columns and action overrides.
func (in PolicyInput) build() (models.PermissionPolicy, []models.PolicyAction, error) {
	policy := models.PermissionPolicy{
		Description:       strings.TrimSpace(in.Description),
		RouteID:           in.RouteID,
		CanList:           orNoChange(in.CanList),
		CanListWithoutPag: orNoChange(in.CanListWithoutPag),
		CanRetrieve:       orNoChange(in.CanRetrieve),
		CanRetrieveFile:   orNoChange(in.CanRetrieveFile),
		CanDelete:         orNoChange(in.CanDelete),
		CanDeleteMany:     orNoChange(in.CanDeleteMany),
		CanDeleteFile:     orNoChange(in.CanDeleteFile),
		CanSave:           orNoChange(in.CanSave),
		CanRunActions:     orNoChange(in.CanRunActions),
	}
	if policy.Description == "" || policy.RouteID == 0 {
		return models.PermissionPolicy{}, nil, pwerrors.WrongParameters("description and route_id are required", map[string]any{
			"description": policy.Description != "", "route_id": policy.RouteID,
		})
	}
	simple := map[string]models.PolicyValue{
		"can_list":             policy.CanList,
		"can_list_without_pag": policy.CanListWithoutPag,
		"can_retrieve":         policy.CanRetrieve,
		"can_retrieve_file":    policy.CanRetrieveFile,
		"can_delete":           policy.CanDelete,
		"can_delete_many":      policy.CanDeleteMany,
		"can_delete_file":      policy.CanDeleteFile,
		"can_save":             policy.CanSave,
	}
	for field, value := range simple {
		if value != models.PolicyAllow && value != models.PolicyDeny && value != models.PolicyNoChange {
			return models.PermissionPolicy{}, nil, pwerrors.WrongParameters("invalid policy value", map[string]any{field: value})
		}
	}
	switch policy.CanRunActions {
	case models.PolicyAllow, models.PolicyDeny, models.PolicyNoChange, models.PolicyCustom:
	default:
		return models.PermissionPolicy{}, nil, pwerrors.WrongParameters("invalid policy value", map[string]any{"can_run_actions": policy.CanRunActions})
	}
	if len(in.Actions) > 0 && policy.CanRunActions != models.PolicyCustom {
		return models.PermissionPolicy{}, nil, pwerrors.WrongParameters("action_permissions require can_run_actions=custom", map[string]any{
			"can_run_actions": policy.CanRunActions,
		})
	}

	actions := make([]models.PolicyAction, 0, len(in.Actions))
	for name, value := range in.Actions {
		name = strings.TrimSpace(name)
		value = orNoChange(value)
		if name == "" || (value != models.PolicyAllow && value != models.PolicyDeny) {
			return models.PermissionPolicy{}, nil, pwerrors.WrongParameters("action permissions must be allow or deny", map[string]any{
				"action": name, "permission": value,
			})
		}
		actions = append(actions, models.PolicyAction{Action: name, Permission: value})
	}
	return policy, actions, nil
}

// CreatePolicy inserts a policy with its action overrides.
func (s *Service) CreatePolicy(ctx context.Context, in PolicyInput) (models.PermissionPolicy, error) {
	policy, actions, errBuild := in.build()
	if errBuild != nil {
		return models.PermissionPolicy{}, errBuild
	}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errRoute := requireRow(tx, &models.Route{}, policy.RouteID, "route not found"); errRoute != nil {
			return errRoute
		}
		if errCreate := tx.Omit(clause.Associations).Create(&policy).Error; errCreate != nil {
			return fmt.Errorf("policies: create policy: %w", errCreate)
		}
		return s.replaceActions(tx, &policy, actions)
	})
	if errTx != nil {
		return models.PermissionPolicy{}, errTx
	}
	s.invalidate(ctx, cache.TagPermission)
	return policy, nil
}

// UpdatePolicy replaces every column and action override of a policy.
func (s *Service) UpdatePolicy(ctx context.Context, id uint64, in PolicyInput) (models.PermissionPolicy, error) {
	next, actions, errBuild := in.build()
	if errBuild != nil {
		return models.PermissionPolicy{}, errBuild
	}
	var policy models.PermissionPolicy
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.First(&policy, id).Error; errFind != nil {
			return notFound(errFind, "policy not found", id)
		}
		if errRoute := requireRow(tx, &models.Route{}, next.RouteID, "route not found"); errRoute != nil {
			return errRoute
		}
		next.ID = policy.ID
		next.CreatedAt = policy.CreatedAt
		if errSave := tx.Omit(clause.Associations).Save(&next).Error; errSave != nil {
			return fmt.Errorf("policies: save policy: %w", errSave)
		}
		policy = next
		return s.replaceActions(tx, &policy, actions)
	})
	if errTx != nil {
		return models.PermissionPolicy{}, errTx
	}
	s.invalidate(ctx, cache.TagPermission)
	return policy, nil
}

func (s *Service) replaceActions(tx *gorm.DB, policy *models.PermissionPolicy, actions []models.PolicyAction) error {
	if errDelete := tx.Where("policy_id = ?", policy.ID).Delete(&models.PolicyAction{}).Error; errDelete != nil {
		return fmt.Errorf("policies: delete actions: %w", errDelete)
	}
	for i := range actions {
		actions[i].PolicyID = policy.ID
	}
	if len(actions) > 0 {
		if errCreate := tx.Create(&actions).Error; errCreate != nil {
			return fmt.Errorf("policies: create actions: %w", errCreate)
		}
	}
	policy.ActionPermissions = actions
	return nil
}

// GetPolicy returns a policy with its action overrides.
func (s *Service) GetPolicy(ctx context.Context, id uint64) (models.PermissionPolicy, error) {
	var policy models.PermissionPolicy
	if errFind := s.db.WithContext(ctx).Preload("ActionPermissions").First(&policy, id).Error; errFind != nil {
		return models.PermissionPolicy{}, notFound(errFind, "policy not found", id)
	}
	return policy, nil
}

// ListPolicies returns the policies of routeID, or every policy when zero.
func (s *Service) ListPolicies(ctx context.Context, routeID uint64) ([]models.PermissionPolicy, error) {
	q := s.db.WithContext(ctx).Preload("ActionPermissions")
	if routeID != 0 {
		q = q.Where("route_id = ?", routeID)
	}
	var out []models.PermissionPolicy
	if errFind := q.Order("id ASC").Find(&out).Error; errFind != nil {
		return nil, fmt.Errorf("policies: list: %w", errFind)
	}
	return out, nil
}

// DeletePolicy removes a policy, its overrides and its assignments.
func (s *Service) DeletePolicy(ctx context.Context, id uint64) error {
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := requireRow(tx, &models.PermissionPolicy{}, id, "policy not found"); errFind != nil {
			return errFind
		}
		for _, model := range []any{&models.PolicyAction{}, &models.PolicyUser{}, &models.PolicyGroup{}} {
			if errDelete := tx.Where("policy_id = ?", id).Delete(model).Error; errDelete != nil {
				return fmt.Errorf("policies: delete dependents: %w", errDelete)
			}
		}
		if errDelete := tx.Delete(&models.PermissionPolicy{}, id).Error; errDelete != nil {
			return fmt.Errorf("policies: delete policy: %w", errDelete)
		}
		return nil
	})
	if errTx != nil {
		return errTx
	}
	s.invalidate(ctx, cache.TagPermission)
	return nil
}

// AssignmentInput binds a policy to a user or a group.
type AssignmentInput struct {
	GeneralPolicy models.GeneralPolicy `json:"general_policy"`
	Priority      int                  `json:"priority"`
}

func (in AssignmentInput) general() (models.GeneralPolicy, error) {
	g := models.GeneralPolicy(strings.ToLower(strings.TrimSpace(string(in.GeneralPolicy))))
	if g == "" {
		g = models.GeneralPolicyCustom
	}
	if !g.Valid() {
		return "", pwerrors.WrongParameters("general_policy must be read, write or custom", map[string]any{"general_policy": in.GeneralPolicy})
	}
	return g, nil
}

// AssignUser assigns policyID to userID.
func (s *Service) AssignUser(ctx context.Context, policyID, userID uint64, in AssignmentInput) (models.PolicyUser, error) {
	general, errGeneral := in.general()
	if errGeneral != nil {
		return models.PolicyUser{}, errGeneral
	}
	row := models.PolicyUser{UserID: userID, PolicyID: policyID, GeneralPolicy: general, Priority: in.Priority}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errPolicy := requireRow(tx, &models.PermissionPolicy{}, policyID, "policy not found"); errPolicy != nil {
			return errPolicy
		}
		if errUser := requireRow(tx, &models.User{}, userID, "user not found"); errUser != nil {
			return errUser
		}
		if errCreate := tx.Omit(clause.Associations).Create(&row).Error; errCreate != nil {
			return fmt.Errorf("policies: assign user: %w", errCreate)
		}
		return nil
	})
	if errTx != nil {
		return models.PolicyUser{}, errTx
	}
	s.invalidate(ctx, cache.TagPermission)
	return row, nil
}

// AssignGroup assigns policyID to groupID.
func (s *Service) AssignGroup(ctx context.Context, policyID, groupID uint64, in AssignmentInput) (models.PolicyGroup, error) {
	general, errGeneral := in.general()
	if errGeneral != nil {
		return models.PolicyGroup{}, errGeneral
	}
	row := models.PolicyGroup{GroupID: groupID, PolicyID: policyID, GeneralPolicy: general, Priority: in.Priority}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errPolicy := requireRow(tx, &models.PermissionPolicy{}, policyID, "policy not found"); errPolicy != nil {
			return errPolicy
		}
		if errGroup := requireRow(tx, &models.Group{}, groupID, "group not found"); errGroup != nil {
			return errGroup
		}
		if errCreate := tx.Omit(clause.Associations).Create(&row).Error; errCreate != nil {
			return fmt.Errorf("policies: assign group: %w", errCreate)
		}
		return nil
	})
	if errTx != nil {
		return models.PolicyGroup{}, errTx
	}
	s.invalidate(ctx, cache.TagPermission)
	return row, nil
}

// UnassignUser removes a user assignment by id.
func (s *Service) UnassignUser(ctx context.Context, id uint64) error {
	return s.deleteByID(ctx, &models.PolicyUser{}, id, "policy assignment not found", cache.TagPermission)
}

// UnassignGroup removes a group assignment by id.
func (s *Service) UnassignGroup(ctx context.Context, id uint64) error {
	return s.deleteByID(ctx, &models.PolicyGroup{}, id, "policy assignment not found", cache.TagPermission)
}

// GroupInput describes a group.
type GroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateGroup inserts a group.
func (s *Service) CreateGroup(ctx context.Context, in GroupInput) (models.Group, error) {
	group := models.Group{Name: strings.TrimSpace(in.Name), Description: strings.TrimSpace(in.Description)}
	if group.Name == "" {
		return models.Group{}, pwerrors.WrongParameters("group name is required", map[string]any{"name": "missing"})
	}
	var taken int64
	if errCount := s.db.WithContext(ctx).Model(&models.Group{}).Where("name = ?", group.Name).Count(&taken).Error; errCount != nil {
		return models.Group{}, fmt.Errorf("policies: check group name: %w", errCount)
	}
	if taken > 0 {
		return models.Group{}, pwerrors.WrongParameters("group name already exists", map[string]any{"name": group.Name})
	}
	if errCreate := s.db.WithContext(ctx).Omit(clause.Associations).Create(&group).Error; errCreate != nil {
		return models.Group{}, fmt.Errorf("policies: create group: %w", errCreate)
	}
	return group, nil
}

// DeleteGroup removes a group with its memberships, assignments and grants.
func (s *Service) DeleteGroup(ctx context.Context, id uint64) error {
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := requireRow(tx, &models.Group{}, id, "group not found"); errFind != nil {
			return errFind
		}
		if errMembers := tx.Exec("DELETE FROM user_groups WHERE group_id = ?", id).Error; errMembers != nil {
			return fmt.Errorf("policies: delete memberships: %w", errMembers)
		}
		for _, model := range []any{&models.PolicyGroup{}, &models.RowPermissionGroup{}} {
			if errDelete := tx.Where("group_id = ?", id).Delete(model).Error; errDelete != nil {
				return fmt.Errorf("policies: delete group dependents: %w", errDelete)
			}
		}
		if errDelete := tx.Delete(&models.Group{}, id).Error; errDelete != nil {
			return fmt.Errorf("policies: delete group: %w", errDelete)
		}
		return nil
	})
	if errTx != nil {
		return errTx
	}
	s.invalidate(ctx, cache.AllTags...)
	return nil
}

// AddMember adds userID to groupID. Adding an existing member is a no-op.
func (s *Service) AddMember(ctx context.Context, groupID, userID uint64) error {
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errGroup := requireRow(tx, &models.Group{}, groupID, "group not found"); errGroup != nil {
			return errGroup
		}
		if errUser := requireRow(tx, &models.User{}, userID, "user not found"); errUser != nil {
			return errUser
		}
		errCreate := tx.Exec("INSERT INTO user_groups (user_id, group_id) VALUES (?, ?) ON CONFLICT DO NOTHING", userID, groupID).Error
		if errCreate != nil {
			return fmt.Errorf("policies: add member: %w", errCreate)
		}
		return nil
	})
	if errTx != nil {
		return errTx
	}
	// Cached identities carry group ids.
	s.invalidate(ctx, cache.AllTags...)
	return nil
}

// RemoveMember removes userID from groupID.
func (s *Service) RemoveMember(ctx context.Context, groupID, userID uint64) error {
	res := s.db.WithContext(ctx).Exec("DELETE FROM user_groups WHERE group_id = ? AND user_id = ?", groupID, userID)
	if res.Error != nil {
		return fmt.Errorf("policies: remove member: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return pwerrors.DoesNotExist("membership not found", map[string]any{"group_id": groupID, "user_id": userID})
	}
	s.invalidate(ctx, cache.AllTags...)
	return nil
}

// RowPermissionInput describes a row permission tag.
type RowPermissionInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateRowPermission inserts a row permission tag.
func (s *Service) CreateRowPermission(ctx context.Context, in RowPermissionInput) (models.RowPermission, error) {
	tag := models.RowPermission{Name: strings.TrimSpace(in.Name), Description: strings.TrimSpace(in.Description)}
	if tag.Name == "" {
		return models.RowPermission{}, pwerrors.WrongParameters("row permission name is required", map[string]any{"name": "missing"})
	}
	var taken int64
	if errCount := s.db.WithContext(ctx).Model(&models.RowPermission{}).Where("name = ?", tag.Name).Count(&taken).Error; errCount != nil {
		return models.RowPermission{}, fmt.Errorf("policies: check row permission name: %w", errCount)
	}
	if taken > 0 {
		return models.RowPermission{}, pwerrors.WrongParameters("row permission name already exists", map[string]any{"name": tag.Name})
	}
	if errCreate := s.db.WithContext(ctx).Create(&tag).Error; errCreate != nil {
		return models.RowPermission{}, fmt.Errorf("policies: create row permission: %w", errCreate)
	}
	return tag, nil
}

// DeleteRowPermission removes a tag and every grant of it.
func (s *Service) DeleteRowPermission(ctx context.Context, id uint64) error {
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := requireRow(tx, &models.RowPermission{}, id, "row permission not found"); errFind != nil {
			return errFind
		}
		for _, model := range []any{&models.RowPermissionUser{}, &models.RowPermissionGroup{}} {
			if errDelete := tx.Where("row_permission_id = ?", id).Delete(model).Error; errDelete != nil {
				return fmt.Errorf("policies: delete row grants: %w", errDelete)
			}
		}
		if errDelete := tx.Delete(&models.RowPermission{}, id).Error; errDelete != nil {
			return fmt.Errorf("policies: delete row permission: %w", errDelete)
		}
		return nil
	})
	if errTx != nil {
		return errTx
	}
	s.invalidate(ctx, cache.TagRowPermission)
	return nil
}

// GrantRowToUser grants tag rowID to userID. Repeated grants are no-ops.
func (s *Service) GrantRowToUser(ctx context.Context, rowID, userID uint64) error {
	return s.grantRow(ctx, rowID, &models.User{}, userID, "user not found", &models.RowPermissionUser{RowPermissionID: rowID, UserID: userID})
}

// GrantRowToGroup grants tag rowID to groupID. Repeated grants are no-ops.
func (s *Service) GrantRowToGroup(ctx context.Context, rowID, groupID uint64) error {
	return s.grantRow(ctx, rowID, &models.Group{}, groupID, "group not found", &models.RowPermissionGroup{RowPermissionID: rowID, GroupID: groupID})
}

func (s *Service) grantRow(ctx context.Context, rowID uint64, grantee any, granteeID uint64, missing string, grant any) error {
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errRow := requireRow(tx, &models.RowPermission{}, rowID, "row permission not found"); errRow != nil {
			return errRow
		}
		if errGrantee := requireRow(tx, grantee, granteeID, missing); errGrantee != nil {
			return errGrantee
		}
		if errCreate := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(grant).Error; errCreate != nil {
			return fmt.Errorf("policies: grant row permission: %w", errCreate)
		}
		return nil
	})
	if errTx != nil {
		return errTx
	}
	s.invalidate(ctx, cache.TagRowPermission)
	return nil
}

// RevokeRowFromUser removes a user grant of tag rowID.
func (s *Service) RevokeRowFromUser(ctx context.Context, rowID, userID uint64) error {
	return s.revokeRow(ctx, &models.RowPermissionUser{}, "row_permission_id = ? AND user_id = ?", rowID, userID)
}

// RevokeRowFromGroup removes a group grant of tag rowID.
func (s *Service) RevokeRowFromGroup(ctx context.Context, rowID, groupID uint64) error {
	return s.revokeRow(ctx, &models.RowPermissionGroup{}, "row_permission_id = ? AND group_id = ?", rowID, groupID)
}

func (s *Service) revokeRow(ctx context.Context, model any, cond string, rowID, granteeID uint64) error {
	res := s.db.WithContext(ctx).Where(cond, rowID, granteeID).Delete(model)
	if res.Error != nil {
		return fmt.Errorf("policies: revoke row permission: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return pwerrors.DoesNotExist("row permission grant not found", map[string]any{"row_permission_id": rowID, "grantee_id": granteeID})
	}
	s.invalidate(ctx, cache.TagRowPermission)
	return nil
}

func (s *Service) deleteByID(ctx context.Context, model any, id uint64, missing string, tags ...string) error {
	res := s.db.WithContext(ctx).Delete(model, id)
	if res.Error != nil {
		return fmt.Errorf("policies: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return pwerrors.DoesNotExist(missing, map[string]any{"id": id})
	}
	s.invalidate(ctx, tags...)
	return nil
}

func requireRow(tx *gorm.DB, model any, id uint64, missing string) error {
	var n int64
	if errCount := tx.Model(model).Where("id = ?", id).Count(&n).Error; errCount != nil {
		return fmt.Errorf("policies: find: %w", errCount)
	}
	if n == 0 {
		return pwerrors.DoesNotExist(missing, map[string]any{"id": id})
	}
	return nil
}

func notFound(errFind error, message string, id uint64) error {
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return pwerrors.DoesNotExist(message, map[string]any{"id": id})
	}
	return fmt.Errorf("policies: find: %w", errFind)
}

func (s *Service) invalidate(ctx context.Context, tags ...string) {
	if s.store == nil || len(tags) == 0 {
		return
	}
	if errInvalidate := s.store.InvalidateAll(ctx, tags...); errInvalidate != nil {
		log.WithError(errInvalidate).WithField("tags", tags).Error("cache invalidation after policy write failed")
	}
}
