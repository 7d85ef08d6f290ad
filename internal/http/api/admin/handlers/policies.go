package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/policies"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/gin-gonic/gin"
)

// PoliciesHandler manages policies, assignments, groups and row grants.
type PoliciesHandler struct {
	svc *policies.Service
}

// NewPoliciesHandler constructs a PoliciesHandler.
func NewPoliciesHandler(svc *policies.Service) *PoliciesHandler {
	return &PoliciesHandler{svc: svc}
}

// policyView is the wire form of a policy.
type policyView struct {
	ID                uint64                        `json:"pk"`
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

func newPolicyView(p models.PermissionPolicy) policyView {
	actions := make(map[string]models.PolicyValue, len(p.ActionPermissions))
	for _, a := range p.ActionPermissions {
		actions[a.Action] = a.Permission
	}
	return policyView{
		ID:                p.ID,
		Description:       p.Description,
		RouteID:           p.RouteID,
		CanList:           p.CanList,
		CanListWithoutPag: p.CanListWithoutPag,
		CanRetrieve:       p.CanRetrieve,
		CanRetrieveFile:   p.CanRetrieveFile,
		CanDelete:         p.CanDelete,
		CanDeleteMany:     p.CanDeleteMany,
		CanDeleteFile:     p.CanDeleteFile,
		CanSave:           p.CanSave,
		CanRunActions:     p.CanRunActions,
		Actions:           actions,
	}
}

// assignmentView is the wire form of a user or group assignment.
type assignmentView struct {
	ID            uint64               `json:"pk"`
	PolicyID      uint64               `json:"policy_id"`
	UserID        uint64               `json:"user_id,omitempty"`
	GroupID       uint64               `json:"group_id,omitempty"`
	GeneralPolicy models.GeneralPolicy `json:"general_policy"`
	Priority      int                  `json:"priority"`
}

// assignRequest defines the request body of an assignment.
type assignRequest struct {
	UserID        uint64               `json:"user_id"`
	GroupID       uint64               `json:"group_id"`
	GeneralPolicy models.GeneralPolicy `json:"general_policy"`
	Priority      int                  `json:"priority"`
}

// memberRequest defines the request body naming a user or a group.
type memberRequest struct {
	UserID  uint64 `json:"user_id"`
	GroupID uint64 `json:"group_id"`
}

func pathID(c *gin.Context, name string) (uint64, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, errParse := strconv.ParseUint(raw, 10, 64)
	if errParse != nil || id == 0 {
		pwerrors.Abort(c, pwerrors.WrongParameters("invalid "+name, map[string]any{name: raw}))
		return 0, false
	}
	return id, true
}

func bindBody(c *gin.Context, dst any) bool {
	if errBind := c.ShouldBindJSON(dst); errBind != nil {
		pwerrors.Abort(c, pwerrors.WrongParameters("invalid json", map[string]any{"error": "invalid_json"}))
		return false
	}
	return true
}

// CreatePolicy creates a policy.
func (h *PoliciesHandler) CreatePolicy(c *gin.Context) {
	var body policies.PolicyInput
	if !bindBody(c, &body) {
		return
	}
	policy, errCreate := h.svc.CreatePolicy(c.Request.Context(), body)
	if errCreate != nil {
		pwerrors.Abort(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, newPolicyView(policy))
}

// ListPolicies returns policies, optionally filtered by route_id.
func (h *PoliciesHandler) ListPolicies(c *gin.Context) {
	var routeID uint64
	if raw := strings.TrimSpace(c.Query("route_id")); raw != "" {
		id, errParse := strconv.ParseUint(raw, 10, 64)
		if errParse != nil {
			pwerrors.Abort(c, pwerrors.WrongParameters("invalid route_id", map[string]any{"route_id": raw}))
			return
		}
		routeID = id
	}
	list, errList := h.svc.ListPolicies(c.Request.Context(), routeID)
	if errList != nil {
		pwerrors.Abort(c, errList)
		return
	}
	out := make([]policyView, 0, len(list))
	for _, p := range list {
		out = append(out, newPolicyView(p))
	}
	c.JSON(http.StatusOK, out)
}

// GetPolicy returns one policy.
func (h *PoliciesHandler) GetPolicy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	policy, errGet := h.svc.GetPolicy(c.Request.Context(), id)
	if errGet != nil {
		pwerrors.Abort(c, errGet)
		return
	}
	c.JSON(http.StatusOK, newPolicyView(policy))
}

// UpdatePolicy replaces a policy.
func (h *PoliciesHandler) UpdatePolicy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body policies.PolicyInput
	if !bindBody(c, &body) {
		return
	}
	policy, errUpdate := h.svc.UpdatePolicy(c.Request.Context(), id, body)
	if errUpdate != nil {
		pwerrors.Abort(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, newPolicyView(policy))
}

// DeletePolicy removes a policy and its assignments.
func (h *PoliciesHandler) DeletePolicy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if errDelete := h.svc.DeletePolicy(c.Request.Context(), id); errDelete != nil {
		pwerrors.Abort(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Assign binds a policy to the user_id or the group_id of the body.
func (h *PoliciesHandler) Assign(c *gin.Context) {
	policyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body assignRequest
	if !bindBody(c, &body) {
		return
	}
	in := policies.AssignmentInput{GeneralPolicy: body.GeneralPolicy, Priority: body.Priority}
	ctx := c.Request.Context()
	switch {
	case body.UserID != 0 && body.GroupID == 0:
		row, errAssign := h.svc.AssignUser(ctx, policyID, body.UserID, in)
		if errAssign != nil {
			pwerrors.Abort(c, errAssign)
			return
		}
		c.JSON(http.StatusCreated, assignmentView{ID: row.ID, PolicyID: row.PolicyID, UserID: row.UserID, GeneralPolicy: row.GeneralPolicy, Priority: row.Priority})
	case body.GroupID != 0 && body.UserID == 0:
		row, errAssign := h.svc.AssignGroup(ctx, policyID, body.GroupID, in)
		if errAssign != nil {
			pwerrors.Abort(c, errAssign)
			return
		}
		c.JSON(http.StatusCreated, assignmentView{ID: row.ID, PolicyID: row.PolicyID, GroupID: row.GroupID, GeneralPolicy: row.GeneralPolicy, Priority: row.Priority})
	default:
		pwerrors.Abort(c, pwerrors.WrongParameters("exactly one of user_id and group_id is required", map[string]any{
			"user_id": body.UserID, "group_id": body.GroupID,
		}))
	}
}

// UnassignUser removes a user assignment.
func (h *PoliciesHandler) UnassignUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if errDelete := h.svc.UnassignUser(c.Request.Context(), id); errDelete != nil {
		pwerrors.Abort(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// UnassignGroup removes a group assignment.
func (h *PoliciesHandler) UnassignGroup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if errDelete := h.svc.UnassignGroup(c.Request.Context(), id); errDelete != nil {
		pwerrors.Abort(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CreateGroup creates a group.
func (h *PoliciesHandler) CreateGroup(c *gin.Context) {
	var body policies.GroupInput
	if !bindBody(c, &body) {
		return
	}
	group, errCreate := h.svc.CreateGroup(c.Request.Context(), body)
	if errCreate != nil {
		pwerrors.Abort(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"pk": group.ID, "name": group.Name, "description": group.Description})
}

// DeleteGroup removes a group.
func (h *PoliciesHandler) DeleteGroup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if errDelete := h.svc.DeleteGroup(c.Request.Context(), id); errDelete != nil {
		pwerrors.Abort(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AddMember adds the user_id of the body to a group.
func (h *PoliciesHandler) AddMember(c *gin.Context) {
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body memberRequest
	if !bindBody(c, &body) {
		return
	}
	if errAdd := h.svc.AddMember(c.Request.Context(), groupID, body.UserID); errAdd != nil {
		pwerrors.Abort(c, errAdd)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RemoveMember removes a user from a group.
func (h *PoliciesHandler) RemoveMember(c *gin.Context) {
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	if errRemove := h.svc.RemoveMember(c.Request.Context(), groupID, userID); errRemove != nil {
		pwerrors.Abort(c, errRemove)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CreateRowPermission creates a row permission tag.
func (h *PoliciesHandler) CreateRowPermission(c *gin.Context) {
	var body policies.RowPermissionInput
	if !bindBody(c, &body) {
		return
	}
	tag, errCreate := h.svc.CreateRowPermission(c.Request.Context(), body)
	if errCreate != nil {
		pwerrors.Abort(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"pk": tag.ID, "name": tag.Name, "description": tag.Description})
}

// DeleteRowPermission removes a row permission tag.
func (h *PoliciesHandler) DeleteRowPermission(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if errDelete := h.svc.DeleteRowPermission(c.Request.Context(), id); errDelete != nil {
		pwerrors.Abort(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GrantRow grants a tag to the user_id or the group_id of the body.
func (h *PoliciesHandler) GrantRow(c *gin.Context) {
	rowID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body memberRequest
	if !bindBody(c, &body) {
		return
	}
	var errGrant error
	switch {
	case body.UserID != 0 && body.GroupID == 0:
		errGrant = h.svc.GrantRowToUser(c.Request.Context(), rowID, body.UserID)
	case body.GroupID != 0 && body.UserID == 0:
		errGrant = h.svc.GrantRowToGroup(c.Request.Context(), rowID, body.GroupID)
	default:
		errGrant = pwerrors.WrongParameters("exactly one of user_id and group_id is required", map[string]any{
			"user_id": body.UserID, "group_id": body.GroupID,
		})
	}
	if errGrant != nil {
		pwerrors.Abort(c, errGrant)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RevokeRowUser removes a user grant of a tag.
func (h *PoliciesHandler) RevokeRowUser(c *gin.Context) {
	rowID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	if errRevoke := h.svc.RevokeRowFromUser(c.Request.Context(), rowID, userID); errRevoke != nil {
		pwerrors.Abort(c, errRevoke)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RevokeRowGroup removes a group grant of a tag.
func (h *PoliciesHandler) RevokeRowGroup(c *gin.Context) {
	rowID, ok := pathID(c, "id")
	if !ok {
		return
	}
	groupID, ok := pathID(c, "group_id")
	if !ok {
		return
	}
	if errRevoke := h.svc.RevokeRowFromGroup(c.Request.Context(), rowID, groupID); errRevoke != nil {
		pwerrors.Abort(c, errRevoke)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
