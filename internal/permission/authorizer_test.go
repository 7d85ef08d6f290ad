package permission

import (
	"context"
	"testing"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/routes"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/testutil"
)

func TestAuthorizerRequire(t *testing.T) {
	conn := testutil.OpenDB(t)
	alice := testutil.CreateUser(t, conn, "alice", "P@ss1")
	route := testutil.CreateRoute(t, conn, "DescriptionModel", "/rest/descriptionmodel/", models.RouteTypeEndpoint)
	policy := createPolicy(t, conn, route, func(p *models.PermissionPolicy) { p.CanList = models.PolicyAllow })
	assignUser(t, conn, alice, policy, models.GeneralPolicyCustom, 1)

	a := NewAuthorizer(routes.NewRegistry(conn, nil, nil), NewClassifier(testCatalog()), NewResolver(conn, nil))
	ctx := context.Background()

	result, err := a.Require(ctx, true, alice, "/rest/descriptionmodel/list/", "POST")
	if err != nil {
		t.Fatalf("expected list to be allowed, got %v", err)
	}
	if result.Role != RoleCanList || result.Endpoint != SegmentList {
		t.Fatalf("unexpected result %+v", result)
	}

	_, err = a.Require(ctx, true, alice, "/rest/descriptionmodel/save/", "POST")
	typed, ok := pwerrors.As(err)
	if !ok || typed.Kind != pwerrors.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if typed.Payload["role"] != RoleCanSave {
		t.Fatalf("expected payload to name can_save, got %v", typed.Payload)
	}

	if _, err := a.Require(ctx, false, models.User{}, "/rest/descriptionmodel/list/", "GET"); !pwerrors.Is(err, pwerrors.KindUnauthorized) {
		t.Fatalf("expected anonymous caller to be unauthorized, got %v", err)
	}
	if _, err := a.Require(ctx, true, alice, "/rest/missing/list/", "GET"); !pwerrors.Is(err, pwerrors.KindObjectDoesNotExist) {
		t.Fatalf("expected unknown route, got %v", err)
	}
}
