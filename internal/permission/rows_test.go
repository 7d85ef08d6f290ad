package permission

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/testutil"
)

type taggedRow struct {
	ID              uint64 `gorm:"primaryKey"`
	RowPermissionID *uint64
}

func TestVisibleTagsIsUnionOfGrants(t *testing.T) {
	conn := testutil.OpenDB(t)
	alice := testutil.CreateUser(t, conn, "alice", "P@ss1")
	root := testutil.CreateUser(t, conn, "root", "pw", func(u *models.User) { u.IsSuperuser = true })
	group := testutil.CreateGroup(t, conn, "analysts", alice)

	tags := []models.RowPermission{{Name: "finance"}, {Name: "ops"}, {Name: "hr"}}
	if err := conn.Create(&tags).Error; err != nil {
		t.Fatalf("create tags: %v", err)
	}
	_ = conn.Create(&models.RowPermissionUser{RowPermissionID: tags[0].ID, UserID: alice.ID}).Error
	_ = conn.Create(&models.RowPermissionGroup{RowPermissionID: tags[0].ID, GroupID: group.ID}).Error
	_ = conn.Create(&models.RowPermissionGroup{RowPermissionID: tags[1].ID, GroupID: group.ID}).Error

	store := cache.NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	r := NewRowResolver(conn, cache.NewRowCache(store, time.Minute))
	ctx := context.Background()

	got, err := r.VisibleTags(ctx, alice)
	if err != nil {
		t.Fatalf("visible tags: %v", err)
	}
	if want := []uint64{tags[0].ID, tags[1].ID}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	all, err := r.VisibleTags(ctx, root)
	if err != nil {
		t.Fatalf("superuser tags: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected superuser to see all 3 tags, got %v", all)
	}
}

func TestVisibleRowsScope(t *testing.T) {
	conn := testutil.OpenDB(t)
	if err := conn.AutoMigrate(&taggedRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	one, two := uint64(1), uint64(2)
	rows := []taggedRow{{ID: 1}, {ID: 2, RowPermissionID: &one}, {ID: 3, RowPermissionID: &two}}
	if err := conn.Create(&rows).Error; err != nil {
		t.Fatalf("create rows: %v", err)
	}

	var visible []taggedRow
	if err := conn.Scopes(VisibleRowsScope("row_permission_id", []uint64{1})).Order("id").Find(&visible).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(visible) != 2 || visible[0].ID != 1 || visible[1].ID != 2 {
		t.Fatalf("expected untagged and tag 1 rows, got %+v", visible)
	}

	visible = nil
	if err := conn.Scopes(VisibleRowsScope("row_permission_id", nil)).Find(&visible).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != 1 {
		t.Fatalf("expected only untagged row, got %+v", visible)
	}
}
