package permission

import (
	"context"
	"fmt"
	"sort"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"gorm.io/gorm"
)

// RowResolver computes the row permission tags visible to a user.
type RowResolver struct {
	db    *gorm.DB
	cache *cache.RowCache
}

// NewRowResolver constructs a RowResolver. A nil cache resolves every call directly.
func NewRowResolver(conn *gorm.DB, rowCache *cache.RowCache) *RowResolver {
	return &RowResolver{db: conn, cache: rowCache}
}

// VisibleTags returns the sorted ids of the tags user may see. Superusers see
// every tag; other users see the union of direct and group grants.
func (r *RowResolver) VisibleTags(ctx context.Context, user models.User) ([]uint64, error) {
	if r.cache == nil {
		return r.visibleTags(ctx, user)
	}
	return r.cache.Resolve(ctx, user.ID, func(ctx context.Context) ([]uint64, error) {
		return r.visibleTags(ctx, user)
	})
}

func (r *RowResolver) visibleTags(ctx context.Context, user models.User) ([]uint64, error) {
	conn := r.db.WithContext(ctx)
	if user.IsSuperuser {
		var all []uint64
		if errAll := conn.Model(&models.RowPermission{}).Order("id").Pluck("id", &all).Error; errAll != nil {
			return nil, fmt.Errorf("permission: list row tags: %w", errAll)
		}
		return all, nil
	}

	var direct []uint64
	if errDirect := conn.Model(&models.RowPermissionUser{}).
		Where("user_id = ?", user.ID).
		Pluck("row_permission_id", &direct).Error; errDirect != nil {
		return nil, fmt.Errorf("permission: user row tags: %w", errDirect)
	}
	groups := conn.Table("user_groups").Select("group_id").Where("user_id = ?", user.ID)
	var viaGroups []uint64
	if errGroups := conn.Model(&models.RowPermissionGroup{}).
		Where("group_id IN (?)", groups).
		Pluck("row_permission_id", &viaGroups).Error; errGroups != nil {
		return nil, fmt.Errorf("permission: group row tags: %w", errGroups)
	}

	seen := make(map[uint64]struct{}, len(direct)+len(viaGroups))
	out := make([]uint64, 0, len(direct)+len(viaGroups))
	for _, id := range append(direct, viaGroups...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// VisibleRowsScope restricts a query to rows whose tag column is null or in tags.
func VisibleRowsScope(column string, tags []uint64) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if len(tags) == 0 {
			return tx.Where(column + " IS NULL")
		}
		return tx.Where(column+" IS NULL OR "+column+" IN ?", tags)
	}
}
