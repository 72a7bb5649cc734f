package roster

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"machine-service-backend/internal/model"
)

func newTestRoster(t *testing.T) *Roster {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.Operator{}))
	return New(db)
}

func TestRosterAddListDelete(t *testing.T) {
	ctx := context.Background()
	r := newTestRoster(t)

	op, err := r.Add(ctx, " Suraj ", "5397")
	require.NoError(t, err)
	assert.Equal(t, "Suraj", op.Name)

	_, err = r.Add(ctx, "Ashoka", "2258")
	require.NoError(t, err)

	_, err = r.Add(ctx, "Someone Else", "5397")
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = r.Add(ctx, "", "1")
	assert.ErrorIs(t, err, ErrInvalid)

	ops, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "Ashoka", ops[0].Name)
	assert.Equal(t, "Suraj", ops[1].Name)

	got, err := r.Get(ctx, "2258")
	require.NoError(t, err)
	assert.Equal(t, "Ashoka", got.Name)

	require.NoError(t, r.Delete(ctx, "2258"))
	assert.ErrorIs(t, r.Delete(ctx, "2258"), ErrNotFound)

	_, err = r.Get(ctx, "2258")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRosterSeedOnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	r := newTestRoster(t)

	defaults := []model.Operator{{Name: "Ashoka", EPF: "2258"}, {Name: "Jude", EPF: "938"}}
	require.NoError(t, r.Seed(ctx, defaults))

	ops, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ops, 2)

	require.NoError(t, r.Delete(ctx, "938"))
	require.NoError(t, r.Seed(ctx, []model.Operator{{Name: "Shantha", EPF: "5338"}}))

	ops, err = r.List(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "2258", ops[0].EPF)
}
