package contacts

import (
	"context"
	"testing"

	"GuardianSOS/internal/models"
	"GuardianSOS/internal/testutil"
	"GuardianSOS/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prio(n int) *int { return &n }

func TestRequestValidate(t *testing.T) {
	err := (&Request{PhoneNumber: "02-123-4567", Email: "nope"}).Validate()
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	fields := map[string]string{}
	for _, kv := range e.Context {
		fields[kv.Key] = kv.Value
	}
	assert.Equal(t, map[string]string{
		"name":        "이름은 필수입니다",
		"phoneNumber": "올바른 전화번호 형식이 아닙니다",
		"email":       "올바른 이메일 형식이 아닙니다",
		"priority":    "우선순위는 필수입니다",
	}, fields)

	assert.NoError(t, (&Request{Name: "엄마", PhoneNumber: "01012345678", Priority: prio(1)}).Validate())
}

func TestContactLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.SeedUser(t, db, "kim", "dev-1")
	other := testutil.SeedUser(t, db, "lee", "dev-2")
	svc := NewService(db)
	ctx := context.Background()

	second, err := svc.Add(ctx, owner.ID, Request{Name: "아빠", PhoneNumber: "010-2222-2222", Priority: prio(2)})
	require.NoError(t, err)
	first, err := svc.Add(ctx, owner.ID, Request{Name: "엄마", PhoneNumber: "010-1111-1111", Email: "mom@example.com", Relationship: "어머니", Priority: prio(1)})
	require.NoError(t, err)
	assert.True(t, first.IsActive)

	list, err := svc.List(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	// 他人不可修改/删除
	_, err = svc.Update(ctx, other.ID, first.ID, Request{Name: "x", PhoneNumber: "010-0000-0000", Priority: prio(1)})
	assert.True(t, errors.IsPermissionDenied(err))
	assert.Equal(t, "해당 긴급 연락처를 수정할 권한이 없습니다", errors.GetMessage(err))
	err = svc.Delete(ctx, other.ID, first.ID)
	assert.Equal(t, "해당 긴급 연락처를 삭제할 권한이 없습니다", errors.GetMessage(err))

	updated, err := svc.Update(ctx, owner.ID, second.ID, Request{Name: "아버지", PhoneNumber: "010-3333-3333", Priority: prio(0)})
	require.NoError(t, err)
	assert.Equal(t, "아버지", updated.Name)
	list, _ = svc.List(ctx, owner.ID)
	assert.Equal(t, second.ID, list[0].ID, "priority 0 now sorts first")

	require.NoError(t, svc.Delete(ctx, owner.ID, second.ID))
	list, _ = svc.List(ctx, owner.ID)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	// soft delete keeps the row
	var row models.EmergencyContact
	require.NoError(t, db.First(&row, second.ID).Error)
	assert.False(t, row.IsActive)

	err = svc.Delete(ctx, owner.ID, second.ID)
	assert.True(t, errors.IsNotFound(err))

	_, err = svc.Add(ctx, owner.ID, Request{Name: "잘못", PhoneNumber: "123", Priority: prio(1)})
	assert.True(t, errors.IsValidation(err))
}
