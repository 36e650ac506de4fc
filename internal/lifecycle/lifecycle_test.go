package lifecycle

import (
	"testing"
	"time"

	"wisefido-floorplan/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	head   = &domain.Editor{ID: "head", Priority: 1, Role: "editor"}
	admin  = &domain.Editor{ID: "root", Priority: 9, Role: domain.RoleAdmin}
	editor = &domain.Editor{ID: "e2", Priority: 2, Role: "editor"}
	at     = time.Date(2026, 5, 4, 10, 30, 0, 0, time.FixedZone("UTC+8", 8*3600))
)

func draftVersion(id string) *domain.Version {
	return &domain.Version{
		ID:          id,
		FloorPlanID: "fp-1",
		Rooms:       []domain.Room{{ID: "1", Type: domain.RoomTypePantry}},
		Status:      domain.VersionStatusDraft,
	}
}

func TestMerge(t *testing.T) {
	v := draftVersion("v1")

	out, err := Merge(v, head, at)
	require.NoError(t, err)

	assert.Equal(t, domain.VersionStatusMerged, out.Status)
	assert.Equal(t, "head", out.MergedBy)
	require.NotNil(t, out.MergedAt)
	assert.Equal(t, at.UTC(), *out.MergedAt)
	// 输入不变
	assert.Equal(t, domain.VersionStatusDraft, v.Status)
	assert.Nil(t, v.MergedAt)

	_, err = Merge(v, admin, at)
	assert.NoError(t, err)
}

func TestMerge_Unauthorized(t *testing.T) {
	_, err := Merge(draftVersion("v1"), editor, at)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = Merge(draftVersion("v1"), nil, at)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestMerge_AlreadyTerminal(t *testing.T) {
	merged, err := Merge(draftVersion("v1"), head, at)
	require.NoError(t, err)

	_, err = Merge(merged, head, at)
	require.Error(t, err)
	assert.True(t, domain.IsAlreadyTerminal(err))
	assert.Equal(t, "version is already merged", err.Error())

	_, err = Reject(merged, head, "late", at)
	assert.True(t, domain.IsAlreadyTerminal(err))
}

func TestReject(t *testing.T) {
	out, err := Reject(draftVersion("v1"), admin, "overlaps stairs", at)
	require.NoError(t, err)

	assert.Equal(t, domain.VersionStatusRejected, out.Status)
	assert.Equal(t, "root", out.RejectedBy)
	assert.Equal(t, "overlaps stairs", out.RejectReason)
	require.NotNil(t, out.RejectedAt)

	_, err = Merge(out, head, at)
	assert.EqualError(t, err, "version is already rejected")

	_, err = Reject(draftVersion("v2"), editor, "", at)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCheckDraft_UnknownStatus(t *testing.T) {
	v := draftVersion("v1")
	v.Status = "pending"
	assert.True(t, domain.IsValidation(CheckDraft(v)))
	assert.True(t, domain.IsValidation(CheckDraft(nil)))
}

func TestMergeAll_SharedTimestamp(t *testing.T) {
	versions := []*domain.Version{draftVersion("v1"), draftVersion("v2"), draftVersion("v3")}

	out, err := MergeAll(versions, SystemActor, at)
	require.NoError(t, err)
	require.Len(t, out, 3)

	for i, v := range out {
		assert.Equal(t, versions[i].ID, v.ID)
		assert.Equal(t, domain.VersionStatusMerged, v.Status)
		assert.Equal(t, "system", v.MergedBy)
		assert.Equal(t, *out[0].MergedAt, *v.MergedAt)
		assert.Equal(t, domain.VersionStatusDraft, versions[i].Status)
	}
}

func TestMergeAll_AllOrNothing(t *testing.T) {
	terminal := draftVersion("v2")
	terminal.Status = domain.VersionStatusRejected
	versions := []*domain.Version{draftVersion("v1"), terminal, draftVersion("v3")}

	out, err := MergeAll(versions, head, at)
	assert.Nil(t, out)
	assert.True(t, domain.IsAlreadyTerminal(err))
	assert.Equal(t, domain.VersionStatusDraft, versions[0].Status)

	dup := draftVersion("v1")
	_, err = MergeAll([]*domain.Version{draftVersion("v1"), dup}, head, at)
	assert.True(t, domain.IsValidation(err))

	_, err = MergeAll([]*domain.Version{draftVersion("v1")}, editor, at)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestMergeAll_Empty(t *testing.T) {
	out, err := MergeAll(nil, head, at)
	require.NoError(t, err)
	assert.Empty(t, out)
}
