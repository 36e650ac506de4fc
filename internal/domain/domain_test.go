package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimensions(t *testing.T) {
	assert.Equal(t, Dimension{Width: 150, Height: 100}, Dimensions(RoomTypeMeetingRoom))
	assert.Equal(t, Dimension{Width: 90, Height: 90}, Dimensions(RoomTypeStorage))
	assert.Equal(t, Dimension{Width: 100, Height: 100}, Dimensions(RoomType("lobby")))
	assert.Len(t, RoomTypes(), 8)
	for _, rt := range RoomTypes() {
		assert.True(t, rt.Valid(), rt)
	}
}

func TestRoomCenter(t *testing.T) {
	x, y := Room{ID: "1", Type: RoomTypeStairs, X: 10, Y: 20}.Center()
	assert.Equal(t, 60.0, x)
	assert.Equal(t, 50.0, y)
}

func TestValidateRooms(t *testing.T) {
	ok := []Room{{ID: "1", Type: RoomTypePantry}, {ID: "2", Type: RoomTypeElevator}}
	require.NoError(t, ValidateRooms(ok))
	require.NoError(t, ValidateRooms(nil))

	err := ValidateRooms([]Room{{ID: "1", Type: RoomTypePantry}, {ID: "1", Type: RoomTypeWashroom}})
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "duplicate room id 1")

	err = ValidateRooms([]Room{{Type: RoomTypePantry}})
	assert.True(t, IsValidation(err))
}

func TestVersionValidate(t *testing.T) {
	v := &Version{ID: "v1", Rooms: []Room{{ID: "1", Type: RoomTypePantry}}, DeletedRoomIDs: []string{"2"}}
	require.NoError(t, v.Validate())
	assert.True(t, v.Deletes("2"))
	assert.False(t, v.Deletes("1"))

	v.DeletedRoomIDs = []string{""}
	assert.True(t, IsValidation(v.Validate()))

	v.DeletedRoomIDs = []string{"1"}
	assert.True(t, IsValidation(v.Validate()))

	var missing *Version
	assert.True(t, IsValidation(missing.Validate()))
}

func TestVersionCloneIsDeep(t *testing.T) {
	mergedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	v := &Version{
		ID:             "v1",
		Rooms:          []Room{{ID: "1", Type: RoomTypePantry, Name: "P"}},
		DeletedRoomIDs: []string{"9"},
		MergedAt:       &mergedAt,
	}
	c := v.Clone()
	c.Rooms[0].Name = "changed"
	c.DeletedRoomIDs[0] = "changed"
	*c.MergedAt = mergedAt.Add(time.Hour)

	assert.Equal(t, "P", v.Rooms[0].Name)
	assert.Equal(t, "9", v.DeletedRoomIDs[0])
	assert.Equal(t, mergedAt, *v.MergedAt)
	assert.Nil(t, (*Version)(nil).Clone())
}

func TestFloorPlan(t *testing.T) {
	fp := &FloorPlan{ID: "fp-1", Rooms: []Room{{ID: "1", Type: RoomTypeStorage}}}
	require.NoError(t, fp.Validate())

	r, ok := fp.RoomByID("1")
	assert.True(t, ok)
	assert.Equal(t, RoomTypeStorage, r.Type)
	_, ok = fp.RoomByID("2")
	assert.False(t, ok)

	c := fp.Clone()
	c.Rooms[0].Type = RoomTypeStairs
	assert.Equal(t, RoomTypeStorage, fp.Rooms[0].Type)

	assert.True(t, IsValidation((&FloorPlan{}).Validate()))
}

func TestEditorCanDecide(t *testing.T) {
	assert.True(t, (&Editor{Priority: 1}).CanDecide())
	assert.True(t, (&Editor{Priority: 7, Role: RoleAdmin}).CanDecide())
	assert.False(t, (&Editor{Priority: 2, Role: "editor"}).CanDecide())

	var none *Editor
	assert.False(t, none.CanDecide())
}

func TestVersionStatus(t *testing.T) {
	assert.False(t, VersionStatusDraft.IsTerminal())
	assert.True(t, VersionStatusMerged.IsTerminal())
	assert.True(t, VersionStatusRejected.IsTerminal())
	assert.False(t, VersionStatus("archived").Valid())
}

func TestErrorHelpers(t *testing.T) {
	err := fmt.Errorf("wrap: %w", &AlreadyTerminalError{VersionID: "v1", Status: VersionStatusMerged})
	assert.True(t, IsAlreadyTerminal(err))
	assert.Equal(t, "wrap: version is already merged", err.Error())
	assert.False(t, IsValidation(err))
	assert.False(t, IsAlreadyTerminal(errors.New("x")))
}
