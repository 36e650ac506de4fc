package merge

import (
	"testing"
	"time"

	"wisefido-floorplan/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDiff_GroupsByRoomInFirstSeenOrder(t *testing.T) {
	base := baseFloorPlan(room("1", domain.RoomTypeMeetingRoom, 0, 0, "A"))
	v1 := draft("v1", 1, t0, room("2", domain.RoomTypePantry, 500, 500, "P"), room("1", domain.RoomTypeMeetingRoom, 50, 50, "A"))
	v2 := draft("v2", 5, t0.Add(time.Minute), room("1", domain.RoomTypeMeetingRoom, 0, 0, "B"))
	empty := draft("v3", 5, t0)

	diff := ExtractDiff(base, []*domain.Version{v1, v2, empty})

	assert.Equal(t, []string{"2", "1"}, diff.Order)
	require.Len(t, diff.Changes["1"], 2)
	assert.Equal(t, "v1", diff.Changes["1"][0].VersionID)
	assert.Equal(t, 5, diff.Changes["1"][1].Priority)
	assert.Equal(t, t0.Add(time.Minute).UnixMilli(), diff.Changes["1"][1].CreatedAtEpoch)
	assert.True(t, diff.Has("2"))
	assert.False(t, diff.Has("3"))
}

func TestExtractDiff_IgnoresTombstoneForUnknownRoom(t *testing.T) {
	base := baseFloorPlan(room("1", domain.RoomTypeMeetingRoom, 0, 0, "A"))
	v1 := draft("v1", 1, t0)
	v1.DeletedRoomIDs = []string{"1", "ghost"}

	diff := ExtractDiff(base, []*domain.Version{v1})

	assert.Equal(t, []string{"1"}, diff.Order)
	assert.Len(t, diff.Deletions["1"], 1)
	assert.Empty(t, diff.Deletions["ghost"])
}

func TestAnalyze_SingleChangeModifyAndAdd(t *testing.T) {
	base := baseFloorPlan(room("1", domain.RoomTypeMeetingRoom, 0, 0, "A"))
	v1 := draft("v1", 3, t0,
		room("1", domain.RoomTypeMeetingRoom, 40, 0, "A"),
		room("2", domain.RoomTypeStorage, 600, 600, "S"),
	)

	analysis, err := Analyze(base, []*domain.Version{v1})
	require.NoError(t, err)

	assert.True(t, analysis.CanAutoMerge)
	assert.Equal(t, 0, analysis.TotalConflicts)
	require.Equal(t, 2, analysis.TotalSafeChanges)

	modify, ok := analysis.SafeChanges[0].(SingleChange)
	require.True(t, ok)
	assert.Equal(t, ActionModify, modify.Action)
	assert.Equal(t, "1", modify.RoomID)

	add, ok := analysis.SafeChanges[1].(SingleChange)
	require.True(t, ok)
	assert.Equal(t, ActionAdd, add.Action)
	assert.Equal(t, KindSingleChange, add.Kind())
}

func TestAnalyze_DisjointPropertiesMergeNonOverlapping(t *testing.T) {
	base := baseFloorPlan(room("1", domain.RoomTypeMeetingRoom, 0, 0, "A"))
	v1 := draft("v1", 1, t0, room("1", domain.RoomTypeMeetingRoom, 50, 50, "A"))
	v2 := draft("v2", 5, t0, room("1", domain.RoomTypeMeetingRoom, 0, 0, "B"))

	analysis, err := Analyze(base, []*domain.Version{v1, v2})
	require.NoError(t, err)
	require.Len(t, analysis.SafeChanges, 1)

	c, ok := analysis.SafeChanges[0].(NonOverlapping)
	require.True(t, ok)
	assert.Equal(t, room("1", domain.RoomTypeMeetingRoom, 50, 50, "B"), c.MergedRoom)
	assert.Equal(t, []PropertyOwner{
		{Property: PropertyPosition, VersionID: "v1"},
		{Property: PropertyName, VersionID: "v2"},
	}, c.Owners)
	assert.False(t, c.IsNew)
}

func TestAnalyze_SamePropertyResolvedByPriority(t *testing.T) {
	base := baseFloorPlan(room("1", domain.RoomTypeMeetingRoom, 0, 0, "A"))
	v1 := draft("v1", 1, t0, room("1", domain.RoomTypeMeetingRoom, 50, 50, "A"))
	v2 := draft("v2", 5, t0.Add(time.Hour), room("1", domain.RoomTypeMeetingRoom, 80, 80, "A"))

	for _, order := range [][]*domain.Version{{v1, v2}, {v2, v1}} {
		analysis, err := Analyze(base, order)
		require.NoError(t, err)
		require.Len(t, analysis.SafeChanges, 1)

		c, ok := analysis.SafeChanges[0].(OverlappingResolved)
		require.True(t, ok)
		assert.Equal(t, "v1", c.Outcome.Winner.VersionID)
		assert.Equal(t, []Property{PropertyPosition}, c.Properties)
		require.Len(t, c.Outcome.Losers, 1)
		assert.Equal(t, "v2", c.Outcome.Losers[0].VersionID)
	}
}

func TestAnalyze_SamePriorityLaterTimestampWins(t *testing.T) {
	base := baseFloorPlan(room("1", domain.RoomTypeMeetingRoom, 0, 0, "A"))
	v1 := draft("v1", 5, t0.Add(10*time.Second), room("1", domain.RoomTypeMeetingRoom, 50, 50, "A"))
	v2 := draft("v2", 5, t0.Add(20*time.Second), room("1", domain.RoomTypeMeetingRoom, 90, 90, "A"))

	analysis, err := Analyze(base, []*domain.Version{v1, v2})
	require.NoError(t, err)

	c, ok := analysis.SafeChanges[0].(OverlappingResolved)
	require.True(t, ok)
	assert.Equal(t, "v2", c.Outcome.Winner.VersionID)
	assert.Equal(t, ReasonLatestTimestamp, c.Outcome.Reason)
}

func TestAnalyze_UnchangedRoomDoesNotJoinContest(t *testing.T) {
	base := baseFloorPlan(room("1", domain.RoomTypeMeetingRoom, 0, 0, "A"))
	v1 := draft("v1", 1, t0, room("1", domain.RoomTypeMeetingRoom, 0, 0, "A"))
	v2 := draft("v2", 3, t0, room("1", domain.RoomTypeMeetingRoom, 50, 50, "A"))
	v3 := draft("v3", 5, t0, room("1", domain.RoomTypeMeetingRoom, 80, 80, "A"))

	analysis, err := Analyze(base, []*domain.Version{v1, v2, v3})
	require.NoError(t, err)
	require.Len(t, analysis.SafeChanges, 1)

	c, ok := analysis.SafeChanges[0].(OverlappingResolved)
	require.True(t, ok)
	assert.Equal(t, "v2", c.Outcome.Winner.VersionID)
	assert.Equal(t, ReasonFirstSeen, c.Outcome.Reason)
	require.Len(t, c.Outcome.Losers, 2)
	assert.Equal(t, "v3", c.Outcome.Losers[0].VersionID)
	assert.Equal(t, "v1", c.Outcome.Losers[1].VersionID)
}

func TestAnalyze_NewRoomFromTwoVersionsIsOverlapping(t *testing.T) {
	base := baseFloorPlan()
	v1 := draft("v1", 2, t0, room("n", domain.RoomTypePantry, 10, 10, "Kitchen"))
	v2 := draft("v2", 1, t0, room("n", domain.RoomTypePantry, 300, 300, "Pantry"))

	analysis, err := Analyze(base, []*domain.Version{v1, v2})
	require.NoError(t, err)

	c, ok := analysis.SafeChanges[0].(OverlappingResolved)
	require.True(t, ok)
	assert.True(t, c.IsNew)
	assert.Equal(t, []Property{PropertyAll}, c.Properties)
	assert.Equal(t, "v2", c.Outcome.Winner.VersionID)
}

func TestAnalyze_UnchangedRoomInEverySnapshot(t *testing.T) {
	r := room("1", domain.RoomTypeMeetingRoom, 0, 0, "A")
	base := baseFloorPlan(r)

	analysis, err := Analyze(base, []*domain.Version{draft("v1", 1, t0, r), draft("v2", 2, t0, r)})
	require.NoError(t, err)

	c, ok := analysis.SafeChanges[0].(NonOverlapping)
	require.True(t, ok)
	assert.Equal(t, r, c.MergedRoom)
	assert.Empty(t, c.Owners)
}

func TestAnalyze_AbsenceIsNotDeletion(t *testing.T) {
	base := baseFloorPlan(
		room("1", domain.RoomTypeMeetingRoom, 0, 0, "A"),
		room("2", domain.RoomTypeWashroom, 400, 0, "WC"),
	)
	// v1 只带了房间 1，没有 tombstone
	v1 := draft("v1", 4, t0, room("1", domain.RoomTypeMeetingRoom, 0, 0, "A2"))

	analysis, err := Analyze(base, []*domain.Version{v1})
	require.NoError(t, err)
	assert.True(t, analysis.CanAutoMerge)
	assert.Len(t, analysis.SafeChanges, 1)
}

func TestAnalyze_TombstoneWithoutModificationIsSafeDelete(t *testing.T) {
	r1 := room("1", domain.RoomTypeMeetingRoom, 0, 0, "A")
	r2 := room("2", domain.RoomTypeWashroom, 400, 0, "WC")
	base := baseFloorPlan(r1, r2)

	v1 := draft("v1", 3, t0, r1)
	v1.DeletedRoomIDs = []string{"2"}
	v2 := draft("v2", 1, t0, r1, r2)

	analysis, err := Analyze(base, []*domain.Version{v1, v2})
	require.NoError(t, err)
	assert.True(t, analysis.CanAutoMerge)

	var deleted *SingleChange
	for _, c := range analysis.SafeChanges {
		if sc, ok := c.(SingleChange); ok && sc.Action == ActionDelete {
			deleted = &sc
		}
	}
	require.NotNil(t, deleted)
	assert.Equal(t, "2", deleted.RoomID)
	assert.Equal(t, "v1", deleted.Entry.VersionID)
}

func TestAnalyze_TombstoneAgainstModificationIsConflict(t *testing.T) {
	r1 := room("1", domain.RoomTypeMeetingRoom, 0, 0, "A")
	r2 := room("2", domain.RoomTypeWashroom, 400, 0, "WC")
	base := baseFloorPlan(r1, r2)

	v1 := draft("v1", 1, t0, r1)
	v1.DeletedRoomIDs = []string{"2"}
	v2 := draft("v2", 5, t0, r1, room("2", domain.RoomTypeWashroom, 400, 0, "Restroom"))

	analysis, err := Analyze(base, []*domain.Version{v1, v2})
	require.NoError(t, err)

	assert.False(t, analysis.CanAutoMerge)
	require.Equal(t, 1, analysis.TotalConflicts)
	c, ok := analysis.Conflicts[0].(DeletionConflict)
	require.True(t, ok)
	assert.Equal(t, r2, c.BaseRoom)
	assert.Equal(t, []string{"v1"}, c.DeletingVersionIDs)
	assert.Equal(t, []string{"v2"}, c.ModifyingVersionIDs)
}

func TestAnalyze_RejectsMalformedRooms(t *testing.T) {
	base := baseFloorPlan(room("1", domain.RoomTypeMeetingRoom, 0, 0, "A"))

	cases := map[string]*domain.Version{
		"missing id":   draft("v1", 1, t0, room("", domain.RoomTypeMeetingRoom, 0, 0, "A")),
		"unknown type": draft("v1", 1, t0, room("1", domain.RoomType("ballroom"), 0, 0, "A")),
		"duplicate id": draft("v1", 1, t0, room("1", domain.RoomTypeMeetingRoom, 0, 0, "A"), room("1", domain.RoomTypeStorage, 0, 0, "B")),
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Analyze(base, []*domain.Version{v})
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
		})
	}

	proposedAndDeleted := draft("v2", 1, t0, room("1", domain.RoomTypeMeetingRoom, 0, 0, "A"))
	proposedAndDeleted.DeletedRoomIDs = []string{"1"}
	_, err := Analyze(base, []*domain.Version{proposedAndDeleted})
	assert.True(t, domain.IsValidation(err))

	foreign := draft("v3", 1, t0)
	foreign.FloorPlanID = "fp-other"
	_, err = Analyze(base, []*domain.Version{foreign})
	assert.True(t, domain.IsValidation(err))
}

func TestAnalyze_DoesNotMutateInputs(t *testing.T) {
	base := baseFloorPlan(room("1", domain.RoomTypeMeetingRoom, 0, 0, "A"))
	v1 := draft("v1", 1, t0, room("1", domain.RoomTypeMeetingRoom, 50, 50, "A"))
	v2 := draft("v2", 5, t0, room("1", domain.RoomTypeMeetingRoom, 80, 80, "A"))
	before := base.Clone()
	v1Before := v1.Clone()

	_, err := Analyze(base, []*domain.Version{v1, v2})
	require.NoError(t, err)

	assert.Equal(t, before, base)
	assert.Equal(t, v1Before, v1)
}
