package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"wisefido-floorplan/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresStore(db)
}

var versionRowColumns = []string{
	"version_id", "floor_plan_id", "version_number", "name", "rooms", "deleted_room_ids",
	"created_by", "creator_name", "priority", "created_at", "change_description", "status",
	"merged_at", "merged_by", "rejected_at", "rejected_by", "reject_reason",
}

func TestGetFloorPlan_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	updated := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"floor_plan_id", "name", "building_name", "floor_number", "rooms", "version", "updated_at"}).
		AddRow("fp-1", "Level 2", "HQ", 2, `[{"id":"r1","type":"pantry","x":10,"y":20,"name":"Kitchen"}]`, 7, updated)

	mock.ExpectQuery(`FROM floor_plans`).
		WithArgs("fp-1").
		WillReturnRows(rows)

	fp, err := repo.GetFloorPlan(context.Background(), "fp-1")
	require.NoError(t, err)

	assert.Equal(t, "Level 2", fp.Name)
	assert.Equal(t, "HQ", fp.BuildingName)
	assert.Equal(t, 7, fp.Version)
	require.Len(t, fp.Rooms, 1)
	assert.Equal(t, domain.Room{ID: "r1", Type: domain.RoomTypePantry, X: 10, Y: 20, Name: "Kitchen"}, fp.Rooms[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFloorPlan_NotFound(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM floor_plans`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetFloorPlan(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFloorPlans(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	updated := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"floor_plan_id", "name", "building_name", "floor_number", "rooms", "version", "updated_at"}).
		AddRow("fp-1", "Level 1", nil, 1, `[]`, 1, updated).
		AddRow("fp-2", "Level 2", "HQ", 2, `[{"id":"r1","type":"stairs","x":0,"y":0,"name":""}]`, 4, updated)

	mock.ExpectQuery(`FROM floor_plans\s+ORDER BY building_name NULLS FIRST`).
		WillReturnRows(rows)

	plans, err := repo.ListFloorPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Empty(t, plans[0].BuildingName)
	assert.Empty(t, plans[0].Rooms)
	assert.Equal(t, "HQ", plans[1].BuildingName)
	assert.Equal(t, 4, plans[1].Version)
	require.Len(t, plans[1].Rooms, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFloorPlan_DuplicateID(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO floor_plans`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.CreateFloorPlan(context.Background(), &domain.FloorPlan{ID: "fp-1", Name: "Level 1"})
	assert.True(t, domain.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFloorPlan_GeneratesID(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO floor_plans`).
		WithArgs(sqlmock.AnyArg(), "Level 1", sqlmock.AnyArg(), 1, "[]", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.CreateFloorPlan(context.Background(), &domain.FloorPlan{Name: "Level 1", FloorNumber: 1})
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingVersions_OrderedByPriority(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(versionRowColumns).
		AddRow("v1", "fp-1", 8, "Move kitchen", `[{"id":"r1","type":"pantry","x":0,"y":0,"name":"K"}]`, "{}",
			"head", "Head Editor", 1, created, nil, "draft", nil, nil, nil, nil, nil).
		AddRow("v2", "fp-1", 8, nil, `[]`, "{r9,r10}",
			"e5", nil, 999, created.Add(time.Minute), "cleanup", "draft", nil, nil, nil, nil, nil)

	assert.Equal(t, "COALESCE(e.priority, 999)", creatorPriority)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY " + creatorPriority + " ASC, v.created_at ASC")).
		WithArgs("fp-1").
		WillReturnRows(rows)

	versions, err := repo.ListPendingVersions(context.Background(), "fp-1")
	require.NoError(t, err)
	require.Len(t, versions, 2)

	assert.Equal(t, "Head Editor", versions[0].CreatorName)
	assert.Equal(t, 1, versions[0].CreatorPriority)
	assert.Equal(t, domain.VersionStatusDraft, versions[0].Status)
	assert.Len(t, versions[0].Rooms, 1)
	assert.Nil(t, versions[0].DeletedRoomIDs)

	assert.Equal(t, []string{"r9", "r10"}, versions[1].DeletedRoomIDs)
	assert.Equal(t, "cleanup", versions[1].ChangeDescription)
	assert.Empty(t, versions[1].Rooms)
	assert.Nil(t, versions[1].MergedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetVersion_Merged(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	merged := created.Add(time.Hour)
	rows := sqlmock.NewRows(versionRowColumns).
		AddRow("v1", "fp-1", 3, "n", `[]`, "{}", "e1", "Ann", 2, created, nil, "merged", merged, "head", nil, nil, nil)

	mock.ExpectQuery(`WHERE v.version_id = \$1`).
		WithArgs("v1").
		WillReturnRows(rows)

	v, err := repo.GetVersion(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, domain.VersionStatusMerged, v.Status)
	require.NotNil(t, v.MergedAt)
	assert.Equal(t, merged, *v.MergedAt)
	assert.Equal(t, "head", v.MergedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateVersion(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO floor_plan_versions`).
		WithArgs("v-new", "fp-1", 4, sqlmock.AnyArg(), `[{"id":"r1","type":"storage","x":1,"y":2,"name":"S"}]`,
			pq.Array([]string{"r2"}), "e1", created, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.CreateVersion(context.Background(), &domain.Version{
		ID:             "v-new",
		FloorPlanID:    "fp-1",
		VersionNumber:  4,
		Rooms:          []domain.Room{{ID: "r1", Type: domain.RoomTypeStorage, X: 1, Y: 2, Name: "S"}},
		DeletedRoomIDs: []string{"r2"},
		CreatorID:      "e1",
		CreatedAt:      created,
	})
	require.NoError(t, err)
	assert.Equal(t, "v-new", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateVersion_Validation(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	_, err := repo.CreateVersion(context.Background(), &domain.Version{FloorPlanID: "fp-1", CreatorID: "e1",
		Rooms: []domain.Room{{ID: "r1", Type: "hall"}}})
	assert.True(t, domain.IsValidation(err))

	_, err = repo.CreateVersion(context.Background(), &domain.Version{CreatorID: "e1"})
	assert.True(t, domain.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEditor(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM editors`).
		WithArgs("head").
		WillReturnRows(sqlmock.NewRows([]string{"editor_id", "name", "priority", "role"}).AddRow("head", "Head", 1, "editor"))
	mock.ExpectQuery(`FROM editors`).
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	e, err := repo.GetEditor(context.Background(), "head")
	require.NoError(t, err)
	assert.True(t, e.IsHeadEditor())

	_, err = repo.GetEditor(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_Commit(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mergedAt := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE floor_plans`).
		WithArgs("fp-1", "Level 1", "[]", 8, sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE floor_plan_versions`).
		WithArgs("v1", "merged", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithinTx(context.Background(), func(tx MergeTx) error {
		if err := tx.SaveFloorPlan(context.Background(), &domain.FloorPlan{ID: "fp-1", Name: "Level 1", Version: 8}, 7); err != nil {
			return err
		}
		return tx.SaveVersionStatus(context.Background(), &domain.Version{ID: "v1", Status: domain.VersionStatusMerged, MergedAt: &mergedAt, MergedBy: "head"})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_StaleFloorPlanRollsBack(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE floor_plans`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(tx MergeTx) error {
		return tx.SaveFloorPlan(context.Background(), &domain.FloorPlan{ID: "fp-1", Version: 8}, 7)
	})
	assert.ErrorIs(t, err, domain.ErrStaleFloorPlan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_VersionNoLongerDraft(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE floor_plan_versions`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(tx MergeTx) error {
		return tx.SaveVersionStatus(context.Background(), &domain.Version{ID: "v1", Status: domain.VersionStatusRejected})
	})
	assert.ErrorIs(t, err, domain.ErrVersionNotDraft)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_CommitFailure(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	err := repo.WithinTx(context.Background(), func(tx MergeTx) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFloorPlansWithPending(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT DISTINCT floor_plan_id`).
		WillReturnRows(sqlmock.NewRows([]string{"floor_plan_id"}).AddRow("fp-1").AddRow("fp-2"))

	ids, err := repo.ListFloorPlansWithPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"fp-1", "fp-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
