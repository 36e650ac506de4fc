package httpapi

import (
	"context"
	"errors"
	"net/http"

	"wisefido-floorplan/internal/domain"
	"wisefido-floorplan/internal/merge"
	"wisefido-floorplan/internal/service"

	"go.uber.org/zap"
)

// VersionAPI handler 依赖的服务能力（由 service.VersionService 实现）
type VersionAPI interface {
	ListFloorPlans(ctx context.Context) ([]*domain.FloorPlan, error)
	CreateFloorPlan(ctx context.Context, req service.CreateFloorPlanRequest) (*domain.FloorPlan, error)
	GetFloorPlan(ctx context.Context, floorPlanID string) (*domain.FloorPlan, error)
	ListVersions(ctx context.Context, floorPlanID string) ([]*domain.Version, error)
	PendingVersions(ctx context.Context, floorPlanID string) ([]*domain.Version, error)
	CreateVersion(ctx context.Context, req service.CreateVersionRequest) (*domain.Version, error)
	Analyze(ctx context.Context, floorPlanID string) (*merge.ConflictReport, error)
	ExportConflictReport(ctx context.Context, floorPlanID string) ([]byte, error)
	AutoMerge(ctx context.Context, floorPlanID, actorID string) (*merge.MergeResult, error)
	MergeVersion(ctx context.Context, versionID, actorID string) (*service.MergeVersionResult, error)
	RejectVersion(ctx context.Context, versionID, actorID, reason string) (*domain.Version, error)
	CompareVersions(ctx context.Context, versionID1, versionID2 string) (*merge.Comparison, error)
}

var _ VersionAPI = (*service.VersionService)(nil)

// writeError 按错误类型返回状态码；5xx 不暴露内部错误
func writeError(w http.ResponseWriter, logger *zap.Logger, err error, fields ...zap.Field) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", append(fields, zap.Error(err))...)
		writeJSON(w, status, Fail("internal server error"))
		return
	}
	writeJSON(w, status, Fail(err.Error()))
}

// ---- floor plans ----

// FloorPlanHandler 平面图及其版本
type FloorPlanHandler struct {
	svc    VersionAPI
	logger *zap.Logger
}

func NewFloorPlanHandler(svc VersionAPI, logger *zap.Logger) *FloorPlanHandler {
	return &FloorPlanHandler{svc: svc, logger: logger}
}

func (h *FloorPlanHandler) ListFloorPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.svc.ListFloorPlans(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(plans))
}

// createFloorPlanBody POST /api/v1/floor-plans
type createFloorPlanBody struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	BuildingName string        `json:"building_name"`
	FloorNumber  int           `json:"floor_number"`
	Rooms        []domain.Room `json:"rooms"`
}

func (h *FloorPlanHandler) CreateFloorPlan(w http.ResponseWriter, r *http.Request) {
	var body createFloorPlanBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	fp, err := h.svc.CreateFloorPlan(r.Context(), service.CreateFloorPlanRequest{
		ActorID:      userIDFromReq(r),
		ID:           body.ID,
		Name:         body.Name,
		BuildingName: body.BuildingName,
		FloorNumber:  body.FloorNumber,
		Rooms:        body.Rooms,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(fp))
}

func (h *FloorPlanHandler) GetFloorPlan(w http.ResponseWriter, r *http.Request, id string) {
	fp, err := h.svc.GetFloorPlan(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, zap.String("floor_plan_id", id))
		return
	}
	writeJSON(w, http.StatusOK, Ok(fp))
}

func (h *FloorPlanHandler) ListVersions(w http.ResponseWriter, r *http.Request, id string) {
	versions, err := h.svc.ListVersions(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, zap.String("floor_plan_id", id))
		return
	}
	writeJSON(w, http.StatusOK, Ok(versions))
}

func (h *FloorPlanHandler) PendingVersions(w http.ResponseWriter, r *http.Request, id string) {
	versions, err := h.svc.PendingVersions(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, zap.String("floor_plan_id", id))
		return
	}
	writeJSON(w, http.StatusOK, Ok(versions))
}

// createVersionBody POST /api/v1/floor-plans/{id}/versions
type createVersionBody struct {
	Name              string        `json:"name"`
	Rooms             []domain.Room `json:"rooms"`
	DeletedRoomIDs    []string      `json:"deleted_room_ids"`
	ChangeDescription string        `json:"change_description"`
}

func (h *FloorPlanHandler) CreateVersion(w http.ResponseWriter, r *http.Request, id string) {
	var body createVersionBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	v, err := h.svc.CreateVersion(r.Context(), service.CreateVersionRequest{
		FloorPlanID:       id,
		CreatorID:         userIDFromReq(r),
		Name:              body.Name,
		Rooms:             body.Rooms,
		DeletedRoomIDs:    body.DeletedRoomIDs,
		ChangeDescription: body.ChangeDescription,
	})
	if err != nil {
		writeError(w, h.logger, err, zap.String("floor_plan_id", id))
		return
	}
	writeJSON(w, http.StatusCreated, Ok(v))
}

func (h *FloorPlanHandler) Analyze(w http.ResponseWriter, r *http.Request, id string) {
	report, err := h.svc.Analyze(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, zap.String("floor_plan_id", id))
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

func (h *FloorPlanHandler) ExportAnalysis(w http.ResponseWriter, r *http.Request, id string) {
	data, err := h.svc.ExportConflictReport(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, zap.String("floor_plan_id", id))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="conflict-report-`+id+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// AutoMergeResponse 自动合并返回
type AutoMergeResponse struct {
	Success            bool                 `json:"success"`
	Message            string               `json:"message,omitempty"`
	MergedFloorPlan    *domain.FloorPlan    `json:"merged_floor_plan,omitempty"`
	MergedVersionCount int                  `json:"merged_version_count"`
	AppliedChangeCount int                  `json:"applied_change_count"`
	DroppedRooms       []domain.Room        `json:"dropped_rooms,omitempty"`
	Conflicts          []merge.ConflictItem `json:"conflicts,omitempty"`
}

func (h *FloorPlanHandler) AutoMerge(w http.ResponseWriter, r *http.Request, id string) {
	result, err := h.svc.AutoMerge(r.Context(), id, userIDFromReq(r))
	if errors.Is(err, domain.ErrConflictBlocked) && result != nil {
		writeJSON(w, http.StatusConflict, FailWith(err.Error(), AutoMergeResponse{
			Success:   false,
			Message:   err.Error(),
			Conflicts: merge.DescribeConflicts(result.Conflicts),
		}))
		return
	}
	if err != nil {
		writeError(w, h.logger, err, zap.String("floor_plan_id", id))
		return
	}

	writeJSON(w, http.StatusOK, Ok(AutoMergeResponse{
		Success:            true,
		Message:            result.Message,
		MergedFloorPlan:    result.MergedFloorPlan,
		MergedVersionCount: result.MergedVersionCount,
		AppliedChangeCount: len(result.AppliedChanges),
		DroppedRooms:       result.DroppedRooms,
	}))
}

// ---- versions ----

// VersionHandler 单个版本的合并、驳回、比较
type VersionHandler struct {
	svc    VersionAPI
	logger *zap.Logger
}

func NewVersionHandler(svc VersionAPI, logger *zap.Logger) *VersionHandler {
	return &VersionHandler{svc: svc, logger: logger}
}

func (h *VersionHandler) Merge(w http.ResponseWriter, r *http.Request, versionID string) {
	out, err := h.svc.MergeVersion(r.Context(), versionID, userIDFromReq(r))
	if err != nil {
		writeError(w, h.logger, err, zap.String("version_id", versionID))
		return
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

type rejectBody struct {
	Reason string `json:"reason"`
}

func (h *VersionHandler) Reject(w http.ResponseWriter, r *http.Request, versionID string) {
	var body rejectBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	v, err := h.svc.RejectVersion(r.Context(), versionID, userIDFromReq(r), body.Reason)
	if err != nil {
		writeError(w, h.logger, err, zap.String("version_id", versionID))
		return
	}
	writeJSON(w, http.StatusOK, Ok(v))
}

func (h *VersionHandler) Compare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cmp, err := h.svc.CompareVersions(r.Context(), q.Get("v1"), q.Get("v2"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cmp))
}
