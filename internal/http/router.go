package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	floorPlansPrefix = "/api/v1/floor-plans/"
	versionsPrefix   = "/api/v1/versions/"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealth GET /health
func (r *Router) RegisterHealth() {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}

// RegisterFloorPlanRoutes
//
//	GET  /api/v1/floor-plans
//	POST /api/v1/floor-plans
//	GET  /api/v1/floor-plans/{id}
//	GET  /api/v1/floor-plans/{id}/versions
//	POST /api/v1/floor-plans/{id}/versions
//	GET  /api/v1/floor-plans/{id}/versions/pending
//	GET  /api/v1/floor-plans/{id}/analyze
//	GET  /api/v1/floor-plans/{id}/analyze.xlsx
//	POST /api/v1/floor-plans/{id}/auto-merge
func (r *Router) RegisterFloorPlanRoutes(h *FloorPlanHandler) {
	collection := func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.ListFloorPlans(w, req)
		case http.MethodPost:
			h.CreateFloorPlan(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
	r.Handle(strings.TrimSuffix(floorPlansPrefix, "/"), collection)

	r.Handle(floorPlansPrefix, func(w http.ResponseWriter, req *http.Request) {
		parts := splitPath(strings.TrimPrefix(req.URL.Path, floorPlansPrefix))
		if len(parts) == 0 || parts[0] == "" {
			collection(w, req)
			return
		}
		id := parts[0]

		switch {
		case len(parts) == 1:
			allow(w, req, http.MethodGet, func() { h.GetFloorPlan(w, req, id) })
		case len(parts) == 2 && parts[1] == "versions":
			switch req.Method {
			case http.MethodGet:
				h.ListVersions(w, req, id)
			case http.MethodPost:
				h.CreateVersion(w, req, id)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		case len(parts) == 3 && parts[1] == "versions" && parts[2] == "pending":
			allow(w, req, http.MethodGet, func() { h.PendingVersions(w, req, id) })
		case len(parts) == 2 && parts[1] == "analyze":
			allow(w, req, http.MethodGet, func() { h.Analyze(w, req, id) })
		case len(parts) == 2 && parts[1] == "analyze.xlsx":
			allow(w, req, http.MethodGet, func() { h.ExportAnalysis(w, req, id) })
		case len(parts) == 2 && parts[1] == "auto-merge":
			allow(w, req, http.MethodPost, func() { h.AutoMerge(w, req, id) })
		default:
			writeJSON(w, http.StatusNotFound, Fail("not found"))
		}
	})
}

// RegisterVersionRoutes
//
//	GET  /api/v1/versions/compare?v1=&v2=
//	POST /api/v1/versions/{versionId}/merge
//	POST /api/v1/versions/{versionId}/reject
func (r *Router) RegisterVersionRoutes(h *VersionHandler) {
	r.Handle(versionsPrefix, func(w http.ResponseWriter, req *http.Request) {
		parts := splitPath(strings.TrimPrefix(req.URL.Path, versionsPrefix))

		switch {
		case len(parts) == 1 && parts[0] == "compare":
			allow(w, req, http.MethodGet, func() { h.Compare(w, req) })
		case len(parts) == 2 && parts[1] == "merge":
			allow(w, req, http.MethodPost, func() { h.Merge(w, req, parts[0]) })
		case len(parts) == 2 && parts[1] == "reject":
			allow(w, req, http.MethodPost, func() { h.Reject(w, req, parts[0]) })
		default:
			writeJSON(w, http.StatusNotFound, Fail("not found"))
		}
	})
}

func allow(w http.ResponseWriter, req *http.Request, method string, next func()) {
	if req.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	next()
}
