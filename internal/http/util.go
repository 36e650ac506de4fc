package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"wisefido-floorplan/internal/domain"
	"wisefido-floorplan/internal/store"
)

// maxBodyBytes 请求体上限（完整房间快照）
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// userIDFromReq 请求方身份由网关注入 X-User-Id
func userIDFromReq(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

// statusFor 领域错误 -> HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case domain.IsValidation(err), domain.IsAlreadyTerminal(err), errors.Is(err, domain.ErrNoPendingVersions):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflictBlocked),
		errors.Is(err, domain.ErrStaleFloorPlan),
		errors.Is(err, domain.ErrVersionNotDraft),
		errors.Is(err, store.ErrLockNotAcquired):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// splitPath "/a/b/" -> ["a", "b"]
func splitPath(rest string) []string {
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
