// Package authority 解析请求方身份：编辑者的优先级与角色
package authority

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"wisefido-floorplan/internal/domain"
	"wisefido-floorplan/internal/repository"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Checker 按编辑者 ID 查询其权限信息；不存在时返回包装了 domain.ErrNotFound 的错误
type Checker interface {
	Lookup(ctx context.Context, editorID string) (*domain.Editor, error)
}

// LocalChecker 从本服务的 editors 表查询
type LocalChecker struct {
	editors repository.EditorsRepository
}

func NewLocalChecker(editors repository.EditorsRepository) *LocalChecker {
	return &LocalChecker{editors: editors}
}

var _ Checker = (*LocalChecker)(nil)

func (c *LocalChecker) Lookup(ctx context.Context, editorID string) (*domain.Editor, error) {
	if editorID == "" {
		return nil, fmt.Errorf("editor id is required: %w", domain.ErrUnauthorized)
	}
	return c.editors.GetEditor(ctx, editorID)
}

// remoteEditorResponse 用户服务的统一返回格式
type remoteEditorResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Result  *domain.Editor `json:"result"`
}

// RemoteChecker 通过用户服务 HTTP 接口查询（GET /api/v1/editors/{id}）
type RemoteChecker struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewRemoteChecker(baseURL string, timeout time.Duration, logger *zap.Logger) *RemoteChecker {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Accept", "application/json")

	return &RemoteChecker{httpClient: client, logger: logger}
}

var _ Checker = (*RemoteChecker)(nil)

func (c *RemoteChecker) Lookup(ctx context.Context, editorID string) (*domain.Editor, error) {
	if editorID == "" {
		return nil, fmt.Errorf("editor id is required: %w", domain.ErrUnauthorized)
	}

	var response remoteEditorResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", editorID).
		SetResult(&response).
		Get("/api/v1/editors/{id}")
	if err != nil {
		c.logger.Error("Editor lookup failed",
			zap.String("editor_id", editorID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to call editor service: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("editor %s: %w", editorID, domain.ErrNotFound)
	case resp.StatusCode() != http.StatusOK:
		c.logger.Warn("Editor service returned error",
			zap.String("editor_id", editorID),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("editor service error: status %d", resp.StatusCode())
	}

	if response.Result == nil || response.Result.ID == "" {
		return nil, fmt.Errorf("editor %s: %w", editorID, domain.ErrNotFound)
	}
	return response.Result, nil
}
