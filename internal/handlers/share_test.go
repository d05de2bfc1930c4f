package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/storage"
)

// stubAccessService 记录 Resolve 收到的参数，内容固定
type stubAccessService struct {
	file        *models.File
	resolveErr  error
	gotKey      string
	gotPassword *string
}

func (s *stubAccessService) Resolve(ctx context.Context, shareKey string, providedPassword *string, ip string) (*models.File, error) {
	s.gotKey = shareKey
	s.gotPassword = providedPassword
	if s.resolveErr != nil {
		return s.file, s.resolveErr
	}
	return s.file, nil
}

func (s *stubAccessService) OpenContent(ctx context.Context, file *models.File) (storage.GetObjectResult, error) {
	return storage.GetObjectResult{
		Reader:   io.NopCloser(strings.NewReader("content")),
		Size:     7,
		MimeType: "application/octet-stream",
	}, nil
}

func (s *stubAccessService) PresignedURL(ctx context.Context, file *models.File) (string, error) {
	return "http://example.com/signed", nil
}

func newDownloadRouter(stub *stubAccessService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewShareHandler(stub, nil)
	r := gin.New()
	r.GET("/shares/:key/download", h.Download)
	return r
}

// 取件密码只从 X-Share-Password 请求头读取，查询串不参与鉴权，
// 避免明文密码随 URL 进入访问日志
func TestDownloadPasswordFromHeader(t *testing.T) {
	stub := &stubAccessService{file: &models.File{ID: 1, FileName: "report.pdf", Size: 7}}
	r := newDownloadRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/shares/abc123/download?password=should-be-ignored", nil)
	req.Header.Set("X-Share-Password", "secret123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc123", stub.gotKey)
	require.NotNil(t, stub.gotPassword)
	assert.Equal(t, "secret123", *stub.gotPassword)
	assert.Equal(t, "content", w.Body.String())
}

func TestDownloadWithoutPasswordHeader(t *testing.T) {
	stub := &stubAccessService{file: &models.File{ID: 1, FileName: "report.pdf", Size: 7}}
	r := newDownloadRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/shares/abc123/download?password=from-query", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	// 查询串里的密码不会被透传给访问控制
	assert.Nil(t, stub.gotPassword)
}
