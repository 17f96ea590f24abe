package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		page      int
		size      int
		wantPages int
		wantSize  int
		wantPage  int
	}{
		{"整除", 40, 2, 20, 2, 20, 2},
		{"有余数", 41, 1, 20, 3, 20, 1},
		{"空结果", 0, 1, 20, 0, 20, 1},
		{"非法页大小取默认", 5, 0, 0, 1, defaultPageSize, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.total, tt.page, tt.size)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantSize, p.PageSize)
			assert.Equal(t, tt.wantPage, p.Page)
		})
	}
}

func TestWrite_EchoesRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		c.Set(RequestIDKey, "trace-9")
		Conflict(c, 21101, "所有兼容摄影棚均被占用", gin.H{"busy": []string{"studio-a"}})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "trace-9", resp["request_id"])
	assert.EqualValues(t, 21101, resp["code"])
	assert.NotNil(t, resp["data"])
}

func TestInternalError_HidesDetails(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) { InternalError(c) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "request_id")
	assert.Contains(t, w.Body.String(), `"code":50000`)
}
