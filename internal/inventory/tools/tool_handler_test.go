package tools

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"toolroom/internal/repository"
	"toolroom/pkg/auditlog"
	custom_error "toolroom/pkg/errors"
	"toolroom/pkg/metadata"
	"toolroom/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockToolRepository struct {
	mock.Mock
}

func (m *MockToolRepository) GetTool(id int) (*models.Tool, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tool), args.Error(1)
}

func (m *MockToolRepository) GetToolsBy(conditions repository.QueryBuilder) (*[]models.Tool, error) {
	args := m.Called(conditions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*[]models.Tool), args.Error(1)
}

func (m *MockToolRepository) GetToolList() (*[]models.Tool, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*[]models.Tool), args.Error(1)
}

func (m *MockToolRepository) PersistTool(req ToolRequest) (*models.Tool, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tool), args.Error(1)
}

func (m *MockToolRepository) UpdateTool(id int, req UpdateToolRequest) error {
	args := m.Called(id, req)
	return args.Error(0)
}

func (m *MockToolRepository) UpdateToolCode(id int, toolCode string) error {
	args := m.Called(id, toolCode)
	return args.Error(0)
}

func (m *MockToolRepository) CanRemoveTool(id int) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockToolRepository) RemoveTool(id int) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockToolRepository) GetCalibrationDue(until time.Time) (*[]models.Tool, error) {
	args := m.Called(until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*[]models.Tool), args.Error(1)
}

func (m *MockToolRepository) TryReserve(id int, borrowerName string) (bool, error) {
	args := m.Called(id, borrowerName)
	return args.Bool(0), args.Error(1)
}

func (m *MockToolRepository) Release(id int, qty int, condition *metadata.Condition, remark *string) error {
	args := m.Called(id, qty, condition, remark)
	return args.Error(0)
}

type noopLogStore struct{}

func (noopLogStore) PersistLog(models.AuditLog, interface{}) error { return nil }

func newTestHandler() (*ToolHandler, *MockToolRepository) {
	gin.SetMode(gin.TestMode)
	repo := new(MockToolRepository)
	handler := NewToolHandler(repo, auditlog.NewAuditLog(noopLogStore{}))
	return handler, repo
}

func TestGetTool(t *testing.T) {
	handler, repo := newTestHandler()

	tool := &models.Tool{ID: 1, ToolNo: "DRL-100", ToolCode: "TRM-PNE1", Location: metadata.LocationPune, Quantity: 2, Availability: 2}
	repo.On("GetTool", 1).Return(tool, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/tools/1", nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	handler.GetTool(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var got models.Tool
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "DRL-100", got.ToolNo)
	repo.AssertExpectations(t)
}

func TestGetToolNotFound(t *testing.T) {
	handler, repo := newTestHandler()

	repo.On("GetTool", 42).Return(nil, custom_error.NewNotFoundError("tool", 42))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/tools/42", nil)
	c.Params = gin.Params{{Key: "id", Value: "42"}}

	handler.GetTool(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetToolListRejectsUnknownLocation(t *testing.T) {
	handler, _ := newTestHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/tools?location=atlantis", nil)

	handler.GetToolList(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateToolStampsToolCode(t *testing.T) {
	handler, repo := newTestHandler()

	req := ToolRequest{
		ToolNo:      "DRL-100",
		Description: "Cordless drill",
		Location:    "pune",
		Quantity:    2,
	}
	created := &models.Tool{ID: 7, ToolNo: "DRL-100", Location: metadata.LocationPune, Quantity: 2, Availability: 2}
	repo.On("PersistTool", req).Return(created, nil)
	repo.On("UpdateToolCode", 7, "TRM-PNE7").Return(nil)

	body, _ := json.Marshal(req)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/tools", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.CreateTool(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var got models.Tool
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "TRM-PNE7", got.ToolCode)
	repo.AssertExpectations(t)
}

func TestRemoveToolBlockedByLiveIssuance(t *testing.T) {
	handler, repo := newTestHandler()

	repo.On("CanRemoveTool", 3).Return(false, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/tools/3", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}

	handler.RemoveTool(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	repo.AssertNotCalled(t, "RemoveTool", 3)
}
