package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
	"shopapi/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuditLogUsecase_List_BuildsQuery(t *testing.T) {
	logs := new(AuditRepoMock)
	uc := usecase.NewAuditLogUsecase(logs, zap.NewNop())

	logs.On("List", mock.Anything, mock.MatchedBy(func(q repo.AuditLogQuery) bool {
		return q.Action == model.AuditActionUpdateOrderStatus &&
			q.ResourceType == model.AuditResourceOrder &&
			q.ResourceID == 7 &&
			q.ActorUserID == 0 &&
			q.Since.Year() == 2026 &&
			q.Until.IsZero() &&
			q.Limit == 10
	})).Return([]model.AuditLog{{ID: 1}}, nil).Once()

	resourceID := int64(7)
	out, err := uc.List(context.Background(), usecase.ListAuditLogsInput{
		ResourceID:   &resourceID,
		Action:       "UPDATE_ORDER_STATUS",
		ResourceType: "order",
		From:         "2026-01-01T00:00:00Z",
		Limit:        10,
	})

	require.NoError(t, err)
	assert.Len(t, out.AuditLogs, 1)
	logs.AssertExpectations(t)
}

func TestAuditLogUsecase_List_Invalid(t *testing.T) {
	logs := new(AuditRepoMock)
	uc := usecase.NewAuditLogUsecase(logs, zap.NewNop())

	_, err := uc.List(context.Background(), usecase.ListAuditLogsInput{From: "yesterday", Limit: 1000, Offset: -1})

	he := requireHTTPError(t, err, http.StatusUnprocessableEntity)
	assert.Contains(t, he.Fields, "from")
	assert.Contains(t, he.Fields, "limit")
	assert.Contains(t, he.Fields, "offset")
	logs.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}
