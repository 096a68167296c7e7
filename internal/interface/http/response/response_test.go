package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, err error) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Discard()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	Error(c, err)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestErrorMapsAppError(t *testing.T) {
	w, body := render(t, apperror.ErrDuplicateProposal)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "DUPLICATE_SUBMISSION", body.Error.Code)
}

func TestErrorHidesDriverDetails(t *testing.T) {
	w, body := render(t, errors.New("pq: password authentication failed"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.NotContains(t, body.Error.Message, "pq")

	w, body = render(t, apperror.Wrap(errors.New("pq: deadlock"), apperror.ErrCodeDatabaseError, "не удалось обновить статус"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "DATABASE_ERROR", body.Error.Code)
	assert.NotContains(t, body.Error.Message, "deadlock")
}

func TestErrorUpstreamIs502(t *testing.T) {
	w, body := render(t, apperror.ErrPaymentGateway)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "UPSTREAM_ERROR", body.Error.Code)
}
