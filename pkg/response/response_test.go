package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	apperrors "localhub/pkg/errors"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestPaginatedMetadata(t *testing.T) {
	c, rec := newContext()

	assert.NoError(t, Paginated(c, []string{"m4", "m5"}, 5, 1, 2))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool              `json:"success"`
		Data    PaginatedResponse `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(5), body.Data.Total)
	assert.Equal(t, 3, body.Data.TotalPages)
	assert.True(t, body.Data.HasNext)
	assert.False(t, body.Data.HasPrev)
}

func TestErrorUsesAppErrorStatusAndCode(t *testing.T) {
	c, rec := newContext()

	assert.NoError(t, Error(c, apperrors.Forbidden("You are not a participant of this chat", nil)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestErrorHidesUnknownFailures(t *testing.T) {
	c, rec := newContext()

	assert.NoError(t, Error(c, assert.AnError))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
