package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	chaterrors "ambassador-chat/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err  error
		want int
	}{
		{chaterrors.ErrInvalidInput, http.StatusBadRequest},
		{chaterrors.ErrUnauthorized, http.StatusUnauthorized},
		{chaterrors.ErrForbidden, http.StatusForbidden},
		{chaterrors.ErrNotFound, http.StatusNotFound},
		{chaterrors.ErrInvalidTransition, http.StatusConflict},
		{chaterrors.ErrRateLimited, http.StatusTooManyRequests},
		{chaterrors.ErrDependency, http.StatusBadGateway},
		{chaterrors.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{errors.New("surprise"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)

		respondError(c, tc.err)
		assert.Equal(t, tc.want, recorder.Code, tc.err.Error())
	}
}

func TestRespondErrorAttachesToContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	// The logging middleware reads c.Errors after the handler returns.
	respondError(c, chaterrors.ErrForbidden)
	require.Len(t, c.Errors, 1)
	assert.ErrorIs(t, c.Errors.Last().Err, chaterrors.ErrForbidden)
}

func TestRespondErrorMapsWrappedErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	wrapped := fmt.Errorf("%w: removing links for room: connection refused", chaterrors.ErrDependency)
	respondError(c, wrapped)
	assert.Equal(t, http.StatusBadGateway, recorder.Code)
}

func TestRespondErrorMasksInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	respondError(c, errors.New("pq: password authentication failed"))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "password")
}
