package http_common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/naryasomayaj/group-activity-planner/internal/model"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type HTTPCommonUnitSuite struct {
	suite.Suite
}

func (s *HTTPCommonUnitSuite) TestWriteError(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:            "Should map validation to 400",
			err:             fmt.Errorf("%w: name is required", model.ErrValidation),
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "validation failed: name is required",
		},
		{name: "Should map not found to 404", err: model.ErrNotFound, expectedStatus: http.StatusNotFound},
		{name: "Should map permission to 403", err: model.ErrPermissionDenied, expectedStatus: http.StatusForbidden},
		{name: "Should map state conflict to 409", err: model.ErrAlreadyInState, expectedStatus: http.StatusConflict},
		{name: "Should map parse to 422", err: model.ErrParse, expectedStatus: http.StatusUnprocessableEntity},
		{
			name:            "Should hide store failures",
			err:             errors.Join(model.ErrStore, errors.New("connection refused")),
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "internal error",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(rec)

			WriteError(ctx, tc.err)

			assert.Equal(t, tc.expectedStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tc.expectedMessage != "" {
				assert.Equal(t, tc.expectedMessage, body.Message)
			} else {
				assert.NotEmpty(t, body.Message)
			}
		})
	}
}

func (s *HTTPCommonUnitSuite) TestNewGroupDTO(t provider.T) {
	t.Parallel()

	dto := NewGroupDTO(model.Group{ID: "g1", Name: "Crew"})

	assert.Equal(t, "g1", dto.ID)
	assert.NotNil(t, dto.Members)
	assert.NotNil(t, dto.Events)
}

func TestUnitSuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.RunSuite(t, new(HTTPCommonUnitSuite))
}
