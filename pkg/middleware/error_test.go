package middleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeForStatus(t *testing.T) {
	cases := []struct {
		status int
		want   ErrorCode
	}{
		{http.StatusOK, ErrorCodeOK},
		{http.StatusCreated, ErrorCodeOK},
		{http.StatusBadRequest, ErrorCodeClientError},
		{http.StatusConflict, ErrorCodeClientError},
		{http.StatusUnauthorized, ErrorCodeLoginRequired},
		{http.StatusForbidden, ErrorCodePermissionDenied},
		{http.StatusNotFound, ErrorCodeNotFound},
		{http.StatusInternalServerError, ErrorCodeInternalError},
		{http.StatusBadGateway, ErrorCodeInternalError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CodeForStatus(tc.status), "status %d", tc.status)
	}
}
