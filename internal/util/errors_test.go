package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: need 3 columns", ErrMalformedInput), http.StatusBadRequest},
		{ErrEmptyInput, http.StatusBadRequest},
		{fmt.Errorf("%w: contest is Finished", ErrPreconditionFailed), http.StatusBadRequest},
		{fmt.Errorf("%w: %w", ErrPreconditionFailed, ErrPermissionDenied), http.StatusForbidden},
		{fmt.Errorf("%w: timeout", ErrSyncFailure), http.StatusBadGateway},
		{ErrUploadFailure, http.StatusBadGateway},
		{ErrUploadInFlight, http.StatusConflict},
		{ErrUsernameExists, http.StatusConflict},
		{fmt.Errorf("register: %w", ErrTeamNameExists), http.StatusConflict},
		{ErrTaskNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(c.err), c.err.Error())
	}
}
