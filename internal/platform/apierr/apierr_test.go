package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParameterMessages(t *testing.T) {
	assert.Equal(t, "You must specify a 'reachcode' parameter.", MissingParameter("reachcode").Error())
	assert.Equal(t, "You must specify a 'measure' parameter.", MissingParameter("measure").Error())
	assert.Equal(t, "Illegal reachcode '12a'", InvalidParameter("reachcode", "12a").Error())

	e := InvalidParameter("measure", "abc")
	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.Equal(t, CodeInvalidParameter, e.Code)
	assert.Equal(t, "measure", e.Param)
}

func TestAsUnwrapsOrFallsBack(t *testing.T) {
	wrapped := fmt.Errorf("resolve: %w", ServerError("Server error opening feature file"))
	got := As(wrapped, "unused")
	assert.Equal(t, "Server error opening feature file", got.Error())
	assert.Equal(t, http.StatusInternalServerError, got.Status)

	got = As(errors.New("boom"), "Server error delineating catchment")
	assert.Equal(t, "Server error delineating catchment", got.Error())
	assert.Equal(t, CodeServerError, got.Code)
}
