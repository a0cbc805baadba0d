package response

import (
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	type query struct {
		Limit     int    `validate:"min=1,max=100"`
		Offset    int    `validate:"min=0"`
		PaymentID string `validate:"required,uuid"`
	}

	err := validator.New().Struct(query{Limit: 500, Offset: -1})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	resp := ValidationError(verrs)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Limit must be at most 100")
	assert.Contains(t, resp.Error, "field Offset must be at least 0")
	assert.Contains(t, resp.Error, "field PaymentID is a required field")
}

func TestStatusOKWithData(t *testing.T) {
	resp := StatusOKWithData(map[string]any{"count": 1})
	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.Equal(t, map[string]any{"count": 1}, resp.Data)
}
