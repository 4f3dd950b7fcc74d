package utils

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatFileSize(0))
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1023 B", FormatFileSize(1023))
	assert.Equal(t, "1.0 KB", FormatFileSize(1024))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "1.0 MB", FormatFileSize(1024*1024))
	assert.Equal(t, "2.5 MB", FormatFileSize(5*1024*1024/2))
}

func TestWriteErrorResponse(t *testing.T) {
	cases := []struct {
		code      int
		errorType string
	}{
		{404, "not_found"},
		{400, "validation"},
		{409, "validation"},
		{500, "internal"},
	}

	for _, c := range cases {
		w := httptest.NewRecorder()
		WriteErrorResponse(w, errors.New("something went wrong"), c.code)

		assert.Equal(t, c.code, w.Code)

		var body ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "something went wrong", body.Message)
		assert.Equal(t, c.errorType, body.ErrorType)
	}
}
