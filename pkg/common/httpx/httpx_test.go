package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caresync-health/platform/pkg/common/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailStatusAndMessage(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{errs.New(errs.KindOwnershipConflict, "device ABC123 is registered to another user"), http.StatusConflict, `{"error":"device ABC123 is registered to another user"}`},
		{errs.New(errs.KindSubjectNotFound, "no patient is linked to this device"), http.StatusNotFound, `{"error":"no patient is linked to this device"}`},
		{errs.Storage(errors.New("connection reset by peer")), http.StatusInternalServerError, `{"error":"connection reset by peer"}`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		Fail(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code)
		assert.JSONEq(t, tc.body, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestDecodeBody(t *testing.T) {
	v, err := DecodeBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("  ")))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{}, v)

	v, err = DecodeBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`[{"heart_rate":72.0}]`)))
	require.NoError(t, err)
	items, ok := v.([]interface{})
	require.True(t, ok)
	assert.Equal(t, json.Number("72.0"), items[0].(map[string]interface{})["heart_rate"])

	_, err = DecodeBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"heart_rate":`)))
	assert.Equal(t, errs.KindInvalidPayload, errs.KindOf(err))

	v, err = DecodeBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{\"a\":1}\n\t ")))
	require.NoError(t, err, "trailing whitespace is fine")
	assert.Equal(t, map[string]interface{}{"a": json.Number("1")}, v)
}

func TestDecodeBodyRejectsTrailingData(t *testing.T) {
	for _, body := range []string{`{"a":1} junk`, `{"a":1}{"b":2}`, `[1] [2]`, `{"a":1} }`} {
		_, err := DecodeBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		require.Error(t, err, body)
		assert.Equal(t, errs.KindInvalidPayload, errs.KindOf(err), body)
	}
}
