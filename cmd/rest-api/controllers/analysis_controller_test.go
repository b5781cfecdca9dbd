package controllers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osuguard/osuguard/cmd/rest-api/controllers"
	"github.com/osuguard/osuguard/pkg/app/guard"
	"github.com/osuguard/osuguard/pkg/domain/loader"
	"github.com/osuguard/osuguard/pkg/infra/osr"
)

func newController() *controllers.AnalysisController {
	cg := guard.New(loader.New(nil, nil, osr.NewParser()), false)
	return controllers.NewAnalysisController(cg)
}

func multipartBody(t *testing.T, fields map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for field, content := range fields {
		part, err := writer.CreateFormFile(field, field+".osr")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHealthEndpoint(t *testing.T) {
	recorder := httptest.NewRecorder()
	controllers.NewHealthController().Health(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status": "ok"}`, recorder.Body.String())
}

func TestSimilarity_RequiresBothReplays(t *testing.T) {
	controller := newController()

	body, contentType := multipartBody(t, map[string][]byte{"replay1": []byte("not an osr")})
	req := httptest.NewRequest(http.MethodPost, "/analysis/similarity", body)
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()

	controller.Similarity(recorder, req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "replay2")
}

func TestSimilarity_RejectsNonMultipart(t *testing.T) {
	controller := newController()
	req := httptest.NewRequest(http.MethodPost, "/analysis/similarity", bytes.NewBufferString("{}"))
	recorder := httptest.NewRecorder()

	controller.Similarity(recorder, req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSnaps_RejectsMalformedMaxAngle(t *testing.T) {
	controller := newController()
	body, contentType := multipartBody(t, map[string][]byte{"replay": []byte("junk")})
	req := httptest.NewRequest(http.MethodPost, "/analysis/snaps?max_angle=steep", body)
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()

	controller.Snaps(recorder, req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "max_angle")
}
