package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionHandlerReportsBuildInfo(t *testing.T) {
	original := CurrentBuildInfo()
	t.Cleanup(func() { SetBuildInfo(original) })

	SetBuildInfo(BuildInfo{Version: "1.2.3", Commit: "abcd123", BuildDate: "2026-10-01T12:00:00Z"})

	rec := httptest.NewRecorder()
	VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "domaincheck", resp.App.Name)
	assert.Equal(t, "1.2.3", resp.App.Version)
	assert.Equal(t, "abcd123", resp.App.Commit)
	assert.NotEmpty(t, resp.Dependencies.Gofulmen)
	assert.NotEmpty(t, resp.Dependencies.Crucible)
}

func TestSetBuildInfoKeepsUnsetFields(t *testing.T) {
	original := CurrentBuildInfo()
	t.Cleanup(func() { SetBuildInfo(original) })

	SetBuildInfo(BuildInfo{Version: "2.0.0", Commit: "feedbee"})
	SetBuildInfo(BuildInfo{Version: "2.0.1"})

	info := CurrentBuildInfo()
	assert.Equal(t, "2.0.1", info.Version)
	assert.Equal(t, "feedbee", info.Commit)
}
