package device

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"domogateway/pkg/apis"
	"domogateway/pkg/runtime"
	"domogateway/pkg/runtime/constant"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dobissBody = `{
  "name": "living",
  "deviceCode": "dobiss-1",
  "deviceType": "dobiss",
  "host": "127.0.0.1",
  "pollingInterval": 1,
  "modules": [{"kind": "relay", "address": 1}]
}`

func newTestRouter(t *testing.T, f *brokerFactory) (*gin.Engine, *Manager) {
	gin.SetMode(gin.TestMode)
	m, _ := newTestManager(t, f)
	r := gin.New()
	InstallHandler(r.Group("/api/v1"), m)
	return r, m
}

func do(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createTestDevice(t *testing.T, r http.Handler) (string, string) {
	w := do(r, http.MethodPost, "/api/v1/devices", dobissBody, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID      string `json:"id"`
		Version string `json:"eTag"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, created.Version, w.Header().Get(apis.ETag))
	return created.ID, created.Version
}

func TestCreateAndGetDevice(t *testing.T) {
	r, _ := newTestRouter(t, newBrokerFactory())

	id, version := createTestDevice(t, r)

	w := do(r, http.MethodGet, "/api/v1/devices/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, version, w.Header().Get(apis.ETag))
	assert.Contains(t, w.Body.String(), `"collectStatus":"collecting"`)

	w = do(r, http.MethodGet, "/api/v1/devices/"+id+"?exploded=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"modules"`)

	w = do(r, http.MethodGet, "/api/v1/devices", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/devices/unknown", "", nil).Code)
}

func TestCreateDeviceRejectsInvalidBody(t *testing.T) {
	r, _ := newTestRouter(t, newBrokerFactory())

	w := do(r, http.MethodPost, "/api/v1/devices", `{"deviceType":"knx"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/devices", `{"deviceType":"dobiss","name":"living"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/devices", `{`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatchDevice(t *testing.T) {
	r, _ := newTestRouter(t, newBrokerFactory())
	id, version := createTestDevice(t, r)

	patch := `{"name":"kitchen"}`
	w := do(r, http.MethodPatch, "/api/v1/devices/"+id, patch, map[string]string{"Content-Type": "application/merge-patch+json"})
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)

	w = do(r, http.MethodPatch, "/api/v1/devices/"+id, patch, map[string]string{"Content-Type": "text/plain", apis.IfMatch: version})
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = do(r, http.MethodPatch, "/api/v1/devices/"+id, patch, map[string]string{"Content-Type": "application/merge-patch+json", apis.IfMatch: "stale"})
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	w = do(r, http.MethodPatch, "/api/v1/devices/"+id, patch, map[string]string{"Content-Type": "application/merge-patch+json", apis.IfMatch: version})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"name":"kitchen"`)
	assert.NotEqual(t, version, w.Header().Get(apis.ETag))

	jsonPatch := `[{"op":"replace","path":"/pollingInterval","value":0}]`
	w = do(r, http.MethodPatch, "/api/v1/devices/"+id, jsonPatch, map[string]string{"Content-Type": "application/json-patch+json", apis.IfMatch: w.Header().Get(apis.ETag)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteDevice(t *testing.T) {
	r, _ := newTestRouter(t, newBrokerFactory())
	id, version := createTestDevice(t, r)

	assert.Equal(t, http.StatusPreconditionRequired, do(r, http.MethodDelete, "/api/v1/devices/"+id, "", nil).Code)
	assert.Equal(t, http.StatusPreconditionFailed, do(r, http.MethodDelete, "/api/v1/devices/"+id, "", map[string]string{apis.IfMatch: "stale"}).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/api/v1/devices/"+id, "", map[string]string{apis.IfMatch: version}).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/api/v1/devices/"+id, "", map[string]string{apis.IfMatch: version}).Code)
}

func TestCommandDevice(t *testing.T) {
	f := newBrokerFactory()
	f.template = &fakeBroker{
		results: map[string]runtime.CommandResult{
			"relay01_channel9": {ChannelId: "relay01_channel9", Status: runtime.CommandRejected, Err: constant.ErrChannelNotFound},
			"relay01_channel2": {ChannelId: "relay01_channel2", Status: runtime.CommandFailed, Err: &constant.BusyError{Endpoint: "127.0.0.1:1001"}},
		},
		snapshot: []runtime.ChannelValue{{ChannelId: "relay01_channel1", Value: 1}},
	}
	r, _ := newTestRouter(t, f)
	id, _ := createTestDevice(t, r)

	w := do(r, http.MethodPut, "/api/v1/devices/"+id+"/commands", `[{"relay01_channel1":"ON"}]`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"applied"`)

	w = do(r, http.MethodPut, "/api/v1/devices/"+id+"/commands", `[{"relay01_channel2":"ON"}]`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(r, http.MethodPut, "/api/v1/devices/"+id+"/commands", `[{"relay01_channel2":"ON"},{"relay01_channel9":"ON"}]`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"rejected"`)

	w = do(r, http.MethodPut, "/api/v1/devices/"+id+"/commands", `{"relay01_channel1":"ON"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, "/api/v1/devices/unknown/commands", `[{"relay01_channel1":"ON"}]`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/v1/devices/"+id+"/channels", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"channelId":"relay01_channel1"`)
}

func TestSwitchDeviceStatusHandler(t *testing.T) {
	r, _ := newTestRouter(t, newBrokerFactory())
	id, _ := createTestDevice(t, r)

	assert.Equal(t, http.StatusAccepted, do(r, http.MethodPut, "/api/v1/devices/"+id+"/restart", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/api/v1/devices/"+id+"/pause", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/api/v1/devices/unknown/stop", "", nil).Code)
}

func TestCommandStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, commandStatusCode(nil))
	assert.Equal(t, http.StatusBadGateway, commandStatusCode([]runtime.CommandResult{
		{Status: runtime.CommandApplied},
		{Status: runtime.CommandFailed, Err: constant.ErrTransport},
	}))
	assert.Equal(t, http.StatusServiceUnavailable, commandStatusCode([]runtime.CommandResult{
		{Status: runtime.CommandFailed, Err: constant.ErrTransport},
		{Status: runtime.CommandFailed, Err: constant.ErrBusy},
	}))
}
