package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/eduadmin/apps/api/echo"
	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/forecast"
	"github.com/trezcool/eduadmin/core/tablesync"
	"github.com/trezcool/eduadmin/tests"
)

type fixture struct {
	app    *Server
	engine *tablesync.Engine
	store  *testutil.FakeStore
	gen    *testutil.FakeGenerator
}

func setup(t *testing.T) *fixture {
	t.Helper()
	st := testutil.NewFakeStore(true)
	engine := tablesync.NewEngine(st, core.NopLogger{}, 0)
	_, err := engine.RefreshAll(context.Background())
	require.NoError(t, err)

	gen := &testutil.FakeGenerator{Response: testutil.ValidForecast}
	svc := forecast.NewService(engine, forecast.NewClient(gen), forecast.NewPersistence(engine), core.NopLogger{})

	app := NewServer(ServerDeps{
		Conf:           &core.Config{AppName: "EduAdmin", TestMode: true},
		Logger:         core.NopLogger{},
		Engine:         engine,
		Forecasts:      svc,
		DisableReqLogs: true,
	})
	return &fixture{app: app, engine: engine, store: st, gen: gen}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func (f *fixture) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	f.app.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
