package postgrest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/store"
)

type captured struct {
	method string
	path   string
	query  map[string]string
	header http.Header
	body   string
}

func setup(t *testing.T, status int, body string) (*Store, *captured) {
	t.Helper()
	var last captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		last = captured{method: r.Method, path: r.URL.Path, query: map[string]string{}, header: r.Header, body: string(raw)}
		for k := range r.URL.Query() {
			last.query[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	st, err := NewStore(core.PostgRESTConfig{URL: srv.URL + "/rest/v1/", APIKey: "anon-key", Schema: "public"}, 5*time.Second)
	require.NoError(t, err)
	return st, &last
}

func TestStore_Select(t *testing.T) {
	st, req := setup(t, http.StatusOK, `[{"id": 1, "name": "Alice Smith", "cgpa": 3.8}]`)

	rows, err := st.Select(context.Background(), "students", []core.DBOrdering{{Field: "id", Ascending: true}, {Field: "name"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(1), rows[0]["id"])
	assert.Equal(t, 3.8, rows[0]["cgpa"])

	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "/rest/v1/students", req.path)
	assert.Equal(t, "*", req.query["select"])
	assert.Equal(t, "id.asc,name.desc", req.query["order"])
	assert.Equal(t, "anon-key", req.header.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", req.header.Get("Authorization"))
	assert.Equal(t, "public", req.header.Get("Accept-Profile"))
}

func TestStore_Insert(t *testing.T) {
	st, req := setup(t, http.StatusCreated, "")

	err := st.Insert(context.Background(), "ml_predictions", core.Record{"student_id": "1", "risk_factors": []interface{}{"attendance"}})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "return=minimal", req.header.Get("Prefer"))
	assert.Equal(t, "public", req.header.Get("Content-Profile"))

	var sent []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(req.body), &sent))
	require.Len(t, sent, 1)
	assert.Equal(t, "1", sent[0]["student_id"])
}

func TestStore_UpdateDelete(t *testing.T) {
	st, req := setup(t, http.StatusOK, `[{"course_code": "CS101"}]`)
	ctx := context.Background()

	require.NoError(t, st.Update(ctx, "courses", "course_code", "CS101", core.Record{"semester": float64(2)}))
	assert.Equal(t, http.MethodPatch, req.method)
	assert.Equal(t, "eq.CS101", req.query["course_code"])
	assert.JSONEq(t, `{"semester": 2}`, req.body)

	require.NoError(t, st.Delete(ctx, "students", "id", float64(3)))
	assert.Equal(t, http.MethodDelete, req.method)
	assert.Equal(t, "eq.3", req.query["id"])
	assert.Equal(t, "return=representation", req.header.Get("Prefer"))
}

func TestStore_errors(t *testing.T) {
	ctx := context.Background()

	st, _ := setup(t, http.StatusOK, `[]`)
	assert.True(t, store.IsNoRows(st.Delete(ctx, "students", "id", "404")))

	st, _ = setup(t, http.StatusNotFound, `{"code": "42P01", "message": "relation \"public.lockers\" does not exist", "details": null, "hint": null}`)
	_, err := st.Select(ctx, "lockers", nil)
	var qErr *store.QueryError
	require.ErrorAs(t, err, &qErr)
	assert.Equal(t, "42P01", qErr.Code)
	assert.False(t, store.IsConnection(err))

	st, _ = setup(t, http.StatusServiceUnavailable, `upstream unavailable`)
	_, err = st.Select(ctx, "students", nil)
	assert.True(t, store.IsConnection(err))

	// nothing listens there anymore
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	st, err = NewStore(core.PostgRESTConfig{URL: srv.URL}, time.Second)
	require.NoError(t, err)
	_, err = st.Select(ctx, "students", nil)
	assert.True(t, store.IsConnection(err))
}

func TestStore_requestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	st, err := NewStore(core.PostgRESTConfig{URL: srv.URL}, 50*time.Millisecond)
	require.NoError(t, err)

	// a slow table is not a broken connection
	_, err = st.Select(context.Background(), "grades", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, store.IsConnection(err))
}
