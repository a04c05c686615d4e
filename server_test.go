package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*server, http.Handler) {
	t.Helper()
	return newTestServerWith(t, serverOptions{})
}

func newTestServerWith(t *testing.T, opts serverOptions) (*server, http.Handler) {
	t.Helper()

	_, dbPath := newTestDB(t)
	s := newServer(dbPath, newTestManipulator(t), opts)
	return s, s.routes()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v), rec.Body.String())
}

func TestAPI_Health(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp healthResp
	decode(t, rec, &resp)
	assert.True(t, resp.Ok)
	assert.Equal(t, version, resp.Version)
}

func TestAPI_Geotag(t *testing.T) {
	_, h := newTestServer(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	writeJPEG(t, src, nil)

	body, err := json.Marshal(map[string]interface{}{"src": src, "dst": dst, "lat": -33.25, "lon": 151.5, "alt": 10})
	require.NoError(t, err)

	rec := do(t, h, http.MethodPost, "/api/geotag", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var row GeotagRow
	decode(t, rec, &row)
	assert.True(t, row.OK)
	assert.NotZero(t, row.ID)
	assert.FileExists(t, dst)

	rec = do(t, h, http.MethodGet, "/api/inspect?path="+url.QueryEscape(dst), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ed ExifData
	decode(t, rec, &ed)
	assert.True(t, ed.HasLocation)
	assert.InDelta(t, -33.25, ed.Latitude, 1e-9)
	assert.InDelta(t, 151.5, ed.Longitude, 1e-9)
	assert.Equal(t, "-33°-15'0\" S", ed.LatitudeDMS)
	assert.Equal(t, 1, ed.Orientation)

	rec = do(t, h, http.MethodGet, "/api/geotags", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []GeotagRow
	decode(t, rec, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, dst, rows[0].Dst)

	rec = do(t, h, http.MethodGet, "/api/geotags/"+strconv.FormatInt(rows[0].ID, 10), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/geotags/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/geotags/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_GeotagErrors(t *testing.T) {
	_, h := newTestServer(t)
	dir := t.TempDir()

	rec := do(t, h, http.MethodPost, "/api/geotag", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/geotag", `{"src":"a.jpg","dst":"b.jpg"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "lat and lon are required")

	body, err := json.Marshal(map[string]interface{}{"src": filepath.Join(dir, "missing.jpg"), "dst": filepath.Join(dir, "dst.jpg"), "lat": 0, "lon": 0})
	require.NoError(t, err)
	rec = do(t, h, http.MethodPost, "/api/geotag", string(body))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var row GeotagRow
	decode(t, rec, &row)
	assert.False(t, row.OK)
	assert.Equal(t, "open", row.ErrorKind)
}

func TestAPI_DateTime(t *testing.T) {
	_, h := newTestServer(t)
	path := filepath.Join(t.TempDir(), "taken.jpg")
	writeJPEG(t, path, takenTags("2024:01:15 13:45:30", "5"))

	rec := do(t, h, http.MethodGet, "/api/datetime?utc=true&path="+url.QueryEscape(path), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var full ReadingRow
	decode(t, rec, &full)
	assert.True(t, full.Valid)
	assert.Equal(t, modeFull, full.Mode)
	assert.Equal(t, "2024-01-15T13:45:30.05Z", full.TakenAt)

	rec = do(t, h, http.MethodGet, "/api/datetime?utc=true&fast=1&path="+url.QueryEscape(path), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fast ReadingRow
	decode(t, rec, &fast)
	assert.Equal(t, modeFast, fast.Mode)
	assert.Equal(t, "2024-01-15T15:45:30.5+02:00", fast.TakenAt)

	rec = do(t, h, http.MethodGet, "/api/datetime?fast=yes&path="+url.QueryEscape(path), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/datetime", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/readings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []ReadingRow
	decode(t, rec, &rows)
	assert.Len(t, rows, 2)

	rec = do(t, h, http.MethodPost, "/api/clear", "{}")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/readings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &rows)
	assert.Empty(t, rows)
}

func TestAPI_Inspect(t *testing.T) {
	_, h := newTestServer(t)
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.jpg")
	writeJPEG(t, plain, nil)

	rec := do(t, h, http.MethodGet, "/api/inspect?path="+url.QueryEscape(filepath.Join(dir, "missing.jpg")), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/inspect?path="+url.QueryEscape(plain), "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/inspect", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Scan(t *testing.T) {
	s, h := newTestServer(t)
	dir := t.TempDir()
	writeJPEG(t, filepath.Join(dir, "a.jpg"), takenTags("2024:01:15 13:45:30", "5"))
	writeJPEG(t, filepath.Join(dir, "b.jpg"), takenTags("2024:01:16 13:45:30", "5"))

	rec := do(t, h, http.MethodPost, "/api/scan", `{"dir":"`+filepath.Join(dir, "missing")+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, err := json.Marshal(scanReq{Dir: dir, Fast: true, Workers: 1})
	require.NoError(t, err)
	rec = do(t, h, http.MethodPost, "/api/scan", string(body))
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		return s.scans.Snapshot().Status == "completed"
	}, 5*time.Second, 10*time.Millisecond)

	rec = do(t, h, http.MethodGet, "/api/scan/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st ScanStatus
	decode(t, rec, &st)
	assert.EqualValues(t, 2, st.Processed)
	assert.EqualValues(t, 2, st.Valid)
}

func TestAPI_ScanConflict(t *testing.T) {
	s, h := newTestServer(t)
	require.True(t, s.scans.start())

	body, err := json.Marshal(scanReq{Dir: t.TempDir()})
	require.NoError(t, err)
	rec := do(t, h, http.MethodPost, "/api/scan", string(body))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_CORS(t *testing.T) {
	get := func(h http.Handler, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	_, h := newTestServer(t)
	rec := get(h, "http://example.com")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	_, h = newTestServerWith(t, serverOptions{Origins: []string{"http://localhost:3000"}})
	rec = get(h, "http://localhost:3000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = get(h, "http://example.com")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAPI_RequiresJSONBody(t *testing.T) {
	_, h := newTestServer(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	writeJPEG(t, src, nil)

	body, err := json.Marshal(map[string]interface{}{"src": src, "dst": dst, "lat": 1, "lon": 2})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/geotag", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.NoFileExists(t, dst)

	rec = do(t, h, http.MethodPost, "/api/clear", "")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestAPI_ConfinedToRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	_, h := newTestServerWith(t, serverOptions{Root: root})

	src := filepath.Join(root, "src.jpg")
	writeJPEG(t, src, takenTags("2024:01:15 13:45:30", "5"))
	foreign := filepath.Join(outside, "foreign.jpg")
	writeJPEG(t, foreign, nil)

	geotag := func(src, dst string) *httptest.ResponseRecorder {
		body, err := json.Marshal(map[string]interface{}{"src": src, "dst": dst, "lat": 1, "lon": 2})
		require.NoError(t, err)
		return do(t, h, http.MethodPost, "/api/geotag", string(body))
	}

	victim := filepath.Join(outside, "victim.jpg")
	rec := geotag(src, victim)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoFileExists(t, victim)

	rec = geotag(src, filepath.Join(root, "..", filepath.Base(outside), "victim.jpg"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoFileExists(t, victim)

	rec = geotag(foreign, filepath.Join(root, "dst.jpg"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = geotag(src, filepath.Join(root, "sub", "..", "dst.jpg"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.FileExists(t, filepath.Join(root, "dst.jpg"))

	rec = do(t, h, http.MethodGet, "/api/datetime?path="+url.QueryEscape(foreign), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/inspect?path="+url.QueryEscape(foreign), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body, err := json.Marshal(scanReq{Dir: outside})
	require.NoError(t, err)
	rec = do(t, h, http.MethodPost, "/api/scan", string(body))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestParsePage(t *testing.T) {
	testCases := []struct {
		query         string
		offset, limit int64
	}{
		{query: "", offset: 0, limit: 50},
		{query: "offset=10&limit=5", offset: 10, limit: 5},
		{query: "offset=-1&limit=501", offset: 0, limit: 50},
		{query: "offset=x&limit=y", offset: 0, limit: 50},
	}
	for _, tc := range testCases {
		req := httptest.NewRequest(http.MethodGet, "/api/readings?"+tc.query, nil)
		offset, limit := parsePage(req)
		assert.Equal(t, tc.offset, offset, tc.query)
		assert.Equal(t, tc.limit, limit, tc.query)
	}
}
