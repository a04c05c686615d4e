package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"exifManipulator/manipulator"
)

type apiError struct {
	Error string `json:"error"`
}

type healthResp struct {
	Ok        bool      `json:"ok"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

type geotagReq struct {
	Src       string   `json:"src"`
	Dst       string   `json:"dst"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Alt       float64  `json:"alt"`
	Thumbnail int      `json:"thumbnail"`
}

type scanReq struct {
	Dir     string `json:"dir"`
	Fast    bool   `json:"fast"`
	UTC     bool   `json:"utc"`
	Workers int    `json:"workers"`
}

type scanResp struct {
	Started bool   `json:"started"`
	Status  string `json:"status"`
}

var errOutsideRoot = errors.New("path is outside the served root")

// serverOptions limits what the API may touch. An empty Root leaves paths
// unrestricted; no Origins disables CORS.
type serverOptions struct {
	Root    string
	Origins []string
}

type server struct {
	dbFile  string
	m       *manipulator.Manipulator
	scans   *scanTracker
	root    string
	origins []string
}

func newServer(dbFile string, m *manipulator.Manipulator, opts serverOptions) *server {
	s := &server{dbFile: dbFile, m: m, scans: newScanTracker(), origins: opts.Origins}
	if opts.Root != "" {
		s.root = filepath.Clean(opts.Root)
	}
	return s
}

func (s *server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(handlers.RecoveryHandler(handlers.RecoveryLogger(logrus.StandardLogger())))
	r.Use(requireJSON)
	r.HandleFunc("/api/health", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/geotag", s.withDB(s.handleGeotag)).Methods(http.MethodPost)
	r.HandleFunc("/api/geotags", s.withDB(handleListGeotags)).Methods(http.MethodGet)
	r.HandleFunc("/api/geotags/{id}", s.withDB(handleGetGeotag)).Methods(http.MethodGet)
	r.HandleFunc("/api/datetime", s.withDB(s.handleDateTime)).Methods(http.MethodGet)
	r.HandleFunc("/api/readings", s.withDB(handleListReadings)).Methods(http.MethodGet)
	r.HandleFunc("/api/inspect", s.handleInspect).Methods(http.MethodGet)
	r.HandleFunc("/api/scan", s.handleScan).Methods(http.MethodPost)
	r.HandleFunc("/api/scan/status", s.handleScanStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/clear", s.withDB(func(w http.ResponseWriter, r *http.Request, db *DB) {
		if err := db.clearDBTables(); err != nil {
			writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
	})).Methods(http.MethodPost)

	if len(s.origins) == 0 {
		return r
	}
	cors := handlers.CORS(
		handlers.AllowedHeaders([]string{"Content-Type", "Accept"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedOrigins(s.origins),
	)
	return cors(r)
}

// requireJSON rejects POSTs that a plain HTML form could send cross-site.
func requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mt != "application/json" {
				writeJSON(w, http.StatusUnsupportedMediaType, apiError{Error: "content type must be application/json"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// confine returns p as an absolute path, or errOutsideRoot when a root is set
// and p does not lie under it.
func (s *server) confine(p string) (string, error) {
	if s.root == "" {
		return p, nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errOutsideRoot, p)
	}
	return abs, nil
}

func (s *server) confineAll(w http.ResponseWriter, paths ...*string) bool {
	for _, p := range paths {
		abs, err := s.confine(*p)
		if err != nil {
			writeJSON(w, http.StatusForbidden, apiError{Error: err.Error()})
			return false
		}
		*p = abs
	}
	return true
}

// httpServer returns the API server for addr. The caller runs and shuts it down.
func (s *server) httpServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResp{Ok: true, Version: version, Timestamp: time.Now()})
}

func (s *server) withDB(next func(http.ResponseWriter, *http.Request, *DB)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		db, err := openAndInitDB(s.dbFile)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
			return
		}
		defer db.Close()
		next(w, r, db)
	}
}

func (s *server) handleGeotag(w http.ResponseWriter, r *http.Request, db *DB) {
	var req geotagReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}
	if req.Src == "" || req.Dst == "" {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "src and dst are required"})
		return
	}
	if req.Lat == nil || req.Lon == nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "lat and lon are required"})
		return
	}
	if !s.confineAll(w, &req.Src, &req.Dst) {
		return
	}

	row, err := recordGeotag(db, s.m, req.Src, req.Dst, *req.Lat, *req.Lon, req.Alt, req.Thumbnail)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, row)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *server) handleDateTime(w http.ResponseWriter, r *http.Request, db *DB) {
	q := r.URL.Query()
	path := q.Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "path is required"})
		return
	}
	utc, err := parseBool(q.Get("utc"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid utc"})
		return
	}
	fast, err := parseBool(q.Get("fast"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid fast"})
		return
	}
	if !s.confineAll(w, &path) {
		return
	}

	row := readTaken(s.m, path, fast, utc)
	id, err := db.insertReading(row)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Error("failed to journal reading")
	}
	row.ID = id
	writeJSON(w, http.StatusOK, row)
}

func (s *server) handleInspect(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "path is required"})
		return
	}
	if !s.confineAll(w, &path) {
		return
	}
	ed, err := ExtractExif(path)
	if errors.Is(err, os.ErrNotExist) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, apiError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ed)
}

func handleListGeotags(w http.ResponseWriter, r *http.Request, db *DB) {
	offset, limit := parsePage(r)
	rows, err := db.listGeotagRows(offset, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func handleGetGeotag(w http.ResponseWriter, r *http.Request, db *DB) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid id"})
		return
	}
	row, err := db.getGeotagByIDRow(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
		return
	}
	if row == nil {
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func handleListReadings(w http.ResponseWriter, r *http.Request, db *DB) {
	offset, limit := parsePage(r)
	rows, err := db.listReadingRows(offset, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}
	if !s.confineAll(w, &req.Dir) {
		return
	}
	if info, err := os.Stat(req.Dir); err != nil || !info.IsDir() {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "dir must be an existing directory"})
		return
	}

	db, err := openAndInitDB(s.dbFile)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
		return
	}
	if !s.scans.start() {
		db.Close()
		writeJSON(w, http.StatusConflict, apiError{Error: errScanRunning.Error()})
		return
	}

	cfg := ScanConfig{Dir: req.Dir, Fast: req.Fast, AssumeUTC: req.UTC, Workers: req.Workers}
	// Run the scan in background (returns immediately)
	go func() {
		defer db.Close()
		if err := scanDir(db, s.m, cfg, s.scans); err != nil {
			logrus.WithError(err).WithField("dir", cfg.Dir).Error("scan failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, scanResp{Started: true, Status: "scanning"})
}

func (s *server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scans.Snapshot())
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

func parsePage(r *http.Request) (int64, int64) {
	q := r.URL.Query()
	var (
		offset int64 = 0
		limit  int64 = 50
	)
	if s := q.Get("offset"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v >= 0 {
			offset = v
		}
	}
	if s := q.Get("limit"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	return offset, limit
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
