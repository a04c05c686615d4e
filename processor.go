package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"exifManipulator/manipulator"
)

const (
	modeFull = "full"
	modeFast = "fast"
)

// ScanConfig holds configuration for a directory scan
type ScanConfig struct {
	Dir       string
	Fast      bool
	AssumeUTC bool
	Workers   int
}

// ScanStatus is a point-in-time view of a scan.
type ScanStatus struct {
	Status      string    `json:"status"`      // idle, scanning, completed, error
	TotalFiles  int64     `json:"totalFiles"`  // JPEGs found so far
	Processed   int64     `json:"processed"`   // JPEGs read
	Valid       int64     `json:"valid"`       // readings with a date
	Invalid     int64     `json:"invalid"`     // readings without a date and without an error
	Failed      int64     `json:"failed"`      // readings that returned an error
	StartTime   time.Time `json:"startTime"`   // when the scan started
	EndTime     time.Time `json:"endTime"`     // when the scan ended
	CurrentFile string    `json:"currentFile"` // last file handed to a worker
	Error       string    `json:"error"`       // walk or journal error if status is error
}

var errScanRunning = errors.New("a scan is already running")

// scanTracker guards the ScanStatus shared between workers and the API.
type scanTracker struct {
	mu     sync.Mutex
	status ScanStatus
}

func newScanTracker() *scanTracker {
	return &scanTracker{status: ScanStatus{Status: "idle"}}
}

func (t *scanTracker) Snapshot() ScanStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// start resets the counters. It reports false if a scan is already running.
func (t *scanTracker) start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Status == "scanning" {
		return false
	}
	t.status = ScanStatus{Status: "scanning", StartTime: time.Now()}
	return true
}

func (t *scanTracker) found(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.TotalFiles++
	t.status.CurrentFile = path
}

func (t *scanTracker) record(r ReadingRow) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Processed++
	switch {
	case r.Error != "":
		t.status.Failed++
	case r.Valid:
		t.status.Valid++
	default:
		t.status.Invalid++
	}
}

func (t *scanTracker) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.EndTime = time.Now()
	t.status.CurrentFile = ""
	if err != nil {
		t.status.Status = "error"
		t.status.Error = err.Error()
		return
	}
	t.status.Status = "completed"
}

// readTaken reads DateTimeDigitized with the chosen decoder and turns the
// outcome into a journal row.
func readTaken(m *manipulator.Manipulator, path string, fast, assumeUTC bool) ReadingRow {
	read := m.DateTimeDigitized
	mode := modeFull
	if fast {
		read = m.DateTimeDigitizedFast
		mode = modeFast
	}

	taken, ok, err := read(path, assumeUTC)
	r := ReadingRow{Path: path, Mode: mode, AssumeUTC: assumeUTC, Valid: ok}
	if ok {
		r.TakenAt = taken.Format(time.RFC3339Nano)
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// recordGeotag writes GPS into dst and journals the attempt. A thumbnail of
// the output is rendered when thumbSize is positive. The returned error is the
// WriteGPS failure, if any; journal failures are logged.
func recordGeotag(db *DB, m *manipulator.Manipulator, src, dst string, lat, lon, alt float64, thumbSize int) (GeotagRow, error) {
	row := GeotagRow{Src: src, Dst: dst, Lat: lat, Lon: lon, Alt: alt}

	gpsErr := m.WriteGPS(src, dst, lat, lon, alt)
	if gpsErr != nil {
		row.ErrorKind = manipulator.KindOf(gpsErr).String()
		row.Error = gpsErr.Error()
	} else {
		row.OK = true
		row.Metadata = BuildMetadataJSON(dst)
		if thumbSize > 0 {
			thumb, err := processThumbnail(dst, thumbSize)
			if err != nil {
				// Don't fail the geotag if thumbnail generation fails
				logrus.WithError(err).WithField("dst", dst).Warn("thumbnail generation failed")
			}
			row.ThumbnailPath = thumb
		}
	}

	if db != nil {
		id, err := db.insertGeotag(row)
		if err != nil {
			logrus.WithError(err).WithField("dst", dst).Error("failed to journal geotag")
		}
		row.ID = id
	}
	return row, gpsErr
}

func walkJPEGs(dir string, tracker *scanTracker, paths chan<- string) error {
	logrus.WithField("dir", dir).Info("walking files")
	return filepath.Walk(dir,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if path != dir && strings.HasPrefix(info.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !isJPEGExt(strings.ToLower(filepath.Ext(path))) {
				return nil
			}
			tracker.found(path)
			paths <- path
			return nil
		})
}

// scanDir reads DateTimeDigitized of every JPEG under cfg.Dir on a pool of
// workers and journals each reading. The tracker must already be started; it
// is finished before scanDir returns.
func scanDir(db *DB, m *manipulator.Manipulator, cfg ScanConfig, tracker *scanTracker) error {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	paths := make(chan string, 128)
	readings := make(chan ReadingRow, 128)
	// Channel to receive error from the walk goroutine
	errChan := make(chan error, 1)

	go func() {
		defer close(paths)
		if err := walkJPEGs(cfg.Dir, tracker, paths); err != nil {
			errChan <- fmt.Errorf("failed to walk %s: %w", cfg.Dir, err)
			return
		}
		errChan <- nil
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				readings <- readTaken(m, path, cfg.Fast, cfg.AssumeUTC)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(readings)
	}()

	// The journal has a single connection so rows are written from here only.
	var journalErr error
	for r := range readings {
		tracker.record(r)
		if _, err := db.insertReading(r); err != nil && journalErr == nil {
			journalErr = fmt.Errorf("failed to journal reading for %s: %w", r.Path, err)
		}
	}

	err := <-errChan
	if err == nil {
		err = journalErr
	}
	tracker.finish(err)
	return err
}
