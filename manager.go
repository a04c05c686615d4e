package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"exifManipulator/exifdate"
	"exifManipulator/manipulator"
	"exifManipulator/utils"
)

const version = "0.1.0"

var (
	defaultDBPath = "exifManipulator.db"
	defaultAddr   = "127.0.0.1:7070"
)

type options struct {
	verbose  bool
	dbPath   string
	location string
	snapshot string
}

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// manipulator builds a Manipulator from the persistent flags.
func (o *options) manipulator() (*manipulator.Manipulator, error) {
	loc := time.Local
	if o.location != "" {
		l, err := time.LoadLocation(o.location)
		if err != nil {
			return nil, fmt.Errorf("invalid --location %q: %w", o.location, err)
		}
		loc = l
	}
	return manipulator.New(manipulator.Options{
		Location:     loc,
		SnapshotPath: o.snapshot,
		Logger:       logrus.StandardLogger(),
	}), nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:     "exifManipulator",
		Short:   "Write GPS into JPEG EXIF and read back when a photo was taken",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetOutput(cmd.ErrOrStderr())
			if opts.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
		SilenceUsage: true,
	}

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", defaultDBPath, "path of the sqlite journal")
	rootCmd.PersistentFlags().StringVar(&opts.location, "location", "", "IANA zone used as local time (default: system zone)")

	rootCmd.AddCommand(newGeotagCmd(opts))
	rootCmd.AddCommand(newTakenCmd(opts))
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newScanCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newClearDBCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))

	return rootCmd
}

func newGeotagCmd(opts *options) *cobra.Command {
	var (
		lat, lon, alt float64
		thumbSize     int
		snapshot      string
	)

	cmd := &cobra.Command{
		Use:   "geotag [src] [dst]",
		Short: "Write GPS coordinates into a JPEG",
		Long:  "Store latitude, longitude and altitude as EXIF GPS tags of src, reset Orientation to 1 and write the result to dst.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.snapshot = snapshot
			m, err := opts.manipulator()
			if err != nil {
				return err
			}
			db, err := openAndInitDB(opts.dbPath)
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			defer db.Close()

			row, err := recordGeotag(db, m, args[0], args[1], lat, lon, alt, thumbSize)
			if err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", row.Dst)
			if row.ThumbnailPath != "" {
				cmd.Printf("thumbnail %s\n", row.ThumbnailPath)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in decimal degrees, negative for south")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude in decimal degrees, negative for west")
	cmd.Flags().Float64Var(&alt, "alt", 0, "altitude in metres, negative below sea level")
	cmd.Flags().StringVar(&snapshot, "snapshot", manipulator.DefaultSnapshotPath, "where to save the intermediate copy of a source without exif (empty disables)")
	cmd.Flags().IntVar(&thumbSize, "thumbnail", 0, "also render a thumbnail of dst with this longer side in pixels")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")

	return cmd
}

func newTakenCmd(opts *options) *cobra.Command {
	var (
		utc, fast bool
		truncate  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "taken [path]",
		Short: "Print the DateTimeDigitized of a JPEG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.manipulator()
			if err != nil {
				return err
			}
			db, err := openAndInitDB(opts.dbPath)
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			defer db.Close()

			row := readTaken(m, args[0], fast, utc)
			if _, err := db.insertReading(row); err != nil {
				logrus.WithError(err).Error("failed to journal reading")
			}
			if row.Error != "" {
				return errors.New(row.Error)
			}
			if !row.Valid {
				cmd.Println("invalid")
				return nil
			}

			taken, err := time.Parse(time.RFC3339Nano, row.TakenAt)
			if err != nil {
				return err
			}
			cmd.Println(exifdate.Truncate(taken, truncate).Format(time.RFC3339Nano))
			return nil
		},
	}

	cmd.Flags().BoolVar(&utc, "utc", false, "read the stored wall clock as UTC instead of local time")
	cmd.Flags().BoolVar(&fast, "fast", false, "read the exif stream only, without decoding the image")
	cmd.Flags().DurationVar(&truncate, "truncate", 0, "round the result down to a multiple of this duration")

	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [path]",
		Short: "Print the GPS and date tags of a JPEG as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := ExtractExif(args[0])
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(ed, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(b))
			return nil
		},
	}
}

func newScanCmd(opts *options) *cobra.Command {
	var cfg ScanConfig

	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "Read DateTimeDigitized of every JPEG under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.manipulator()
			if err != nil {
				return err
			}
			db, err := openAndInitDB(opts.dbPath)
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			defer db.Close()

			cfg.Dir = args[0]
			tracker := newScanTracker()
			tracker.start()
			if err := scanDir(db, m, cfg, tracker); err != nil {
				return err
			}

			st := tracker.Snapshot()
			cmd.Printf("scanned %d files: %d valid, %d invalid, %d failed\n", st.Processed, st.Valid, st.Invalid, st.Failed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&cfg.Fast, "fast", false, "use the exif stream reader")
	cmd.Flags().BoolVar(&cfg.AssumeUTC, "utc", false, "read stored wall clocks as UTC")
	cmd.Flags().IntVar(&cfg.Workers, "workers", 0, "number of concurrent readers (default: number of CPUs)")

	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	var offset, limit int64

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print journalled geotags and readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openAndInitDB(opts.dbPath)
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			defer db.Close()

			geotags, err := db.listGeotagRows(offset, limit)
			if err != nil {
				return err
			}
			for _, g := range geotags {
				status := "ok"
				if !g.OK {
					status = "failed (" + g.ErrorKind + "): " + g.Error
				}
				cmd.Printf("geotag  %s %s -> %s %g,%g,%g %s\n", g.CreatedAt, g.Src, g.Dst, g.Lat, g.Lon, g.Alt, status)
			}

			readings, err := db.listReadingRows(offset, limit)
			if err != nil {
				return err
			}
			for _, r := range readings {
				result := r.TakenAt
				switch {
				case r.Error != "":
					result = "error: " + r.Error
				case !r.Valid:
					result = "invalid"
				}
				cmd.Printf("reading %s %s [%s utc=%t] %s\n", r.CreatedAt, r.Path, r.Mode, r.AssumeUTC, result)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", 0, "rows to skip")
	cmd.Flags().Int64Var(&limit, "limit", 50, "maximum rows per table")

	return cmd
}

func newClearDBCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-db",
		Short: "Delete all records from the geotags and readings tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openAndInitDB(opts.dbPath)
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			defer db.Close()
			if err := db.clearDBTables(); err != nil {
				return fmt.Errorf("failed to clear journal: %w", err)
			}
			cmd.Println("Cleared DB tables: geotags, readings")
			return nil
		},
	}
}

func newServeCmd(opts *options) *cobra.Command {
	var (
		addr, snapshot, root string
		origins              []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server and wait for requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.snapshot = snapshot
			m, err := opts.manipulator()
			if err != nil {
				return err
			}
			if root != "" {
				if root, err = filepath.Abs(root); err != nil {
					return fmt.Errorf("invalid --root: %w", err)
				}
			}
			srv := newServer(opts.dbPath, m, serverOptions{Root: root, Origins: origins}).httpServer(addr)

			errChan := make(chan error, 1)
			go func() {
				logrus.WithFields(logrus.Fields{"addr": addr, "root": root}).Info("Serving HTTP API")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errChan <- err
				}
				close(errChan)
			}()

			go utils.Quit("exifManipulator API", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					logrus.WithError(err).Error("server shutdown")
				}
			})

			return <-errChan
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "where POST /api/geotag saves the intermediate copy of a source without exif (empty disables)")
	cmd.Flags().StringVar(&root, "root", ".", "directory the API may read and write under (empty allows any path)")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "origin allowed to call the API from a browser (repeatable; none disables CORS)")

	return cmd
}
