package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"

	"greenmetrics/adapters/excel"
	"greenmetrics/adapters/influx"
	"greenmetrics/adapters/postgres"
	"greenmetrics/domain/comparison"
	"greenmetrics/internal"
	"greenmetrics/internal/config"
	"greenmetrics/internal/errors"
	"greenmetrics/internal/report"
	"greenmetrics/ports"
)

func (o *rootOptions) loadConfig() (*config.Config, *internal.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.envFile != "" {
		cfg, err = config.LoadFile(o.envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, err
	}
	return cfg, internal.NewLoggerTo(os.Stderr, cfg.Log.Level), nil
}

// connect loads the configuration and opens the database
func (o *rootOptions) connect(ctx context.Context) (*config.Config, *internal.Logger, *sqlx.DB, error) {
	cfg, logger, err := o.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, db, nil
}

// measurementSource reads samples from InfluxDB when it is configured and
// from the measurements table otherwise. Phases always come from Postgres.
func measurementSource(ctx context.Context, cfg *config.Config, db *sqlx.DB, logger *internal.Logger) (ports.MeasurementSource, func(), error) {
	if !cfg.Influx.Enabled() {
		return postgres.NewMeasurementSource(db), func() {}, nil
	}
	src := influx.NewMeasurementSource(cfg.Influx, postgres.NewPhaseLister(db))
	if err := src.Ping(ctx); err != nil {
		src.Close()
		return nil, nil, errors.ExternalServiceError("influxdb", err)
	}
	logger.Debug("reading samples from InfluxDB bucket %s", cfg.Influx.Bucket)
	return src, src.Close, nil
}

func sampleWriter(ctx context.Context, cfg *config.Config, db *sqlx.DB) (ports.SampleWriter, func(), error) {
	if !cfg.Influx.Enabled() {
		return postgres.NewSampleWriter(db), func() {}, nil
	}
	src := influx.NewMeasurementSource(cfg.Influx, postgres.NewPhaseLister(db))
	if err := src.Ping(ctx); err != nil {
		src.Close()
		return nil, nil, errors.ExternalServiceError("influxdb", err)
	}
	return src, src.Close, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reportOutputs are the optional files a comparison is rendered to
type reportOutputs struct {
	xlsx     string
	markdown string
	html     string
}

// writeReport prints the report as JSON to w and renders the requested
// files
func writeReport(w io.Writer, r *comparison.Report, out reportOutputs) error {
	if err := writeJSON(w, r); err != nil {
		return err
	}

	if out.xlsx != "" {
		f, err := os.Create(out.xlsx)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out.xlsx, err)
		}
		if err := excel.WriteReport(f, r); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	if out.markdown != "" {
		md, err := report.Markdown(r)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out.markdown, []byte(md), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out.markdown, err)
		}
	}
	if out.html != "" {
		page, err := report.HTML(r)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out.html, page, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out.html, err)
		}
	}
	return nil
}
