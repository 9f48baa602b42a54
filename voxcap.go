// Package voxcap records a microphone while turning it into a handful of
// smoothed bar magnitudes for a live visualizer.
package voxcap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/noriah/voxcap/dsp"
	"github.com/noriah/voxcap/input"
	"github.com/noriah/voxcap/metrics"
	"github.com/noriah/voxcap/processor"
	"github.com/noriah/voxcap/recorder"
	"github.com/noriah/voxcap/store"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Output draws the latest magnitudes.
type Output interface {
	Draw(magnitudes []float64, status Status) error
}

// Status describes the running recording.
type Status struct {
	Volume   float64       // decibels of the last chunk
	Duration time.Duration // time since the last voiced chunk
}

func (cfg *Config) processorConfig() processor.Config {
	stage := processor.GateSpectrum
	if cfg.GateBins {
		stage = processor.GateBins
	}

	return processor.Config{
		SampleRate:      cfg.SampleRate,
		Bins:            cfg.Bins,
		AverageDepth:    cfg.AverageDepth,
		LowFreq:         cfg.LowFreq,
		HighFreq:        cfg.HighFreq,
		VoicedThreshold: cfg.VoicedThreshold,
		Gate: dsp.NoiseGate{
			Threshold: cfg.GateThreshold,
			Margin:    cfg.GateMargin,
		},
		GateStage: stage,
	}
}

// Run records until ctx is done or the device stream ends.
func Run(ctx context.Context, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	name := cfg.Backend
	if name == "" {
		name = input.DefaultBackend()
	}

	backend, err := input.InitBackend(name)
	if err != nil {
		return err
	}
	defer backend.Close()

	device, err := input.GetDevice(backend, cfg.Device)
	if err != nil {
		return err
	}

	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	mags := store.NewMagnitudes(cfg.Bins)

	sess, err := recorder.New(recorder.Config{
		Backend:     backend,
		Device:      device,
		SampleRate:  cfg.SampleRate,
		SampleSize:  cfg.SampleSize,
		Authorizer:  cfg.Authorizer,
		Opener:      cfg.Opener,
		Processor:   cfg.processorConfig(),
		StopTimeout: cfg.StopTimeout,
		Metrics:     metrics.New(reg),
		Logger:      log,
	})
	if err != nil {
		return err
	}

	if cfg.SetupFunc != nil {
		if err := cfg.SetupFunc(); err != nil {
			return errors.Wrap(err, "failed to set up")
		}
	}

	if cfg.CleanupFunc != nil {
		defer func() {
			if err := cfg.CleanupFunc(); err != nil {
				log.Warn("failed to clean up", slog.String("error", err.Error()))
			}
		}()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.StartFunc != nil {
		if ctx, err = cfg.StartFunc(ctx); err != nil {
			return errors.Wrap(err, "failed to start")
		}
	}

	draw := func() {
		if cfg.Display == nil {
			return
		}

		status := Status{
			Volume:   sess.Volume(),
			Duration: sess.Duration(),
		}

		if err := cfg.Display.Draw(mags.Load(), status); err != nil {
			log.Warn("failed to draw", slog.String("error", err.Error()))
		}
	}

	publish := func(vec []float64) {
		mags.Post(vec)

		if cfg.FrameRate <= 0 {
			draw()
		}
	}

	if err := sess.Start(cfg.Output, publish); err != nil {
		return errors.Wrap(err, "failed to start capture")
	}

	log.Info("recording",
		slog.String("backend", name),
		slog.Any("device", device),
		slog.Float64("sample_rate", cfg.SampleRate),
		slog.Int("sample_size", cfg.SampleSize))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-sess.Done():
		}

		// Stop returns after the last publish, so the reset is final
		sess.Stop()
		mags.Reset()
		cancel()

		return nil
	})

	if cfg.Display != nil && cfg.FrameRate > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(time.Second / time.Duration(cfg.FrameRate))
			defer ticker.Stop()

			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					draw()
				}
			}
		})
	}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsHandler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			log.Info("serving metrics", slog.String("addr", cfg.MetricsAddr))

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "metrics server failed")
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()

			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()

			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}
