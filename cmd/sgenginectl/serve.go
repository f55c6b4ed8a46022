package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gen2brain/malgo"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tidewave-audio/sgengine"
	"github.com/tidewave-audio/sgengine/config"
	"github.com/tidewave-audio/sgengine/processors"
	"github.com/tidewave-audio/sgengine/rt"
	"github.com/tidewave-audio/sgengine/sound"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine against a live playback device",
		RunE:  runServe,
	}
}

// loadConfig layers a config file (if --config is set) underneath the
// command's own flag/env values: the file is loaded first, then flags
// and environment variables override it.
func loadConfig() (config.EngineConfig, error) {
	var cfg config.EngineConfig
	if path := viper.GetString("config"); path != "" {
		var err error
		cfg, err = config.LoadFile(path)
		if err != nil {
			return config.EngineConfig{}, err
		}
	}
	if viper.IsSet("sample-rate") {
		cfg.SampleRate = viper.GetInt("sample-rate")
	}
	if viper.IsSet("log-level") {
		cfg.LogLevel = viper.GetString("log-level")
	}
	if v := viper.GetString("sentry-dsn"); v != "" {
		cfg.SentryDSN = v
	}
	return config.Resolve(cfg), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	errs := sgengine.ErrorHandler(sgengine.LoggingErrorHandler{})
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			return fmt.Errorf("initializing sentry: %w", err)
		}
		errs = sgengine.SentryErrorHandler{}
	}
	engine := sgengine.NewEngine(cfg, errs)
	defer engine.Close()

	reg := prometheus.NewRegistry()
	if err := engine.RegisterMetrics(reg); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	if err := engine.SubmitGraph(demoGraph()); err != nil {
		return fmt.Errorf("submitting demo graph: %w", err)
	}

	device, err := startPlaybackDevice(cfg, viper.GetString("device"), engine)
	if err != nil {
		return fmt.Errorf("starting playback device: %w", err)
	}
	defer device.Uninit()

	srv := newTelemetryServer(reg, engine)
	addr := viper.GetString("listen")
	go func() {
		if err := srv.Start(addr); err != nil && err != http.ErrServerClosed {
			fmt.Fprintln(os.Stderr, "telemetry server:", err)
		}
	}()
	defer srv.Close()

	fmt.Println("sgenginectl: serving telemetry on", addr, "— Ctrl+C to stop")
	waitForInterrupt()
	return nil
}

func waitForInterrupt() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}

// demoGraph wires a single white-noise voice straight to the output, so
// `sgenginectl serve` always has audible audio even with no other
// control-thread client connected.
func demoGraph() *sound.Graph {
	g := sound.NewGraph()
	_, outIn, err := processors.NewOutput(g, "out")
	if err != nil {
		panic(err)
	}
	noise, err := processors.NewWhiteNoise(g, "demo-noise", processors.DefaultWhiteNoiseAmplitude)
	if err != nil {
		panic(err)
	}
	if err := g.SetTarget(outIn.ID, &noise.ID); err != nil {
		panic(err)
	}
	return g
}

// startPlaybackDevice opens a malgo playback device whose data callback
// runs the engine one block at a time and writes the mixed chunk out as
// interleaved little-endian float32 stereo samples.
func startPlaybackDevice(cfg config.EngineConfig, deviceName string, engine *sgengine.Engine) (*malgo.AllocatedContext, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 2
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	var absoluteSample int64
	var chunk rt.Chunk
	onData := func(pOutput, pInput []byte, frameCount uint32) {
		engine.RunBlock(&chunk, absoluteSample)
		absoluteSample += int64(frameCount)

		n := int(frameCount)
		if n > rt.ChunkSize {
			n = rt.ChunkSize
		}
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(pOutput[i*8:], math.Float32bits(chunk.L[i]))
			binary.LittleEndian.PutUint32(pOutput[i*8+4:], math.Float32bits(chunk.R[i]))
		}
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		_ = ctx.Uninit()
		return nil, fmt.Errorf("init malgo device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		return nil, fmt.Errorf("start malgo device: %w", err)
	}

	return ctx, nil
}

// newTelemetryServer exposes /metrics (Prometheus) and /report (JSON
// per-processor elapsed-sample counts from Engine.Report).
func newTelemetryServer(reg *prometheus.Registry, engine *sgengine.Engine) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	e.GET("/report", func(c echo.Context) error {
		return c.JSON(http.StatusOK, engine.Report())
	})
	return e
}
