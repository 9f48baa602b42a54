package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/noriah/voxcap"
	"github.com/noriah/voxcap/graphic"
	"github.com/noriah/voxcap/input"

	_ "github.com/noriah/voxcap/input/all"

	"github.com/integrii/flaggy"
)

// AppName is the app name
const AppName = "voxcap"

// AppDesc is the app description
const AppDesc = "Voice capture with a live bar visualizer"

// AppSite is the app website
const AppSite = "https://github.com/noriah/voxcap"

var version = "unknown"

func main() {
	log.SetFlags(0)

	cfg := voxcap.NewZeroConfig()

	if path := configPath(os.Args[1:]); path != "" {
		var err error
		cfg, err = voxcap.LoadConfig(path)
		chk(err, "failed to load config")
	}

	opts := newZeroOptions()

	if doFlags(&cfg, &opts) {
		return
	}

	chk(cfg.Validate(), "invalid config")

	logger, closeLog, err := newLogger(opts.logFile, opts.logLevel, !opts.printNumbers)
	chk(err, "failed to set up logging")
	defer closeLog()

	cfg.Logger = logger

	if opts.printNumbers {
		cfg.Display = newNumberWriter(os.Stdout, opts.invertDraw)
	} else {
		display := graphic.NewDisplay()

		cfg.SetupFunc = func() error {
			if err := display.Init(); err != nil {
				return err
			}

			display.SetSizes(opts.barSize, opts.spaceSize)
			display.SetBase(opts.baseSize)
			display.SetStyles(opts.styles)
			display.SetInvertDraw(opts.invertDraw)

			return nil
		}

		cfg.StartFunc = func(ctx context.Context) (context.Context, error) {
			return display.Start(ctx), nil
		}

		cfg.CleanupFunc = func() error {
			display.Stop()
			return display.Close()
		}

		cfg.Display = display
	}

	// Root Context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := voxcap.Run(ctx, &cfg); err != nil {
		closeLog()
		cancel()
		log.Fatalln("failed to run voxcap: ", err)
	}
}

func doFlags(cfg *voxcap.Config, opts *options) bool {

	parser := flaggy.NewParser(AppName)
	parser.Description = AppDesc
	parser.AdditionalHelpPrepend = AppSite
	parser.Version = version

	listBackendsCmd := flaggy.Subcommand{
		Name:                 "list-backends",
		ShortName:            "lb",
		Description:          "list all supported backends",
		AdditionalHelpAppend: "\nuse the full name after the '-'",
	}

	parser.AttachSubcommand(&listBackendsCmd, 1)

	listDevicesCmd := flaggy.Subcommand{
		Name:                 "list-devices",
		ShortName:            "ld",
		Description:          "list all devices for a backend",
		AdditionalHelpAppend: "\nuse the full name after the '-'",
	}

	parser.AttachSubcommand(&listDevicesCmd, 1)

	// read before parsing, registered so it shows in help
	var configFile string
	parser.String(&configFile, "c", "config", "yaml config file, flags override it")

	parser.String(&cfg.Backend, "b", "backend", "backend name")
	parser.String(&cfg.Device, "d", "device", "device name")
	parser.Float64(&cfg.SampleRate, "r", "rate", "sample rate")
	parser.Int(&cfg.SampleSize, "n", "samples", "sample size")
	parser.Int(&cfg.Bins, "bn", "bins", "number of bars")
	parser.Int(&cfg.AverageDepth, "ad", "average", "number of chunks averaged")
	parser.Float64(&cfg.LowFreq, "lo", "low", "low end of the binned range in hz")
	parser.Float64(&cfg.HighFreq, "hi", "high", "high end of the binned range in hz")
	parser.Float64(&cfg.VoicedThreshold, "vt", "voiced", "decibels a chunk needs to be analyzed")
	parser.Float64(&cfg.GateThreshold, "gt", "gate", "noise gate floor multiplier")
	parser.Float64(&cfg.GateMargin, "gm", "gate-margin", "noise gate pass margin")
	parser.Bool(&cfg.GateBins, "gb", "gate-bins", "gate after binning instead of before")
	parser.String(&cfg.Output, "o", "output", "raw s16le output file (empty to not record)")
	parser.Duration(&cfg.StopTimeout, "st", "stop-timeout", "how long stopping waits for capture")
	parser.Int(&cfg.FrameRate, "f", "fps", "frame rate (0 to draw on every sample)")
	parser.String(&cfg.MetricsAddr, "m", "metrics", "address to serve prometheus metrics on")

	parser.String(&opts.logFile, "lf", "log-file", "log to a rotated file")
	parser.String(&opts.logLevel, "ll", "log-level", "log level (debug, info, warn, error)")
	parser.Bool(&opts.printNumbers, "p", "print", "print magnitudes instead of drawing")
	parser.Int(&opts.baseSize, "bt", "base", "base thickness [0, +Inf)")
	parser.Int(&opts.barSize, "bw", "bar", "bar width [1, +Inf)")
	parser.Int(&opts.spaceSize, "sw", "space", "space width [0, +Inf)")
	parser.Bool(&opts.invertDraw, "i", "invert", "invert the direction of bin drawing")

	fg, bg, center := graphic.DefaultStyles().AsUInt16s()
	parser.UInt16(&fg, "fg", "foreground",
		"foreground color within the 256-color range [0, 255] with attributes")
	parser.UInt16(&bg, "bg", "background",
		"background color within the 256-color range [0, 255] with attributes")
	parser.UInt16(&center, "ct", "center",
		"center line color within the 256-color range [0, 255] with attributes")

	chk(parser.Parse(), "failed to parse arguments")

	// Manually set the styles.
	opts.styles = graphic.StylesFromUInt16(fg, bg, center)

	switch {
	case listBackendsCmd.Used:
		def := input.DefaultBackend()

		for _, backend := range input.Backends {
			star := ' '
			if backend.Name == def {
				star = '*'
			}

			fmt.Printf("- %s %c\n", backend.Name, star)
		}

		return true

	case listDevicesCmd.Used:
		name := cfg.Backend
		if name == "" {
			name = input.DefaultBackend()
		}

		backend, err := input.InitBackend(name)
		chk(err, "failed to init backend")

		devices, err := backend.Devices()
		chk(err, "failed to get devices")

		// We don't really need the default device to be indicated.
		defaultDevice, _ := backend.DefaultDevice()

		fmt.Printf("all devices for %q backend. '*' marks default\n", name)

		for idx := range devices {
			star := ' '
			if defaultDevice != nil && devices[idx].String() == defaultDevice.String() {
				star = '*'
			}

			fmt.Printf("- %v %c\n", devices[idx], star)
		}

		return true
	}

	return false
}

// configPath finds the config file flag ahead of the full parse, so file
// values can be the defaults the flags override.
func configPath(args []string) string {
	for idx, arg := range args {
		switch {
		case arg == "-c", arg == "--config":
			if idx+1 < len(args) {
				return args[idx+1]
			}

		case strings.HasPrefix(arg, "-c="):
			return strings.TrimPrefix(arg, "-c=")

		case strings.HasPrefix(arg, "--config="):
			return strings.TrimPrefix(arg, "--config=")
		}
	}

	return ""
}

func chk(err error, wrap string) {
	if err != nil {
		log.Fatalln(wrap+": ", err)
	}
}
