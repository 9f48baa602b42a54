package main

import "github.com/noriah/voxcap/graphic"

// options holds the flags that only matter to the command.
type options struct {
	// logFile is where logs go, empty for stderr or nowhere
	logFile string
	// logLevel is the minimum level logged
	logLevel string
	// printNumbers writes magnitudes to stdout instead of drawing them
	printNumbers bool
	// baseSize number of cells high the base is
	baseSize int
	// barSize is the size of bars, in columns
	barSize int
	// spaceSize is the size of spaces, in columns
	spaceSize int
	// invertDraw reverses the order of bars
	invertDraw bool
	// styles is the configuration for bar color styles
	styles graphic.Styles
}

func newZeroOptions() options {
	return options{
		logLevel:  "info",
		baseSize:  1,
		barSize:   2,
		spaceSize: 1,
		styles:    graphic.DefaultStyles(),
	}
}
