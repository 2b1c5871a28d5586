package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/faceguide/internal/config"
)

type Options struct {
	Config   string `long:"config" short:"c" env:"FACEGUIDE_CONFIG" default:"faceguide.json" description:"Configuration file"`
	LogLevel string `long:"log-level" env:"FACEGUIDE_LOG_LEVEL" description:"Log level (debug, info, warn, error)"`
	LogFile  string `long:"log-file" env:"FACEGUIDE_LOG_FILE" description:"Write logs to this file"`

	Setup SetupCommand `command:"setup" description:"Configure broker, camera and pan servo"`
	Guide GuideCommand `command:"guide" alias:"run" description:"Start face guidance (camera to robot commands)"`
	Drive DriveCommand `command:"drive" description:"Drive the robot from the keyboard, no camera"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "faceguide - steer a robot by where your face is in the camera"

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
