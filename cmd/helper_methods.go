package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/PolarWolf314/mops/internal/configs"
	"github.com/PolarWolf314/mops/internal/ui"
	"github.com/briandowns/spinner"
)

// startSpinner creates and starts a spinner on w with the given message when
// not in verbose or debug mode. Returns the spinner and a function that
// should be deferred to clean up.
//
// Stdout may carry decrypted values, so the spinner and its FinalMSG always
// go to w, normally stderr. FinalMSG values do NOT need trailing newlines;
// cleanup adds one.
func startSpinner(w io.Writer, message string) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	writer := spinner.WithWriter(w)
	if f, ok := w.(*os.File); ok {
		writer = spinner.WithWriterFile(f)
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, writer)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	quiet := !verbose && !debug
	if quiet {
		s.Start()
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stderr)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			s.FinalMSG = ""
		}

		if quiet {
			s.Stop()
		}

		if finalMsg != "" {
			fmt.Fprint(w, finalMsg)
		}
	}

	return s, cleanup
}

// loadConfig loads the user configuration and reports unknown keys.
func loadConfig() (*configs.Config, error) {
	Logger.Debugf("Loading config from %s", configs.ConfigPath())
	config, warnings, err := configs.Load()
	if err != nil {
		return nil, Logger.ErrorfAndReturn("failed to load configuration: %w", err)
	}
	for _, w := range warnings {
		Logger.Warnf("%s", w)
	}
	return config, nil
}

// formatValue is a pflag.Value restricted to the supported output formats.
// The zero value means "use the configured format".
type formatValue string

func (f *formatValue) String() string {
	return string(*f)
}

func (f *formatValue) Set(s string) error {
	s = strings.ToLower(s)
	if !slices.Contains(configs.Formats, s) {
		return fmt.Errorf("must be one of %s", strings.Join(configs.Formats, ", "))
	}
	*f = formatValue(s)
	return nil
}

func (f *formatValue) Type() string {
	return "format"
}
