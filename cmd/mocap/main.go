package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/mocap.report/internal/monitoring"
	"github.com/banshee-data/mocap.report/internal/version"
)

// errUsage marks argument errors that have already been reported.
var errUsage = errors.New("usage error")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("mocap", flag.ContinueOnError)
	global.SetOutput(stderr)
	logJSON := global.Bool("log-json", false, "Write logs as JSON lines")
	logLevel := global.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	global.Usage = func() { printUsage(stderr) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() < 1 {
		printUsage(stderr)
		return 1
	}

	logger := monitoring.NewLogger(stderr, *logJSON, monitoring.ParseLevel(*logLevel))
	monitoring.SetLogger(monitoring.ZerologLogf(logger, "mocap"))

	command := global.Arg(0)
	rest := global.Args()[1:]

	var err error
	switch command {
	case "import":
		err = handleImport(rest, stdout, stderr)
	case "export":
		err = handleExport(rest, stdout, stderr)
	case "gaps":
		err = handleGaps(rest, stdout, stderr)
	case "fill":
		err = handleFill(rest, stdout, stderr)
	case "forces":
		err = handleForces(rest, stdout, stderr)
	case "runs":
		err = handleRuns(rest, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, version.String("mocap"))
	case "help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 1
	}

	if err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			logger.Error().Err(err).Str("command", command).Msg("command failed")
		}
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `mocap - marker gap filling and force-plate kinetics

Usage: mocap [-log-json] [-log-level level] <command> [options]

Commands:
  import     Load a JSON recording into a session database
  export     Write the session database back out as a JSON recording
  gaps       List the gaps of one or every marker
  fill       Fill marker gaps with one of the recovery strategies
  forces     Compute force-plate outputs as CSV, PNG or HTML
  runs       List recorded gap-fill runs
  version    Show the mocap version
  help       Show this help message

Fill strategies:
  relative     rebuild from three markers fixed relative to the target
  rigid-body   rebuild from the closest three of a rigid cluster
  rigid-gap    interpolate rigid-body fits across each gap
  pattern      copy a donor marker's motion across each gap
  spline       interpolate each gap from the marker's own trajectory

Examples:
  mocap import -db trial.db -in trial.json
  mocap fill -db trial.db -strategy rigid-gap -target RASI -support LASI,RPSI,LPSI
  mocap fill -db trial.db -strategy spline -target RKNE
  mocap forces -db trial.db -out reports -format csv,html`)
}
