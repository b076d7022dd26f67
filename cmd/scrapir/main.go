// scrapir - inspect and check Scrap IR
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/scrap/config"
)

var log = commonlog.GetLogger("scrap.cli")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is main without the process exit, so tests can drive it.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scrapir", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config", "", "Directory containing scrap.toml (default: search upward from .)")
	verbose := fs.Bool("v", false, "Verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: scrapir [options] <command> [args]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		fmt.Fprintf(stderr, "  demo [-cbor]   Build the sample function, validate it and print its listing\n")
		fmt.Fprintf(stderr, "  opcodes        Print the opcode catalog\n")
		fmt.Fprintf(stderr, "  check          Validate CBOR-encoded functions read from stdin\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  scrapir opcodes\n")
		fmt.Fprintf(stderr, "  scrapir demo -cbor | scrapir check\n")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *verbose {
		cfg.Log.Verbosity = 1
	}
	cfg.ConfigureLogging()

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}

	switch rest[0] {
	case "demo":
		return runDemo(rest[1:], stdout, stderr)
	case "opcodes":
		return runOpcodes(stdout)
	case "check":
		return runCheck(context.Background(), cfg, stdin, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n", rest[0])
		fs.Usage()
		return 2
	}
}

func loadConfig(dir string) (*config.Config, error) {
	if dir != "" {
		return config.Load(dir)
	}
	cfg, err := config.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return config.Default(), nil
	}
	log.Debugf("using %s", cfg.Dir)
	return cfg, nil
}
