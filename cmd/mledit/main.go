// mledit classifies, lists and edits the multiline values of a host page.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

var (
	configPath = flag.String("config", "", "path to config file")
	noColor    = flag.Bool("no-color", false, "disable colored output")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	// A missing .env file is not an error.
	_ = godotenv.Load()

	if *noColor {
		color.NoColor = true
	}

	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	switch cmd {
	case "init":
		cmdInit()
	case "classify":
		cmdClassify(args)
	case "scan":
		requireArgs(args, 1, "Usage: mledit scan <page.html>")
		cmdScan(args[0])
	case "view":
		requireArgs(args, 2, "Usage: mledit view <page.html> <n>")
		cmdView(args[0], args[1])
	case "edit":
		cmdEdit(args)
	case "watch":
		cmdWatch(args)
	case "status":
		cmdStatus(args)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `mledit - Multiline editor for host page values

Usage: mledit [options] <command> [args]

Commands:
  init                        Write the default config file if none exists
  classify [file]             Classify a value from a file or stdin
  scan <page.html>            List Edit and View affordances of a page
  view <page.html> <n>        Show affordance n read-only
  edit [-stdout] <page> <n>   Edit affordance n in $EDITOR and save the page
  watch [-metrics] <page>     Keep scanning a page as it changes
  status [-json] [page.html]  Show configuration, health and metrics
  help                        Show this help message

Options:
  -config <path>  Path to config file (default: platform config dir)
  -no-color       Disable colored output`)
}

func requireArgs(args []string, n int, msg string) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(1)
	}
}

func fatal(format string, args ...any) {
	color.New(color.FgRed).Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
