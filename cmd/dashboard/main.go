// Command dashboard is a terminal client for the blog dashboard. It signs users
// in against the backend, keeps the session in durable storage between runs
// and lists the posts the signed-in user may see.
//
// Usage:
//
//	dashboard [-config file] [-v] <command> [flags]
//
// Commands:
//
//	login       Sign in with -email and -password
//	logout      Forget the signed-in user
//	whoami      Print the signed-in user
//	posts       List posts visible to the signed-in user
//	serve-fake  Run a development login backend
//	config      Print configuration and warnings
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	dashboard "github.com/danieldean2000/oscorm-dashboard"
	"github.com/danieldean2000/oscorm-dashboard/logging"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = []command{
	{"login", "Sign in with -email and -password", runLogin},
	{"logout", "Forget the signed-in user", runLogout},
	{"whoami", "Print the signed-in user", runWhoami},
	{"posts", "List posts visible to the signed-in user", runPosts},
	{"serve-fake", "Run a development login backend", runServeFake},
	{"config", "Print configuration and warnings", runConfig},
}

// env carries the process streams and global flags to commands.
type env struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "YAML file merged over "+dashboard.ConfigFile)
	verbose := fs.Bool("v", false, "Write logs to stderr")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *configFile != "" {
		if err := dashboard.LoadConfigFile(*configFile); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	if err := dashboard.ApplyConfigDefaults(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}

	e := &env{stdin: stdin, stdout: stdout, stderr: stderr, verbose: *verbose}
	logger := logging.NewNopLogger()
	if e.verbose {
		logger = logging.New(dashboard.ConfigString("logging.format"))
	}
	ctx = logging.With(ctx, logger)

	name := fs.Arg(0)
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(ctx, e, fs.Args()[1:]); err != nil {
			if err != flag.ErrHelp {
				fmt.Fprintf(stderr, "Error: %v\n", err)
			}
			return 1
		}
		return 0
	}

	fmt.Fprintf(stderr, "Unknown command: %s\n", name)
	fs.Usage()
	return 2
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintln(w, "Usage: dashboard [-config file] [-v] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-11s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}
