package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/KamikazeJones/tiny-bytecode/api"
	"github.com/KamikazeJones/tiny-bytecode/config"
	"github.com/KamikazeJones/tiny-bytecode/program"
	"github.com/KamikazeJones/tiny-bytecode/vm"
)

const usage = `Usage: tbc <command> [flags]

Commands:
  run   [-config f] [-max-steps n] [-debug] [-showsrc] [-dump] <file.tbc>
  list  <file.tbc>
  repl  [-config f]
  serve [-config f] [-addr host:port]
`

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "run":
		return cmdRun(ctx, args[1:], stdin, stdout, stderr)
	case "list":
		return cmdList(args[1:], stdout, stderr)
	case "repl":
		return cmdRepl(ctx, args[1:], stdout, stderr)
	case "serve":
		return cmdServe(ctx, args[1:], stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	}
	fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
	return exitUsage
}

// setup loads the config file and installs the global logger.
func setup(path string, debug bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	l, err := cfg.Logger()
	if err != nil {
		return nil, nil, err
	}
	zap.ReplaceGlobals(l)
	return cfg, l, nil
}

func cmdRun(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.FileName, "configuration file")
	maxSteps := fs.Int("max-steps", 0, "step ceiling (0 uses the configured value)")
	debug := fs.Bool("debug", false, "log every step")
	showSrc := fs.Bool("showsrc", false, "print the resolved program before running")
	dump := fs.Bool("dump", false, "print stacks and memory after the run")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	cfg, logger, err := setup(*configPath, *debug)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitError
	}
	defer logger.Sync()

	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error reading file: %v\n", err)
		return exitError
	}

	out := bufio.NewWriter(stdout)
	defer out.Flush()
	in := vm.ReaderInput(stdin)
	input := func(ctx context.Context) (int, error) {
		// prompts written so far must be visible before blocking
		if err := out.Flush(); err != nil {
			logger.Debug("flush", zap.Error(err))
		}
		return in(ctx)
	}

	opts := append(cfg.VMOpts(),
		vm.LoggerOpt(logger),
		vm.OutputOpt(vm.WriterOutput(out)),
		vm.InputOpt(input),
	)
	machine := vm.NewVM(opts...)

	if err := machine.Load(string(src)); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", fs.Arg(0), err)
		return exitError
	}
	if *showSrc {
		fmt.Fprint(out, machine.Program().Listing())
	}

	runErr := machine.Run(ctx, *maxSteps)
	if *dump {
		fmt.Fprintln(out)
		writeState(out, machine)
	}
	if runErr != nil {
		out.Flush()
		fmt.Fprintf(stderr, "%s: %v\n", fs.Arg(0), runErr)
		return exitError
	}
	return exitOK
}

func cmdList(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "Error reading file: %v\n", err)
		return exitError
	}
	prog, err := program.Parse(string(src))
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", args[0], err)
		return exitError
	}
	fmt.Fprint(stdout, prog.Listing())
	return exitOK
}

func cmdServe(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.FileName, "configuration file")
	addr := fs.String("addr", "", "listen address (overrides the config)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, logger, err := setup(*configPath, false)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitError
	}
	defer logger.Sync()

	if *addr != "" {
		cfg.Server.Listen = *addr
	}

	srv, err := api.NewServer(api.ServerConfig{
		ListenerAddr: cfg.Server.Listen,
		Logger:       logger,
		MaxSteps:     cfg.Server.MaxSteps,
		MaxBody:      cfg.Server.MaxBody,
		VMOpts:       cfg.VMOpts(),
	})
	if err != nil {
		logger.Error("api server", zap.Error(err))
		return exitError
	}
	if err := srv.Start(ctx); err != nil {
		logger.Error("api server", zap.Error(err))
		return exitError
	}
	return exitOK
}

func writeState(w io.Writer, machine *vm.VM) {
	fmt.Fprintf(w, "Data stack: %v\n", machine.DataStack())
	fmt.Fprintf(w, "Return stack: %v\n", machine.ReturnStack())
	fmt.Fprint(w, "Memory: {")
	mem := machine.Memory()
	for i, addr := range mem.Addresses() {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprintf(w, "%d: %d", addr, mem.Load(addr))
	}
	fmt.Fprintln(w, "}")
}
