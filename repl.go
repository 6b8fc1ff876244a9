package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/KamikazeJones/tiny-bytecode/config"
	"github.com/KamikazeJones/tiny-bytecode/vm"
)

const (
	historyFile = ".tbc_history"
	prompt      = "tbc> "
)

const replHelp = `Each line is loaded as a new program and run from address 0.
Stacks and memory carry over between lines.

  \stack         show both stacks
  \mem           show written memory cells
  \list          show the last program
  \input <text>  queue text for ','
  \reset         start over with an empty VM
  \quit          leave
`

// session is the state of one console. It is kept apart from liner so the
// command handling can be driven by tests.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer

	machine *vm.VM
	pending *strings.Reader
}

func newSession(cfg *config.Config, logger *zap.Logger, out io.Writer) *session {
	s := &session{
		cfg:     cfg,
		logger:  logger,
		out:     out,
		pending: strings.NewReader(""),
	}
	s.reset()
	return s
}

func (s *session) reset() {
	opts := append(s.cfg.VMOpts(),
		vm.LoggerOpt(s.logger),
		vm.OutputOpt(vm.WriterOutput(s.out)),
		vm.InputOpt(func(context.Context) (int, error) {
			b, err := s.pending.ReadByte()
			return int(b), err
		}),
	)
	s.machine = vm.NewVM(opts...)
}

// eval handles one line and reports whether the console should close.
func (s *session) eval(ctx context.Context, line string) (quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if strings.HasPrefix(line, `\`) {
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case `\quit`, `\q`:
			return true
		case `\stack`:
			fmt.Fprintf(s.out, "data %v\nreturn %v\n", s.machine.DataStack(), s.machine.ReturnStack())
		case `\mem`:
			mem := s.machine.Memory()
			for _, addr := range mem.Addresses() {
				fmt.Fprintf(s.out, "%d: %d\n", addr, mem.Load(addr))
			}
		case `\list`:
			fmt.Fprint(s.out, s.machine.Program().Listing())
		case `\input`:
			s.pending = strings.NewReader(arg)
		case `\reset`:
			s.reset()
		case `\help`:
			fmt.Fprint(s.out, replHelp)
		default:
			fmt.Fprintf(s.out, "unknown command %s. Type \\help for a list.\n", cmd)
		}
		return false
	}

	if err := s.machine.RunText(ctx, line, 0); err != nil {
		fmt.Fprintf(s.out, "\nerror: %v\n", err)
	}
	fmt.Fprintf(s.out, "\n%v\n", s.machine.DataStack())
	return false
}

func cmdRepl(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.FileName, "configuration file")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, logger, err := setup(*configPath, false)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitError
	}
	defer logger.Sync()

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprintln(stdout, `tiny bytecode vm. Type \help for commands.`)
	s := newSession(cfg, logger, stdout)
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(stdout)
			return exitOK
		}
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return exitError
		}
		ln.AppendHistory(line)
		if s.eval(ctx, line) {
			return exitOK
		}
	}
}
