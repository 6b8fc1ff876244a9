package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/KamikazeJones/tiny-bytecode/program"
	"github.com/KamikazeJones/tiny-bytecode/vm"
)

const Version = "0.1.0"

type ServerConfig struct {
	ListenerAddr string
	Logger       *zap.Logger
	// MaxSteps caps the ceiling a request may ask for
	MaxSteps int
	// MaxBody is an echo body limit such as "64K"
	MaxBody string
	VMOpts  []vm.VMOpt
}

type Server struct {
	ServerConfig

	echo   *echo.Echo
	logger *zap.Logger
}

func NewServer(config ServerConfig) (*Server, error) {
	if config.Logger == nil {
		config.Logger, _ = zap.NewDevelopment()
	}
	if config.MaxSteps <= 0 {
		config.MaxSteps = vm.DefaultStepLimit
	}
	s := &Server{
		ServerConfig: config,
		logger:       config.Logger.Named("api"),
	}
	s.echo = s.routes()

	return s, nil
}

func (s *Server) routes() *echo.Echo {
	echoer := echo.New()
	echoer.HideBanner = true
	echoer.HidePort = true
	if s.MaxBody != "" {
		echoer.Use(middleware.BodyLimit(s.MaxBody))
	}

	echoer.GET("/status", s.handleStatus)
	echoer.POST("/run", s.handleRun)
	echoer.POST("/list", s.handleList)
	return echoer
}

// ServeHTTP lets the server be mounted or tested without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("api server starting",
		zap.String("addr", s.ListenerAddr))

	go func() {
		<-ctx.Done()
		if err := s.echo.Shutdown(context.Background()); err != nil {
			s.logger.Error("shutdown", zap.Error(err))
		}
	}()

	err := s.echo.Start(s.ListenerAddr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleStatus(ectx echo.Context) error {
	return ectx.JSON(http.StatusOK, StatusResponse{
		Version:  Version,
		MaxSteps: s.MaxSteps,
	})
}

func (s *Server) handleRun(ectx echo.Context) error {
	var req RunRequest
	if err := ectx.Bind(&req); err != nil {
		return ectx.JSON(http.StatusBadRequest,
			map[string]any{
				"error": err.Error(),
			})
	}

	maxSteps := req.MaxSteps
	if maxSteps <= 0 || maxSteps > s.MaxSteps {
		maxSteps = s.MaxSteps
	}

	var out strings.Builder
	opts := append([]vm.VMOpt{}, s.VMOpts...)
	opts = append(opts,
		vm.LoggerOpt(s.logger),
		vm.OutputOpt(vm.WriterOutput(&out)),
		vm.InputOpt(vm.ReaderInput(strings.NewReader(req.Input))),
	)
	machine := vm.NewVM(opts...)

	if err := machine.Load(req.Source); err != nil {
		return ectx.JSON(http.StatusBadRequest,
			map[string]any{
				"error": err.Error(),
			})
	}

	err := machine.Run(ectx.Request().Context(), maxSteps)
	resp := RunResponse{
		Output:      out.String(),
		DataStack:   machine.DataStack(),
		ReturnStack: machine.ReturnStack(),
		Memory:      machine.Memory().Snapshot(),
		Steps:       machine.Steps(),
	}
	if err != nil {
		s.logger.Debug("run failed", zap.Error(err))
		resp.Error = err.Error()
		return ectx.JSON(http.StatusUnprocessableEntity, resp)
	}

	return ectx.JSON(http.StatusOK, resp)
}

func (s *Server) handleList(ectx echo.Context) error {
	var req ListRequest
	if err := ectx.Bind(&req); err != nil {
		return ectx.JSON(http.StatusBadRequest,
			map[string]any{
				"error": err.Error(),
			})
	}

	prog, err := program.Parse(req.Source)
	if err != nil {
		return ectx.JSON(http.StatusBadRequest,
			map[string]any{
				"error": err.Error(),
			})
	}

	instrs := make([]string, prog.Len())
	for i, inst := range prog.Instructions {
		instrs[i] = inst.String()
	}
	return ectx.JSON(http.StatusOK, ListResponse{
		Instructions: instrs,
		Labels:       prog.Labels,
	})
}
