package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/otelconnect"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mpapenbr/owlracer-agent-go/log"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim/mock"
)

type serverArgs struct {
	addr           string
	raceStartDelay time.Duration
}

func NewServerCmd() *cobra.Command {
	args := serverArgs{}
	cmd := &cobra.Command{
		Use:          "mock-server",
		Short:        "starts an in-memory simulation service for development",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return startServer(ctx, &args)
		},
	}
	cmd.Flags().StringVarP(&args.addr,
		"listen-addr",
		"a",
		"localhost:6003",
		"listen address of the mock server")
	cmd.Flags().DurationVar(&args.raceStartDelay,
		"race-start-delay",
		5*time.Second,
		"duration new sessions stay in prerace phase")
	return cmd
}

func startServer(ctx context.Context, args *serverArgs) error {
	srv := mock.NewServer(
		mock.WithRaceStartDelay(args.raceStartDelay),
		mock.WithLogger(log.Default().Named("sim.mock").With(
			log.String("addr", args.addr))))
	//nolint:gosec // by design
	server := &http.Server{
		Addr:    args.addr,
		Handler: newHandler(srv),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("server shutdown", log.ErrorField(err))
		}
	}()

	log.Info("Starting mock server",
		log.String("addr", args.addr),
		log.Duration("raceStartDelay", args.raceStartDelay))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server could not be started", log.ErrorField(err))
		return err
	}
	log.Info("Server terminated")
	return nil
}

// newHandler serves the simulation procedures via connect, gRPC and gRPC-Web
func newHandler(srv *mock.Server) http.Handler {
	mux := http.NewServeMux()
	srv.Register(mux, connect.WithInterceptors(
		handlerInterceptors(otelconnect.NewInterceptor)...))
	mux.Handle(grpchealth.NewHandler(grpchealth.NewStaticChecker(sim.ServiceName)))
	return h2c.NewHandler(newCORS().Handler(mux), &http2.Server{})
}

// handlerInterceptors returns the otel interceptor if available followed by
// the trace id interceptor.
//
//nolint:whitespace // editor/linter issue
func handlerInterceptors(
	newOtel func(...otelconnect.Option) (*otelconnect.Interceptor, error),
) []connect.Interceptor {
	ret := []connect.Interceptor{}
	if myOtel, err := newOtel(); err == nil {
		ret = append(ret, myOtel)
	} else {
		log.Warn("could not create otel interceptor", log.ErrorField(err))
	}
	return append(ret, mock.NewTraceIDInterceptor())
}
