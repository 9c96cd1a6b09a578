package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/grpclog"

	wabisabi "github.com/MixinNetwork/wabisabi-go"
	"github.com/MixinNetwork/wabisabi-go/config"
	"github.com/MixinNetwork/wabisabi-go/logger"
	"github.com/MixinNetwork/wabisabi-go/round"
	"github.com/MixinNetwork/wabisabi-go/rpc"
)

var (
	configFile    string
	roundDuration time.Duration
)

func coordinatorCmd() *cobra.Command {
	coordinatorStartCmd.ResetFlags()
	flags := coordinatorStartCmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to the coordinator TOML configuration.")
	flags.DurationVar(&roundDuration, "round-duration", 0, "Rotate the issuer key this often, 0 keeps a single round.")
	return coordinatorStartCmd
}

var coordinatorStartCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Serve credential registration over gRPC.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		if configFile != "" {
			var err error
			cfg, err = config.LoadFile(configFile)
			if err != nil {
				return err
			}
		}
		return serve(cfg)
	},
}

func loadSigner(cfg *config.Config, log *zap.Logger) (*round.Signer, error) {
	if cfg.Coordinator.SigningKeyFile == "" {
		signer, err := round.GenerateSigner()
		if err != nil {
			return nil, err
		}
		log.Warn("using an ephemeral coordinator key")
		return signer, nil
	}
	b, err := os.ReadFile(filepath.Clean(cfg.Coordinator.SigningKeyFile))
	if err != nil {
		return nil, errors.Wrap(err, "read coordinator key")
	}
	return round.LoadSigner(strings.TrimSpace(string(b)))
}

func serve(cfg *config.Config) error {
	log, err := logger.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return err
	}
	defer log.Sync()
	log = log.Named(cfg.Coordinator.Identifier)
	grpclog.SetLoggerV2(zapgrpc.NewLogger(log.Named("grpc")))

	signer, err := loadSigner(cfg, log)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := wabisabi.NewMetrics(registry)

	coordinator, err := round.NewCoordinator(signer, cfg.Round.NumberOfCredentials, cfg.Round.RangeProofWidth, log, metrics)
	if err != nil {
		return err
	}

	if cfg.Coordinator.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.Coordinator.MetricsAddress, mux); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	lis, err := net.Listen("tcp", cfg.Coordinator.GRPCAddress)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	server := grpc.NewServer(grpc.UnaryInterceptor(rpc.UnaryServerInterceptor(log.Named("rpc"))))
	rpc.RegisterCoordinatorServer(server, rpc.NewServer(coordinator))

	done := make(chan struct{})
	defer close(done)
	if roundDuration > 0 {
		go rotate(coordinator, roundDuration, log, done)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		server.GracefulStop()
	}()

	log.Info("coordinator started",
		zap.String("grpc", cfg.Coordinator.GRPCAddress),
		zap.Int("k", cfg.Round.NumberOfCredentials),
		zap.Int("width", cfg.Round.RangeProofWidth))
	return server.Serve(lis)
}

func rotate(c *round.Coordinator, every time.Duration, log *zap.Logger, done <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := c.Rotate(); err != nil {
				log.Error("round rotation failed", zap.Error(err))
			}
		case <-done:
			return
		}
	}
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Print a new hex encoded coordinator signing key.",
	RunE: func(cmd *cobra.Command, args []string) error {
		signer, err := round.GenerateSigner()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), signer.String())
		return nil
	},
}
