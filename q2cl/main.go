// Package main runs a console-only client that connects to a server,
// keeps the session alive and forwards console input to it.
package main

import (
	"bufio"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/q2net/clnet"
	"github.com/q2net/clnet/transport"
)

// FrameInterval is the time between two client ticks.
const FrameInterval = 10 * time.Millisecond

var (
	logger logrus.FieldLogger = logrus.StandardLogger()

	configPath string
	logLevel   string
	connectTo  string

	rootCmd = &cobra.Command{
		Use:          "q2cl",
		Short:        "Connects to a server and reads console commands from stdin.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}
)

func loadConfig(path string) (*clnet.Config, error) {
	cfg, err := clnet.LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = clnet.DefaultConfig()
		cfg.SetPath(path)
		return cfg, nil
	}

	return cfg, err
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return errors.Wrap(err, "load config failed")
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logFile, err := clnet.SetupLogging(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "setup logging failed")
	}
	if logFile != nil {
		defer logFile.Close()
	}

	sock, err := transport.ListenUDP(transport.UDPConfig{
		Port:               cfg.Port,
		MulticastInterface: cfg.MulticastInterface,
		MulticastHops:      cfg.MulticastHops,
		Logger:             logger,
	})
	if err != nil {
		return errors.Wrap(err, "open socket failed")
	}
	defer sock.Close()

	reg := prometheus.NewRegistry()
	metrics := clnet.NewMetrics(reg)

	client, err := clnet.NewClient(
		clnet.WithConfig(cfg),
		clnet.WithSocket(sock),
		clnet.WithMetrics(metrics),
		clnet.WithLogger(logger),
	)
	if err != nil {
		return errors.Wrap(err, "new client failed")
	}

	if cfg.Storage != "" {
		browser, err := clnet.OpenBrowser(cfg.Storage)
		if err != nil {
			return errors.Wrap(err, "open server list failed")
		}
		defer browser.Close()

		browser.Attach(client)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}

		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("metrics server failed")
			}
		}()
		defer srv.Close()
	}

	client.Console().Register("quit", "leave and exit", func(clnet.Args) {
		stop()
	})

	if connectTo != "" {
		client.Console().AddText("connect \"" + connectTo + "\"\n")
	}

	logger.WithFields(logrus.Fields{
		"port":  sock.Port(),
		"qport": client.QPort(),
	}).Info("client started")

	lines := readLines(os.Stdin)
	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			client.Disconnect()
			return nil
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			client.Console().AddText(line + "\n")
		case <-ticker.C:
			client.Frame()
		}
	}
}

// readLines sends every line read from f on the returned channel
// and closes it at the end of input.
func readLines(f *os.File) <-chan string {
	lines := make(chan string)

	go func() {
		defer close(lines)

		s := bufio.NewScanner(f)
		for s.Scan() {
			lines <- s.Text()
		}
	}()

	return lines
}

func main() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yml", "configuration file (.yml or .toml)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.Flags().StringVar(&connectTo, "connect", "", "server to connect to on startup")

	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Error("q2cl failed")
		os.Exit(1)
	}
}
