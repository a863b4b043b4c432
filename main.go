package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shutterbug2000/wifiplazad/internal/audit"
	"github.com/shutterbug2000/wifiplazad/internal/httpadmin"
	"github.com/shutterbug2000/wifiplazad/internal/ircd"
)

func main() {
	channelLogDir := flag.String("channel-log-dir", "", "directory to write per-channel chat logs (empty disables)")
	daemon := flag.Bool("daemon", false, "run in the background (unsupported in this build; logged and ignored)")
	flag.BoolVar(daemon, "d", false, "shorthand for -daemon")
	ipv6 := flag.Bool("ipv6", false, "bind listen sockets to [::] instead of 0.0.0.0")
	debug := flag.Bool("debug", false, "enable debug-level logging")
	verbose := flag.Bool("verbose", false, "enable verbose (info-level) logging")
	listenHost := flag.String("listen", "", "address to bind (empty binds all interfaces)")
	respectWeb := flag.Bool("respect-web", false, "do not synthesize a random lobby; wait for the first SETCHANKEY")
	logCount := flag.Int("log-count", 0, "number of rotated log files to keep (rotation unimplemented; accepted for CLI compatibility)")
	logFile := flag.String("log-file", "", "write logs to this file instead of stderr (empty logs to stderr)")
	logMaxSize := flag.Int("log-max-size", 0, "maximum log file size in MiB before rotation (rotation unimplemented; accepted for CLI compatibility)")
	motdPath := flag.String("motd", "", "path to the message-of-the-day file (empty disables MOTD)")
	pidFile := flag.String("pid-file", "", "write the process id to this path at startup (empty disables)")
	password := flag.String("password", "", "server connection password (empty disables)")
	flag.StringVar(password, "p", "", "shorthand for -password")
	passwordFile := flag.String("password-file", "", "read the server connection password from this file, overriding -password")
	ports := flag.String("ports", "", "comma or whitespace separated list of ports to listen on (default 6667, or 6697 if -ssl-pem-file is set)")
	sslPemFile := flag.String("ssl-pem-file", "", "PEM file containing the TLS certificate and private key (empty disables TLS)")
	flag.StringVar(sslPemFile, "s", "", "shorthand for -ssl-pem-file")
	stateDir := flag.String("state-dir", "", "directory to persist channel state (empty disables persistence)")
	chroot := flag.String("chroot", "", "directory to chroot into after binding (unsupported in this build; logged and ignored)")
	setuid := flag.String("setuid", "", "USER[:GROUP] to drop privileges to after binding (unsupported in this build; required to run as root)")
	serverName := flag.String("server-name", "wifiplaza", "server name reported in numeric replies")

	rateLimit := flag.Int("rate-limit", 20, "maximum lines per second per client (0 disables)")
	httpAddr := flag.String("http-addr", "", "address for the read-only HTTP admin surface (empty disables)")
	auditDB := flag.String("audit-db", "", "path to a SQLite database recording connection lifecycle events (empty disables)")

	flag.Parse()

	if err := configureLogging(*logFile, *debug, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "configure logging: %v\n", err)
		os.Exit(1)
	}

	if err := refuseRoot(*setuid); err != nil {
		slog.Error("refusing to start", "error", err)
		os.Exit(1)
	}
	if *daemon {
		slog.Warn("-daemon requested but daemonization is not implemented in this build; running in the foreground")
	}
	if *chroot != "" {
		slog.Warn("-chroot requested but chroot is not implemented in this build; ignoring", "path", *chroot)
	}
	if *logCount != 0 || *logMaxSize != 0 {
		slog.Warn("log rotation flags accepted but not implemented in this build; writing one unrotated file")
	}

	pass := *password
	if *passwordFile != "" {
		data, err := os.ReadFile(*passwordFile)
		if err != nil {
			slog.Error("read password file", "error", err)
			os.Exit(1)
		}
		pass = strings.TrimRight(string(data), "\r\n")
	}

	var tlsConfig *tls.Config
	if *sslPemFile != "" {
		cfg, err := ircd.LoadTLSConfig(*sslPemFile)
		if err != nil {
			slog.Error("load TLS config", "error", err)
			os.Exit(1)
		}
		tlsConfig = cfg
	}

	portList, err := parsePorts(*ports, tlsConfig != nil)
	if err != nil {
		slog.Error("parse -ports", "error", err)
		os.Exit(1)
	}

	var auditSink ircd.AuditSink
	if *auditDB != "" {
		auditLog, err := audit.Open(*auditDB)
		if err != nil {
			slog.Error("open audit db", "error", err)
			os.Exit(1)
		}
		defer auditLog.Close()
		auditSink = auditLog
	}

	metrics, registry := httpadmin.NewMetrics()

	cfg := ircd.Config{
		ServerName: *serverName,
		Password:   pass,
		RateLimit:  rate.Limit(*rateLimit),
		TLSConfig:  tlsConfig,
		RespectWeb: *respectWeb,
		AuditSink:  auditSink,
		Metrics:    metricsAdapter{metrics},
	}

	var motd ircd.MOTDSource
	if *motdPath != "" {
		motd = ircd.NewFileMOTD(*motdPath)
	}
	var channelLogger ircd.ChannelLogger
	if *channelLogDir != "" {
		if err := os.MkdirAll(*channelLogDir, 0o755); err != nil {
			slog.Error("create channel log dir", "error", err)
			os.Exit(1)
		}
		channelLogger = ircd.NewFileChannelLogger(*channelLogDir)
	}
	var stateStore ircd.StateStore
	if *stateDir != "" {
		if err := os.MkdirAll(*stateDir, 0o755); err != nil {
			slog.Error("create state dir", "error", err)
			os.Exit(1)
		}
		stateStore = ircd.NewFileStateStore(*stateDir)
	}

	server := ircd.NewServer(cfg, motd, channelLogger, stateStore)

	if *pidFile != "" {
		if err := writePIDFile(*pidFile); err != nil {
			slog.Error("write pid file", "error", err)
			os.Exit(1)
		}
		defer os.Remove(*pidFile)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	go server.StartAlivenessSweep(ctx, 10*time.Second)

	if *httpAddr != "" {
		admin := httpadmin.New(server, registry)
		go func() {
			if err := admin.Start(*httpAddr); err != nil {
				slog.Warn("http admin surface stopped", "error", err)
			}
		}()
		slog.Info("http admin surface listening", "addr", *httpAddr)
	}

	errCh := make(chan error, len(portList))
	for _, port := range portList {
		addr := net.JoinHostPort(bindHost(*listenHost, *ipv6), fmt.Sprintf("%d", port))
		go func(addr string) {
			errCh <- server.ListenAndServe(ctx, addr)
		}(addr)
		slog.Info("ircd listening", "addr", addr, "tls", tlsConfig != nil)
	}

	for range portList {
		if err := <-errCh; err != nil {
			slog.Error("listener stopped", "error", err)
		}
	}
}

// configureLogging installs the process-wide slog default handler: text
// output to stderr, or to -log-file when given, with the level chosen by
// -debug/-verbose (debug > verbose > default warn).
func configureLogging(logFile string, debug, verbose bool) error {
	out := os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out = f
	}
	level := slog.LevelWarn
	switch {
	case debug:
		level = slog.LevelDebug
	case verbose:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return nil
}

func bindHost(listenHost string, ipv6 bool) string {
	if listenHost != "" {
		return listenHost
	}
	if ipv6 {
		return "::"
	}
	return "0.0.0.0"
}

// parsePorts accepts a comma- or whitespace-separated port list, defaulting
// to 6667 (6697 when TLS is enabled), matching the original server's -ports
// flag.
func parsePorts(raw string, tlsEnabled bool) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if tlsEnabled {
			return []int{6697}, nil
		}
		return []int{6667}, nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	ports := make([]int, 0, len(fields))
	for _, f := range fields {
		var p int
		if _, err := fmt.Sscanf(f, "%d", &p); err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("invalid port %q", f)
		}
		ports = append(ports, p)
	}
	return ports, nil
}

// writePIDFile writes the current process id to path, refusing to overwrite
// an existing file, matching the original server's O_CREAT|O_EXCL policy.
func writePIDFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create pid file: %w", err)
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%d\n", os.Getpid())
	return err
}

// refuseRoot reproduces the original server's startup check: refuse to run
// as root unless -setuid was explicitly given.
func refuseRoot(setuid string) error {
	if os.Geteuid() != 0 {
		return nil
	}
	if setuid == "" {
		return fmt.Errorf("refusing to run as root without -setuid USER[:GROUP]")
	}
	slog.Warn("-setuid requested but privilege drop is not implemented in this build; continuing as root", "setuid", setuid)
	return nil
}

// metricsAdapter implements ircd.Metrics over the Prometheus collectors
// registered by httpadmin.NewMetrics.
type metricsAdapter struct {
	m *httpadmin.Metrics
}

func (a metricsAdapter) IncConnections()             { a.m.ConnectionsTotal.WithLabelValues().Inc() }
func (a metricsAdapter) IncCommand(cmd string)       { a.m.CommandsTotal.WithLabelValues(cmd).Inc() }
func (a metricsAdapter) IncDisconnect(reason string) { a.m.DisconnectsTotal.WithLabelValues(reason).Inc() }
func (a metricsAdapter) SetConnectedClients(n int)   { a.m.ConnectedClients.Set(float64(n)) }
func (a metricsAdapter) SetOpenChannels(n int)       { a.m.OpenChannels.Set(float64(n)) }
