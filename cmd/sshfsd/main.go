package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/calvera/sshfsd/internal/idmap"
	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/platform"
	"github.com/calvera/sshfsd/internal/sftpd"
	"github.com/calvera/sshfsd/pkg/config"
	"github.com/calvera/sshfsd/pkg/metrics"
	"github.com/calvera/sshfsd/pkg/transport/sshconn"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override log level (TRACE, DEBUG, INFO, WARN, ERROR)")
	writeDefault := flag.Bool("write-default-config", false, "Write a default config file to stdout and exit")

	flag.Parse()

	if *writeDefault {
		if err := writeDefaultConfig(os.Stdout); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetLevel(cfg.Logging.Level)

	fmt.Println("sshfsd - instance shared folder daemon")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		go serveMetrics(cfg.Metrics.Listen)
		logger.Info("Metrics listening on %s", cfg.Metrics.Listen)
	}

	servers := make([]*sftpd.Server, 0, len(cfg.Mounts))
	serverDone := make(chan error, len(cfg.Mounts))

	for _, mount := range cfg.Mounts {
		session, err := sshconn.Dial(sshconn.Config{
			Host:         cfg.SSH.Host,
			Port:         cfg.SSH.Port,
			User:         cfg.SSH.User,
			IdentityFile: cfg.SSH.IdentityFile,
			Timeout:      cfg.SSH.Timeout,
		})
		if err != nil {
			log.Fatalf("Failed to connect to %s: %v", cfg.SSH.Host, err)
		}

		server, err := sftpd.New(session, serverConfig(cfg, mount),
			platform.NewFileOps(), platform.New(), metrics.NewSFTPMetrics())
		if err != nil {
			log.Fatalf("Failed to start mount %s: %v", mount.Target, err)
		}

		logger.Info("Serving %s on %s:%s", mount.Source, cfg.SSH.Host, mount.Target)
		servers = append(servers, server)

		go func() {
			serverDone <- server.Run()
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	remaining := len(servers)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, stopping all mounts...")
		for _, server := range servers {
			server.Stop()
		}

	case err := <-serverDone:
		remaining--
		if err != nil {
			logger.Error("Mount server error: %v", err)
			exitCode = 1
		}
		for _, server := range servers {
			server.Stop()
		}
	}

	for ; remaining > 0; remaining-- {
		if err := <-serverDone; err != nil {
			logger.Error("Mount server error: %v", err)
			exitCode = 1
		}
	}

	logger.Info("All mounts stopped")
	os.Exit(exitCode)
}

func serverConfig(cfg *config.Config, mount config.MountConfig) sftpd.Config {
	return sftpd.Config{
		Source:           mount.Source,
		Target:           mount.Target,
		SSHFSExecLine:    mount.SSHFSExecLine,
		UIDMap:           idMapTable(mount.UIDMap),
		GIDMap:           idMapTable(mount.GIDMap),
		DefaultUID:       mount.DefaultUID,
		DefaultGID:       mount.DefaultGID,
		AppendWorkaround: cfg.SFTP.WriteAppendWorkaround,
	}
}

func idMapTable(entries []config.IDMapEntry) idmap.Table {
	table := make(idmap.Table, 0, len(entries))
	for _, e := range entries {
		table = append(table, idmap.Entry{Host: e.Host, Instance: e.Instance})
	}
	return table
}

func writeDefaultConfig(w *os.File) error {
	cfg := config.Default()

	out := map[string]any{
		"logging": map[string]any{"level": cfg.Logging.Level},
		"ssh": map[string]any{
			"host":          cfg.SSH.Host,
			"port":          cfg.SSH.Port,
			"user":          cfg.SSH.User,
			"identity_file": cfg.SSH.IdentityFile,
			"timeout":       cfg.SSH.Timeout.String(),
		},
		"sftp": map[string]any{
			"write_append_workaround": cfg.SFTP.WriteAppendWorkaround,
		},
		"metrics": map[string]any{
			"enabled": cfg.Metrics.Enabled,
			"listen":  cfg.Metrics.Listen,
		},
		"mounts": mountsYAML(cfg.Mounts),
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(out)
}

func mountsYAML(mounts []config.MountConfig) []map[string]any {
	out := make([]map[string]any, 0, len(mounts))
	for _, m := range mounts {
		out = append(out, map[string]any{
			"source":          m.Source,
			"target":          m.Target,
			"sshfs_exec_line": m.SSHFSExecLine,
			"uid_map":         idMapYAML(m.UIDMap),
			"gid_map":         idMapYAML(m.GIDMap),
			"default_uid":     m.DefaultUID,
			"default_gid":     m.DefaultGID,
		})
	}
	return out
}

func idMapYAML(entries []config.IDMapEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, fmt.Sprintf("%d:%d", e.Host, e.Instance))
	}
	return out
}

func serveMetrics(listen string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	if err := http.ListenAndServe(listen, mux); err != nil {
		logger.Error("Metrics listener failed: %v", err)
	}
}
