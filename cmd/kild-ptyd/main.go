// Command kild-ptyd is the out-of-process PTY daemon (spec.md §4.6,
// §6.2): it owns agent PTY sessions so they outlive the CLI invocation
// that created them, and serves the engine's ptydaemon.Client over a
// Unix socket.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/re-cinq/kild/internal/fileutil"
	"github.com/re-cinq/kild/internal/ptydaemon"
)

func main() {
	socketPath := flag.String("socket", "", "path to the daemon's Unix socket (default: <shards-dir>/ptyd.sock)")
	flag.Parse()

	if *socketPath == "" {
		*socketPath = fileutil.DaemonSocketPath(fileutil.DefaultShardsDir())
	}
	if err := fileutil.EnsureDir(filepath.Dir(*socketPath)); err != nil {
		log.Fatalf("kild-ptyd: %v", err)
	}

	shardsDir := filepath.Dir(*socketPath)
	pidFile := fileutil.DaemonPIDFile(shardsDir)
	if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		log.Fatalf("kild-ptyd: writing pid file: %v", err)
	}
	defer os.Remove(pidFile)

	d := ptydaemon.NewDaemon(*socketPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		_ = d.Close()
		os.Remove(pidFile)
		os.Exit(0)
	}()

	fmt.Fprintf(os.Stderr, "kild-ptyd listening on %s\n", *socketPath)
	if err := d.Serve(); err != nil {
		log.Fatalf("kild-ptyd: %v", err)
	}
}
