// Command dcnet-coordinator serves one or more configured groups over
// WebSocket, running the coordinator half of the protocol (spec
// section 2). Exit codes and CLI surface are explicitly out of scope
// per spec section 6, so this binary is deliberately minimal: serve,
// and optionally dump a debug snapshot.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/luxfi/dcnet/internal/coordinator"
	"github.com/luxfi/dcnet/internal/persist"
	"github.com/luxfi/dcnet/internal/transport"
	"github.com/luxfi/dcnet/pkg/group"
)

var (
	listenAddr     string
	groupConfig    string
	pacingInterval time.Duration
	snapshotPath   string
	verbose        bool

	rootCmd = &cobra.Command{
		Use:   "dcnet-coordinator",
		Short: "Serve a sender-anonymous group messaging round over WebSocket",
		RunE:  runServe,
	}
)

func init() {
	rootCmd.Flags().StringVarP(&listenAddr, "listen", "l", ":8765", "address to listen on")
	rootCmd.Flags().StringVarP(&groupConfig, "groups", "g", "", "path to a group configuration JSON file (omit to use the built-in reference groups)")
	rootCmd.Flags().DurationVarP(&pacingInterval, "pacing-interval", "p", coordinator.DefaultPacingInterval, "round-opening pacing interval")
	rootCmd.Flags().StringVar(&snapshotPath, "snapshot", "", "if set, write a CBOR debug snapshot to this path on SIGUSR1")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func runServe(cmd *cobra.Command, args []string) error {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.WithField("component", "dcnet-coordinator")

	var groups []*group.Group
	if groupConfig != "" {
		var err error
		groups, err = group.LoadGroups(groupConfig)
		if err != nil {
			return err
		}
	} else {
		groups = group.Reference(".")
		log.Warn("no --groups file given, serving the built-in reference groups")
	}

	c := coordinator.New(groups)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.RunPacing(ctx, pacingInterval)

	if snapshotPath != "" {
		go watchSnapshotSignal(c, snapshotPath, log)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := transport.Upgrade(w, r)
		if err != nil {
			log.WithError(err).Warn("websocket upgrade failed")
			return
		}
		go c.HandleConnection(conn)
	})

	log.WithField("addr", listenAddr).Info("listening")
	return http.ListenAndServe(listenAddr, mux)
}

func watchSnapshotSignal(c *coordinator.Coordinator, path string, log *logrus.Entry) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	for range sigs {
		if err := persist.WriteSnapshot(path, c.Snapshot()); err != nil {
			log.WithError(err).Warn("failed to write debug snapshot")
			continue
		}
		log.WithField("path", path).Info("wrote debug snapshot")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("dcnet-coordinator: fatal error")
	}
}
