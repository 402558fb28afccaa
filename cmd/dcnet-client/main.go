// Command dcnet-client is a REPL driver for the participant protocol
// engine: join a group, type lines to enqueue them for anonymous
// broadcast, and watch decoded deliveries scroll by. The end-user chat
// UI itself is out of scope (spec section 1); this is the
// Engine.Enqueue/Engine.Deliveries seam with the thinnest possible
// terminal front end; no GUI anywhere.
package main

import (
	"bufio"
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/luxfi/dcnet/internal/engine"
	"github.com/luxfi/dcnet/internal/handshake"
	"github.com/luxfi/dcnet/internal/transport"
	"github.com/luxfi/dcnet/pkg/group"
	"github.com/luxfi/dcnet/pkg/party"
)

var (
	serverURL   string
	groupConfig string
	groupName   string
	participant string
	password    string
	keyDir      string
	verbose     bool

	rootCmd = &cobra.Command{
		Use:   "dcnet-client",
		Short: "Join a sender-anonymous group and exchange messages",
		RunE:  runClient,
	}
)

func init() {
	rootCmd.Flags().StringVarP(&serverURL, "server", "s", "ws://localhost:8765/", "coordinator WebSocket URL")
	rootCmd.Flags().StringVarP(&groupConfig, "groups", "c", "", "path to a group configuration JSON file (omit to use the built-in reference groups)")
	rootCmd.Flags().StringVarP(&groupName, "group", "g", "", "group name to join (required)")
	rootCmd.Flags().StringVarP(&participant, "participant", "i", "", "this participant's name within the group (required)")
	rootCmd.Flags().StringVarP(&password, "password", "w", "", "group password")
	rootCmd.Flags().StringVarP(&keyDir, "key-dir", "k", ".", "directory holding this participant's RSA key pair")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	_ = rootCmd.MarkFlagRequired("group")
	_ = rootCmd.MarkFlagRequired("participant")
}

func runClient(cmd *cobra.Command, args []string) error {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.WithField("component", "dcnet-client")

	var groups []*group.Group
	var err error
	if groupConfig != "" {
		groups, err = group.LoadGroups(groupConfig)
	} else {
		groups = group.Reference(keyDir)
	}
	if err != nil {
		return err
	}
	g := findGroup(groups, groupName)
	if g == nil {
		return fmt.Errorf("dcnet-client: no group named %q", groupName)
	}

	self := party.ID(participant)
	privPath := group.PrivateKeyPath(keyDir, self)
	privKey, err := handshake.LoadPrivateKey(privPath)
	if err != nil {
		return err
	}

	publicKeys := func(peer party.ID) (*rsa.PublicKey, error) {
		p, ok := g.Participant(peer)
		if !ok {
			return nil, fmt.Errorf("dcnet-client: %q is not a member of group %q", peer, g.Name)
		}
		return handshake.LoadPublicKey(p.PublicKeyPath)
	}

	conn, err := transport.Dial(serverURL)
	if err != nil {
		return err
	}

	e := engine.New(self, conn, privKey, publicKeys)
	go func() {
		if err := e.Run(); err != nil {
			log.WithError(err).Warn("engine stopped")
		}
	}()

	if err := e.Join(g.Name, password); err != nil {
		return fmt.Errorf("dcnet-client: join failed: %w", err)
	}
	log.WithField("group", g.Name).Info("joined, waiting for the group to reach quorum")

	go printDeliveries(e)
	return readLines(e)
}

func printDeliveries(e *engine.Engine) {
	for d := range e.Deliveries() {
		if d.Own {
			fmt.Printf("[you] %s\n", d.Text)
		} else {
			fmt.Printf("[anonymous] %s\n", d.Text)
		}
	}
}

func readLines(e *engine.Engine) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := e.Enqueue(line); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	return scanner.Err()
}

func findGroup(groups []*group.Group, name string) *group.Group {
	for _, g := range groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("dcnet-client: fatal error")
	}
}
