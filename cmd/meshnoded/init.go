package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"meshnoded/cmd/meshnoded/ui"
	"meshnoded/internal/config"
	"meshnoded/internal/controller"
	"meshnoded/internal/model"
	"meshnoded/internal/store"
)

func newInitCmd() *cobra.Command {
	var (
		dbPath       string
		namespace    string
		ethName      string
		domainPrefix string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the local node identity and join the cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return fmt.Errorf("-d <path> is required")
			}
			return runInit(cmd.Context(), dbPath, namespace, ethName, domainPrefix)
		},
	}

	cmd.Flags().StringVarP(&dbPath, "data", "d", "", "path to the node's persistent store file")
	cmd.Flags().StringVar(&namespace, "namespace", "", "network namespace name for this node")
	cmd.Flags().StringVar(&ethName, "eth", "", "host uplink interface name")
	cmd.Flags().StringVar(&domainPrefix, "domain-prefix", "", "controller base URL")
	return cmd
}

func runInit(ctx context.Context, dbPath, namespace, ethName, domainPrefix string) error {
	cfg, err := config.Load(filepath.Dir(dbPath))
	if err != nil {
		return fmt.Errorf("load agent config: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	namespace = promptIfEmpty(reader, namespace, "network namespace", "use --namespace")
	ethName = promptIfEmpty(reader, ethName, "host uplink interface", "use --eth")
	domainPrefix = promptIfEmpty(reader, domainPrefix, "controller base URL", "use --domain-prefix")
	if namespace == "" || ethName == "" || domainPrefix == "" {
		return fmt.Errorf("namespace, eth, and domain-prefix are all required")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if _, err := st.GetNodeSettings(ctx); err == nil {
		return fmt.Errorf("node settings already exist at %s; remove the store file to re-init", dbPath)
	} else if err != store.ErrNoNodeSettings {
		return fmt.Errorf("check existing node settings: %w", err)
	}

	var identityPEM string
	if err := ui.Step("generating node identity", func() error {
		pemStr, _, genErr := generateIdentity()
		if genErr != nil {
			return genErr
		}
		identityPEM = pemStr
		return nil
	}); err != nil {
		return err
	}

	var nodeID int64
	if err := ui.Step("joining cluster controller", func() error {
		priv, decErr := decodePrivateKeyPEM(identityPEM)
		if decErr != nil {
			return decErr
		}
		client, clientErr := controller.NewClient(domainPrefix, priv, cfg.HTTPTimeout)
		if clientErr != nil {
			return clientErr
		}
		id, joinErr := client.Join(ctx, identityPublicKeyHex(priv))
		if joinErr != nil {
			return fmt.Errorf("join controller: %w", joinErr)
		}
		nodeID = id
		return nil
	}); err != nil {
		return err
	}

	if err := ui.Step("persisting node settings", func() error {
		return st.SetNodeSettings(ctx, model.NodeSettings{
			Namespace:    namespace,
			EthName:      ethName,
			PrivateKey:   identityPEM,
			NodeID:       nodeID,
			DomainPrefix: domainPrefix,
		})
	}); err != nil {
		return err
	}

	fmt.Print(ui.KeyValues("  ",
		ui.KV("namespace", namespace),
		ui.KV("eth", ethName),
		ui.KV("domain-prefix", domainPrefix),
		ui.KV("node-id", fmt.Sprintf("%d", nodeID)),
	))
	fmt.Println(ui.SuccessMsg("node %s initialized", ui.Accent(namespace)))
	return nil
}

func promptIfEmpty(reader *bufio.Reader, value, label, bypassHint string) string {
	if value != "" {
		return value
	}
	if !ui.Interactive() {
		return ""
	}
	fmt.Printf("%s (%s): ", ui.Accent(label), ui.Muted(bypassHint))
	line, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}
