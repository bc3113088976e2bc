// Command radixledger is the demonstration wiring for the core
// library: keystore login, device/loopback wallet selection, node
// facade construction, and a single transaction driven through
// internal/pipeline, following the teacher's cmd/arcsign/main.go
// command-dispatch and dashboard-mode shape.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/radixdlt/ledger-core/internal/apdu"
	"github.com/radixdlt/ledger-core/internal/cliutil"
	"github.com/radixdlt/ledger-core/internal/config"
	"github.com/radixdlt/ledger-core/internal/device"
	"github.com/radixdlt/ledger-core/internal/keystore"
	"github.com/radixdlt/ledger-core/internal/model"
	"github.com/radixdlt/ledger-core/internal/node"
	"github.com/radixdlt/ledger-core/internal/pipeline"
	"github.com/radixdlt/ledger-core/internal/wallet"
)

const version = "0.1.0"

// ledgerVendorID/ledgerProductID are illustrative placeholders for the
// device's published USB vendor/product ID pair; spec.md §9 notes the
// exact APDU opcode and device identity values must come from the
// device's own published spec.
const (
	ledgerVendorID  = 0x2c97
	ledgerProductID = 0x0001
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "send":
		runSend(os.Args[2:])
	case "version":
		fmt.Printf("radixledger v%s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("radixledger - Radix hardware wallet transaction driver")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  radixledger send --keystore PATH [--loopback] [--config PATH]  Build, sign, and submit one transaction")
	fmt.Println("  radixledger version                                            Show version information")
	fmt.Println("  radixledger help                                               Show this help message")
}

func runSend(args []string) {
	var keystorePath, configPath string
	var loopback bool
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--keystore":
			i++
			keystorePath = args[i]
		case "--config":
			i++
			configPath = args[i]
		case "--loopback":
			loopback = true
		}
	}
	if keystorePath == "" {
		fmt.Fprintln(os.Stderr, "send: --keystore is required")
		os.Exit(1)
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fail(err)
		}
		cfg = loaded
	}
	if loopback {
		cfg.Transport.Kind = config.TransportLoopback
	}

	log := logrus.NewEntry(logrus.StandardLogger())
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	passphrase := readPassphrase()

	auditPath := filepath.Join(filepath.Dir(keystorePath), "audit.ndjson")
	store, err := keystore.NewCredentialStore(keystorePath, auditPath)
	if err != nil {
		fail(err)
	}
	ks, err := store.Load(ctx, passphrase)
	if err != nil {
		fail(err)
	}
	w, closeWallet := buildWallet(cfg, ks.DefaultPath)
	defer closeWallet()

	client := node.NewHTTPClient(cfg.Node.HTTPBaseURL, cfg.Node.Timeout)

	opts := pipeline.Options{
		UserConfirmation: pipeline.ConfirmSkip,
		Log:              log,
	}
	if cfg.Poll.Interval > 0 {
		ticker := time.NewTicker(cfg.Poll.Interval)
		defer ticker.Stop()
		opts.PollTrigger = ticker.C
	}
	if cfg.Node.WebSocketURL != "" {
		subscriber, err := node.NewStatusSubscriber(cfg.Node.WebSocketURL, log)
		if err != nil {
			log.WithError(err).Warn("radixledger: status subscriber unavailable, falling back to HTTP polling")
		} else {
			defer subscriber.Close()
			opts.StatusSource = subscriber.Subscribe
		}
	}

	intent := model.Intent{
		SenderAddress: "rdx1placeholder",
		Actions: []model.Action{
			{Kind: model.ActionTransfer, ResourceName: "xrd", Amount: "1", ToAddress: "rdx1recipient"},
		},
	}

	tracking := pipeline.Run(ctx, w, client, intent, intent.SenderAddress, opts)
	events, unsubscribe := tracking.Subscribe()
	defer unsubscribe()

	for e := range events {
		if err := cliutil.WriteTrackingEvent(e); err != nil {
			log.WithError(err).Warn("radixledger: failed to write tracking event")
		}
	}

	select {
	case c := <-tracking.Completion():
		if c.Err != nil {
			fail(c.Err)
		}
		fmt.Printf("transaction %s completed\n", c.TxID)
	case <-time.After(2 * time.Minute):
		fail(fmt.Errorf("timed out waiting for transaction completion"))
	}
}

// loopbackSignature and loopbackPublicKey are canned device responses
// for --loopback mode: a plausible-shaped (but not cryptographically
// meaningful) signature and SEC1-compressed public key, enough for the
// pipeline to complete end-to-end against the in-memory device.
var (
	loopbackSignature = bytes.Repeat([]byte{0xAB}, 65)
	loopbackPublicKey = append([]byte{0x02}, bytes.Repeat([]byte{0xCD}, 32)...)
)

func buildWallet(cfg *config.Config, path apdu.HDPath) (wallet.Wallet, func()) {
	switch cfg.Transport.Kind {
	case config.TransportLoopback:
		lb := device.NewLoopback()
		// Script every frame DeviceWallet.Sign and PublicKey can send in
		// the demo's single-transfer flow: the SIGN_TX metadata frame,
		// an intermediate instruction frame (p2=0x00, no payload), the
		// final instruction frame (p2=0x01, carries the signature), and
		// GET_PUBLIC_KEY. The p2=0x01 response always answers the last
		// instruction frame regardless of how many precede it.
		lb.Script(byte(apdu.InsDoSignTx), apdu.P1MetadataFrame, 0x00, nil, apdu.SWOK)
		lb.Script(byte(apdu.InsDoSignTx), apdu.P1InstructionFrame, 0x00, nil, apdu.SWOK)
		lb.Script(byte(apdu.InsDoSignTx), apdu.P1InstructionFrame, 0x01, loopbackSignature, apdu.SWOK)
		lb.Script(byte(apdu.InsGetPublicKey), 0x00, 0x00, loopbackPublicKey, apdu.SWOK)
		session := device.NewSession(lb)
		w, err := wallet.NewDeviceWallet(session, path, false)
		if err != nil {
			fail(err)
		}
		return w, func() { session.Close() }
	default:
		hidTransport, err := device.OpenHID(ledgerVendorID, ledgerProductID)
		if err != nil {
			fail(err)
		}
		session := device.NewSession(hidTransport)
		w, err := wallet.NewDeviceWallet(session, path, true)
		if err != nil {
			fail(err)
		}
		return w, func() { session.Close() }
	}
}

func readPassphrase() string {
	if cliutil.DetectMode() == cliutil.ModeDashboard {
		return os.Getenv("RADIXLEDGER_PASSPHRASE")
	}
	fmt.Fprint(os.Stderr, "keystore passphrase: ")
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fail(fmt.Errorf("reading passphrase: %w", err))
	}
	return string(data)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "radixledger: %v\n", err)
	os.Exit(1)
}
