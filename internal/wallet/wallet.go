// Package wallet is the cyclic collaborator between the device and the
// transaction pipeline (spec.md §9): it exposes capabilities the
// pipeline consumes — Sign and ObserveActiveAccount — without ever
// holding a reference back into the pipeline. The pipeline depends on
// the Wallet interface, never on a concrete implementation.
package wallet

import (
	"context"
	"fmt"

	"github.com/radixdlt/ledger-core/internal/apdu"
	"github.com/radixdlt/ledger-core/internal/device"
	"github.com/radixdlt/ledger-core/internal/model"
)

// Wallet is the capability surface the pipeline consumes, per spec.md §6.
type Wallet interface {
	// Sign drives the device (or an equivalent software signer) through
	// the SIGN_TX flow and returns the resulting signature.
	Sign(ctx context.Context, built model.BuiltTransaction, nonXRDHRP string) ([]byte, error)

	// PublicKey returns the raw public key of the account Sign signs
	// with, completing the §3 Signed Transaction tuple
	// (built_transaction_bytes, signature, signer_public_key).
	PublicKey(ctx context.Context) ([]byte, error)

	// ObserveActiveAccount streams the account currently selected on the
	// device; closes when ctx is cancelled.
	ObserveActiveAccount(ctx context.Context) <-chan model.Account
}

// KeySource derives public keys for a BIP44-shaped HD path without ever
// exposing private key material, mirroring the teacher's KeySource
// contract but scoped to the Radix coin type.
type KeySource interface {
	GetPublicKey(ctx context.Context, path apdu.HDPath) ([]byte, error)
}

// DeviceWallet is the production Wallet: it drives a real (or loopback)
// device.Session through the APDU protocol in internal/apdu.
type DeviceWallet struct {
	session *device.Session
	path    apdu.HDPath
	display bool // whether to ask the device to show the path on-screen
}

// NewDeviceWallet builds a Wallet bound to a single account path and
// device session.
func NewDeviceWallet(session *device.Session, path apdu.HDPath, display bool) (*DeviceWallet, error) {
	if err := path.Validate(); err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	return &DeviceWallet{session: session, path: path, display: display}, nil
}

// GetPublicKey implements KeySource.
func (w *DeviceWallet) GetPublicKey(ctx context.Context, path apdu.HDPath) ([]byte, error) {
	frame, err := apdu.GetPublicKey(path, w.display)
	if err != nil {
		return nil, err
	}
	return w.session.Send(ctx, frame)
}

// PublicKey implements Wallet by returning the public key of the
// account this wallet signs with.
func (w *DeviceWallet) PublicKey(ctx context.Context) ([]byte, error) {
	return w.GetPublicKey(ctx, w.path)
}

// Sign streams built through the SIGN_TX metadata + instruction frames
// (spec.md §4.4), returning the signature carried in the final
// instruction frame's response. Re-sending a frame is never attempted —
// on any device error, the session is left dirty and the caller must
// Reset it before the next transaction, per spec.md §4.4 and §9.
func (w *DeviceWallet) Sign(ctx context.Context, built model.BuiltTransaction, nonXRDHRP string) ([]byte, error) {
	if w.session.Dirty() {
		if err := w.session.Reset(ctx); err != nil {
			return nil, fmt.Errorf("wallet: device session dirty and reset failed: %w", err)
		}
	}

	stream, err := apdu.BuildSignTxStream(w.path, uint32(built.ByteCount), built.Instructions, nonXRDHRP)
	if err != nil {
		return nil, err
	}

	if _, err := w.session.Send(ctx, stream.Metadata); err != nil {
		return nil, fmt.Errorf("wallet: sign_tx metadata frame: %w", err)
	}

	var signature []byte
	for i, frame := range stream.Instructions {
		resp, err := w.session.Send(ctx, frame)
		if err != nil {
			return nil, fmt.Errorf("wallet: sign_tx instruction frame %d/%d: %w", i+1, len(stream.Instructions), err)
		}
		// Only the final frame's response carries the signature; the
		// device returns an empty payload for intermediate frames.
		if i == len(stream.Instructions)-1 {
			signature = resp
		}
	}
	if len(signature) == 0 {
		return nil, fmt.Errorf("wallet: device returned empty signature")
	}
	return signature, nil
}

// ObserveActiveAccount is a minimal implementation that emits the
// wallet's single configured account once and then blocks until ctx is
// cancelled. Multi-account devices would poll GET_PUBLIC_KEY per slot
// and emit on change; this app pins one account per DeviceWallet.
func (w *DeviceWallet) ObserveActiveAccount(ctx context.Context) <-chan model.Account {
	out := make(chan model.Account, 1)
	go func() {
		defer close(out)
		pk, err := w.GetPublicKey(ctx, w.path)
		if err != nil {
			return
		}
		select {
		case out <- model.Account{Address: fmt.Sprintf("%x", pk), Path: pathString(w.path)}:
		case <-ctx.Done():
			return
		}
		<-ctx.Done()
	}()
	return out
}

func pathString(p apdu.HDPath) string {
	s := "m"
	for _, c := range p {
		if c.Hardened {
			s += fmt.Sprintf("/%d'", c.Index)
		} else {
			s += fmt.Sprintf("/%d", c.Index)
		}
	}
	return s
}

var _ Wallet = (*DeviceWallet)(nil)

// StaticWallet is a test/dev Wallet that signs with a fixed signature
// and emits a fixed account, bypassing the device entirely — the
// "pure-software equivalent" spec.md §4.6 step 4 allows for.
type StaticWallet struct {
	Signature      []byte
	PublicKeyBytes []byte
	Account        model.Account
	SignErr        error
}

func (s *StaticWallet) Sign(ctx context.Context, built model.BuiltTransaction, nonXRDHRP string) ([]byte, error) {
	if s.SignErr != nil {
		return nil, s.SignErr
	}
	return s.Signature, nil
}

// PublicKey implements Wallet by returning the configured key.
func (s *StaticWallet) PublicKey(ctx context.Context) ([]byte, error) {
	return s.PublicKeyBytes, nil
}

func (s *StaticWallet) ObserveActiveAccount(ctx context.Context) <-chan model.Account {
	out := make(chan model.Account, 1)
	out <- s.Account
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out
}

var _ Wallet = (*StaticWallet)(nil)
