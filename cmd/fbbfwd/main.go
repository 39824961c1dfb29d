// Command fbbfwd is a thin example entry point wiring a TCP transport to
// the fbb session engine: configuration parsing, log sink selection, and
// the CLI itself sit outside the core session engine proper.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/n4xyz/gofbb/ax25"
	"github.com/n4xyz/gofbb/b2f"
	"github.com/n4xyz/gofbb/fbb"
	"github.com/n4xyz/gofbb/transport"
)

func main() {
	kind := flag.String("transport", "tcp", `"tcp" or "kissax25" (KISS-framed AX.25 over a TCP-attached TNC)`)
	addr := flag.String("addr", "127.0.0.1:8772", "remote BBS TCP address, or the KISS TNC's TCP address under -transport=kissax25")
	callsign := flag.String("call", "N0CALL", "our callsign")
	ssid := flag.Int("ssid", 0, "our SSID")
	peerCall := flag.String("peer-call", "N0CALL", "peer callsign, under -transport=kissax25")
	peerSSID := flag.Int("peer-ssid", 0, "peer SSID, under -transport=kissax25")
	secret := flag.String("secret", "", "auth secret for ;PQ/;PR challenge response")
	metricsAddr := flag.String("metrics", "", "if set, serve Prometheus /metrics on this address")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out: os.Stdout,
	}).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if *debug {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}

	// Bridge the library-internal slog sink into the operator-facing
	// zerolog console logger: slog for library internals, zerolog for
	// the CLI.
	fbb.SetDefaultLogger(slog.New(zerologHandler{}))

	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			log.Info().Str("addr", *metricsAddr).Msg("serving metrics")
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	// A real caller populates the queue from its own message store; the
	// core exposes only the Queue/Connect surface. Message storage is
	// left to the embedding application.
	_ = b2f.Message{}

	// fbb.Dialer keys its dedup cache on the peer address, so concurrent
	// Connect calls to the same -addr within this process share one dial.
	// The cache lives in memory only: separate fbbfwd processes each dial
	// on their own.
	dialer := fbb.NewDialer()
	report, err := dialer.Connect(context.Background(), *addr,
		func() (transport.Transport, error) {
			return newTransport(*kind, *addr, *callsign, *ssid, *peerCall, *peerSSID)
		},
		fbb.SessionConfig{
			Callsign:      *callsign,
			SSID:          *ssid,
			Secret:        *secret,
			EnableReverse: true,
		},
		nil,
	)
	if err != nil {
		log.Error().Err(err).Msg("session ended with error")
		os.Exit(1)
	}
	for _, r := range report.Sent {
		fmt.Printf("sent %s: %s\n", r.Mid, r.Status)
	}
	for _, m := range report.Received {
		fmt.Printf("received %s from %s\n", m.Mid, m.From)
	}
}

// newTransport builds the transport named by kind. Under "kissax25", addr
// is the TCP address of the KISS TNC (e.g. a direwolf instance); the
// AX.25 link-layer events it drives feed directly into package fbb's
// Prometheus counters, the same counters a plain TCP session leaves at
// zero.
func newTransport(kind, addr, call string, ssid int, peerCall string, peerSSID int) (transport.Transport, error) {
	switch kind {
	case "tcp":
		return transport.NewTCP(transport.TCPConfig{Addr: addr}, nil), nil
	case "kissax25":
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dial KISS TNC: %w", err)
		}
		local, err := ax25.NewAddress(call, ssid)
		if err != nil {
			return nil, fmt.Errorf("local callsign: %w", err)
		}
		peer, err := ax25.NewAddress(peerCall, peerSSID)
		if err != nil {
			return nil, fmt.Errorf("peer callsign: %w", err)
		}
		return transport.NewKissAX25(conn, transport.KissAX25Config{
			Local:          local,
			Peer:           peer,
			OnRetransmit:   fbb.IncAX25Retransmit,
			OnT1Expiry:     fbb.IncT1Expiry,
			OnChecksumFail: func([]byte) { fbb.IncKissChecksumFailure() },
		}, nil), nil
	default:
		return nil, fmt.Errorf("unknown -transport %q (want tcp or kissax25)", kind)
	}
}

// zerologHandler adapts log/slog records to the global zerolog logger,
// grounded on the same "two logging libraries, two audiences" split the
// teacher keeps between sip/logger.go (slog) and cmd/proxysip/main.go
// (zerolog).
type zerologHandler struct{}

func (zerologHandler) Enabled(context.Context, slog.Level) bool { return true }

func (zerologHandler) Handle(_ context.Context, r slog.Record) error {
	var ev *zerolog.Event
	switch {
	case r.Level >= slog.LevelError:
		ev = log.Error()
	case r.Level >= slog.LevelWarn:
		ev = log.Warn()
	case r.Level >= slog.LevelInfo:
		ev = log.Info()
	default:
		ev = log.Debug()
	}
	r.Attrs(func(a slog.Attr) bool {
		ev = ev.Str(a.Key, a.Value.String())
		return true
	})
	ev.Msg(r.Message)
	return nil
}

func (h zerologHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h zerologHandler) WithGroup(string) slog.Handler      { return h }
