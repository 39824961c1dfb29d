package fbb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level metric vars registered against prometheus.DefaultRegisterer.
// This package only registers and increments them; an embedding CLI decides
// whether and how to serve /metrics.
var (
	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gofbb",
		Name:      "sessions_started_total",
		Help:      "FBB sessions started.",
	})
	sessionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gofbb",
		Name:      "sessions_closed_total",
		Help:      "FBB sessions closed, labeled by outcome.",
	}, []string{"outcome"})
	bytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gofbb",
		Name:      "bytes_sent_total",
		Help:      "Message body bytes streamed to peers.",
	})
	bytesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gofbb",
		Name:      "bytes_received_total",
		Help:      "Message body bytes received from peers.",
	})
	proposalsByVerdict = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gofbb",
		Name:      "proposals_total",
		Help:      "Proposals processed, labeled by verdict character.",
	}, []string{"verdict"})
	ax25Retransmits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gofbb",
		Name:      "ax25_retransmits_total",
		Help:      "AX.25 frame retransmissions (after T1 expiry or on REJ) observed by sessions using an AX.25 transport.",
	})
	t1Expiries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gofbb",
		Name:      "ax25_t1_expiries_total",
		Help:      "AX.25 T1 timer expiries observed by sessions using an AX.25 transport.",
	})
	kissChecksumFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gofbb",
		Name:      "kiss_checksum_failures_total",
		Help:      "KISS frames silently discarded for checksum mismatch.",
	})
)

// IncAX25Retransmit, IncT1Expiry, and IncKissChecksumFailure are exported so
// a caller wiring up a KISS+AX.25 transport (e.g. via
// transport.KissAX25Config's OnRetransmit/OnT1Expiry/OnChecksumFail hooks)
// can feed link-layer events into this package's counters without this
// package importing transport/ax25/kiss itself.
func IncAX25Retransmit()      { ax25Retransmits.Inc() }
func IncT1Expiry()            { t1Expiries.Inc() }
func IncKissChecksumFailure() { kissChecksumFailures.Inc() }
