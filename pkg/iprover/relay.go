// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package iprover

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/AleutianAI/saturation/pkg/logging"
)

// RecordSeparator terminates every JSON object on the wire, both
// directions. A single object may be fragmented across TCP reads, so the
// relay reassembles records by scanning for this byte sequence.
const RecordSeparator = "\n\x00\n"

// Control tags framing the relay conversation. iProver ends each batch
// of requests with the queries-start tag (our turn to answer) and closes
// the session with the proof tag.
const (
	// TagQueriesStart marks the end of one batch of prover requests.
	TagQueriesStart = "server_queries_start"

	// TagSessionEnd marks prover shutdown.
	TagSessionEnd = "proof_out"

	// TagQueriesEnd acknowledges a request batch on the way out.
	TagQueriesEnd = "server_queries_end"

	// TagGivenClause carries the clause-selection decision on the way
	// out.
	TagGivenClause = "given_clause_res"
)

// stopWait bounds how long Stop waits for the relay goroutine to observe
// shutdown and exit.
const stopWait = 5 * time.Second

// =============================================================================
// RELAY SERVER
// =============================================================================

// RelayServer bridges one inbound prover TCP connection into two
// blocking queues.
//
// Description:
//
//	The prover connects back to this process as a TCP client. A single
//	background goroutine accepts exactly one connection per episode and
//	relays its framed JSON messages onto the inbound channel, in socket
//	order. Whenever the prover signals the end of a request batch
//	(TagQueriesStart), the goroutine blocks on the outbound channel for
//	a caller-supplied response, writes it to the socket, and resumes
//	reading. On TagSessionEnd it exits.
//
//	The inbound channel is closed when the goroutine exits — whether by
//	session end, malformed input or shutdown — so a blocked caller can
//	never deadlock on a dead session.
//
// Thread Safety:
//
//	Exactly one relay goroutine produces on the inbound channel and one
//	caller consumes it; the outbound channel runs the opposite way.
type RelayServer struct {
	listener net.Listener
	inbound  chan Message
	outbound chan []byte
	shutdown chan struct{}
	done     chan struct{}
	logger   *logging.Logger
	stopOnce sync.Once
}

// StartRelay binds a TCP listener on an ephemeral loopback port and
// starts the relay goroutine.
//
// Outputs:
//
//	*RelayServer - The running relay; tear down with Stop.
//	error - Non-nil if the listener could not be bound.
func StartRelay(logger *logging.Logger) (*RelayServer, error) {
	if logger == nil {
		logger = logging.Default()
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("bind relay listener: %w", err)
	}
	r := &RelayServer{
		listener: listener,
		inbound:  make(chan Message, 64),
		outbound: make(chan []byte, 1),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger,
	}
	go r.serve()
	return r, nil
}

// Port returns the bound listener port, to be passed to the prover on
// its command line.
func (r *RelayServer) Port() int {
	return r.listener.Addr().(*net.TCPAddr).Port
}

// Inbound returns the channel of relayed prover messages. The channel is
// closed when the relay session ends.
func (r *RelayServer) Inbound() <-chan Message {
	return r.inbound
}

// Send enqueues one pre-framed response for the relay goroutine to write
// to the socket. It fails rather than blocks when the relay has shut
// down.
func (r *RelayServer) Send(frame []byte) error {
	select {
	case r.outbound <- frame:
		return nil
	case <-r.done:
		return fmt.Errorf("relay session already ended")
	}
}

// Stop shuts the relay down: stop accepting, unblock the goroutine and
// join it with a bound. Idempotent.
func (r *RelayServer) Stop() {
	r.stopOnce.Do(func() {
		close(r.shutdown)
		_ = r.listener.Close()
		select {
		case <-r.done:
		case <-time.After(stopWait):
			r.logger.Warn("relay goroutine did not stop in time")
		}
	})
}

// serve is the relay goroutine body: accept one connection, relay it,
// close the inbound channel on the way out.
func (r *RelayServer) serve() {
	defer close(r.done)
	defer close(r.inbound)

	conn, err := r.listener.Accept()
	if err != nil {
		// Listener closed before the prover connected.
		return
	}
	defer conn.Close()

	// Closing the connection is what unblocks a pending read when Stop
	// is called mid-session.
	go func() {
		<-r.shutdown
		_ = conn.Close()
	}()

	r.relay(conn)
}

// relay runs the read-split-dispatch loop on the accepted connection.
func (r *RelayServer) relay(conn net.Conn) {
	sep := []byte(RecordSeparator)
	var buf []byte
	tmp := make([]byte, 4096)
	for {
		n, readErr := conn.Read(tmp)
		buf = append(buf, tmp[:n]...)

		for {
			idx := bytes.Index(buf, sep)
			if idx < 0 {
				break
			}
			record := buf[:idx]
			buf = buf[idx+len(sep):]
			if len(bytes.TrimSpace(record)) == 0 {
				continue
			}
			msg, err := decodeMessage(record)
			if err != nil {
				// A frame we cannot parse poisons the session:
				// exiting closes the inbound channel, which the
				// caller surfaces as a protocol violation.
				r.logger.Error("undecodable relay record", "error", err.Error())
				return
			}
			select {
			case r.inbound <- msg:
			case <-r.shutdown:
				return
			}
			switch msg.Tag {
			case TagQueriesStart:
				// The prover finished a request batch and now
				// waits for our decision.
				select {
				case frame := <-r.outbound:
					if _, err := conn.Write(frame); err != nil {
						r.logger.Error("relay write failed", "error", err.Error())
						return
					}
				case <-r.shutdown:
					return
				}
			case TagSessionEnd:
				return
			}
		}

		if readErr != nil {
			return
		}
	}
}
