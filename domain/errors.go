package domain

import "errors"

var (
	// ErrUnknownConnection is returned when a packet references a peer that
	// has no entry in the connection table.
	ErrUnknownConnection = errors.New("crypto transport: unknown connection")

	// ErrConnectionExists is returned when a caller tries to create a
	// connection for a peer that already has one.
	ErrConnectionExists = errors.New("crypto transport: connection already exists")

	// ErrHandshakeTimeout is returned when a connection never reaches
	// Established after exhausting its handshake retry budget.
	ErrHandshakeTimeout = errors.New("crypto transport: handshake timed out")

	// ErrWindowFull is returned by SubmitLossless when the send window has
	// no free slot for a new packet.
	ErrWindowFull = errors.New("crypto transport: send window full")

	// ErrSendQueueClosed is declared for a closed send queue; no function
	// in the core returns it (submitting to a connection that has been
	// torn down returns ErrUnknownConnection).
	ErrSendQueueClosed = errors.New("crypto transport: send queue closed")

	// ErrNotEstablished is returned when a caller tries to send data over a
	// connection that has not completed its handshake.
	ErrNotEstablished = errors.New("crypto transport: session not established")

	// ErrInvalidCookie is returned when a cookie fails MAC verification or
	// has expired.
	ErrInvalidCookie = errors.New("crypto transport: invalid or expired cookie")

	// ErrDecryptFailed is returned when box/secretbox authentication fails.
	ErrDecryptFailed = errors.New("crypto transport: decryption failed")

	// ErrMalformedPacket is returned when a wire packet is shorter than its
	// minimum fixed layout or carries an unrecognized kind byte.
	ErrMalformedPacket = errors.New("crypto transport: malformed packet")

	// ErrReplayedNonce is returned when a CryptoData packet's low nonce
	// cannot be placed unambiguously relative to the last accepted nonce,
	// and when a repeated CryptoHandshake for an Established connection is
	// rejected. A duplicate lossless packet is dropped without an error.
	ErrReplayedNonce = errors.New("crypto transport: replayed or stale sequence number")

	// ErrNonceOverflow is declared for an exhausted sequence counter; no
	// function in the core returns it.
	ErrNonceOverflow = errors.New("crypto transport: sequence counter exhausted")
)
