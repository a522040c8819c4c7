// Package wire implements the four packet layouts the crypto transport
// core exchanges with a peer. Every function here is a pure
// encode/decode: no cryptographic operation and no connection state, so
// the codecs can be tested in isolation from the handshake and channel
// logic that calls them.
package wire

import (
	"encoding/binary"

	"p2pcrypto/domain"
)

const kindSize = 1

// CookieRequest carries the requester's DHT public key in the clear (so
// the responder can compute the shared key needed to open the encrypted
// body) plus a nonce and an opaque ciphertext produced by the caller.
//
// Layout: kind(1) | SenderDHTPK(32) | Nonce(24) | Ciphertext(...)
type CookieRequest struct {
	SenderDHTPK domain.PublicKey
	Nonce       [24]byte
	Ciphertext  []byte
}

const cookieRequestHeaderSize = kindSize + domain.KeySize + 24

func EncodeCookieRequest(r CookieRequest) []byte {
	buf := make([]byte, cookieRequestHeaderSize+len(r.Ciphertext))
	buf[0] = byte(domain.KindCookieRequest)
	copy(buf[1:1+domain.KeySize], r.SenderDHTPK[:])
	copy(buf[1+domain.KeySize:cookieRequestHeaderSize], r.Nonce[:])
	copy(buf[cookieRequestHeaderSize:], r.Ciphertext)
	return buf
}

func DecodeCookieRequest(buf []byte) (CookieRequest, error) {
	if len(buf) <= cookieRequestHeaderSize || buf[0] != byte(domain.KindCookieRequest) {
		return CookieRequest{}, domain.ErrMalformedPacket
	}
	var r CookieRequest
	copy(r.SenderDHTPK[:], buf[1:1+domain.KeySize])
	copy(r.Nonce[:], buf[1+domain.KeySize:cookieRequestHeaderSize])
	r.Ciphertext = append([]byte(nil), buf[cookieRequestHeaderSize:]...)
	return r, nil
}

// CookieResponse carries an encrypted body (opaque to this package) that,
// once opened, contains the minted cookie plus the requester's echo id;
// nothing outside the ciphertext identifies the request.
//
// Layout: kind(1) | Nonce(24) | Ciphertext(...)
type CookieResponse struct {
	Nonce      [24]byte
	Ciphertext []byte
}

const cookieResponseHeaderSize = kindSize + 24

func EncodeCookieResponse(r CookieResponse) []byte {
	buf := make([]byte, cookieResponseHeaderSize+len(r.Ciphertext))
	buf[0] = byte(domain.KindCookieResponse)
	copy(buf[1:cookieResponseHeaderSize], r.Nonce[:])
	copy(buf[cookieResponseHeaderSize:], r.Ciphertext)
	return buf
}

func DecodeCookieResponse(buf []byte) (CookieResponse, error) {
	if len(buf) <= cookieResponseHeaderSize || buf[0] != byte(domain.KindCookieResponse) {
		return CookieResponse{}, domain.ErrMalformedPacket
	}
	var r CookieResponse
	copy(r.Nonce[:], buf[1:cookieResponseHeaderSize])
	r.Ciphertext = append([]byte(nil), buf[cookieResponseHeaderSize:]...)
	return r, nil
}

// CryptoHandshake carries the cookie the sender previously received
// (echoed verbatim, still encrypted under the responder's cookie jar
// key) alongside a freshly encrypted body containing the sender's session
// public key and base nonce.
//
// Layout: kind(1) | Cookie(cookieSize) | Nonce(24) | Ciphertext(...)
type CryptoHandshake struct {
	Cookie     []byte // opaque, cookie.EncodedSize bytes
	Nonce      [24]byte
	Ciphertext []byte
}

func EncodeCryptoHandshake(h CryptoHandshake) []byte {
	headerSize := kindSize + len(h.Cookie) + 24
	buf := make([]byte, headerSize+len(h.Ciphertext))
	buf[0] = byte(domain.KindCryptoHandshake)
	off := kindSize
	copy(buf[off:off+len(h.Cookie)], h.Cookie)
	off += len(h.Cookie)
	copy(buf[off:off+24], h.Nonce[:])
	off += 24
	copy(buf[off:], h.Ciphertext)
	return buf
}

func DecodeCryptoHandshake(buf []byte, cookieSize int) (CryptoHandshake, error) {
	headerSize := kindSize + cookieSize + 24
	if len(buf) <= headerSize || buf[0] != byte(domain.KindCryptoHandshake) {
		return CryptoHandshake{}, domain.ErrMalformedPacket
	}
	var h CryptoHandshake
	off := kindSize
	h.Cookie = append([]byte(nil), buf[off:off+cookieSize]...)
	off += cookieSize
	copy(h.Nonce[:], buf[off:off+24])
	off += 24
	h.Ciphertext = append([]byte(nil), buf[off:]...)
	return h, nil
}

// CryptoData is the steady-state data packet. Only the low 16 bits of
// the sender's nonce counter travel on the wire; the receiver
// reconstructs the full nonce from its own running counter. Everything
// else — the piggybacked acknowledgment, the packet's own sequence
// number, and the data kind — lives inside the encrypted body, not the
// cleartext header, so none of it can be tampered with in transit.
//
// Layout: kind(1) | LowNonce(2, big-endian) | Ciphertext(...)
//
// The plaintext CryptoDataBody sealed inside Ciphertext is:
//
//	BufferStart(4, big-endian) | PacketNumber(4, big-endian) | DataKind(1) | payload
type CryptoData struct {
	LowNonce   uint16
	Ciphertext []byte
}

const cryptoDataHeaderSize = kindSize + 2

func EncodeCryptoData(d CryptoData) []byte {
	buf := make([]byte, cryptoDataHeaderSize+len(d.Ciphertext))
	buf[0] = byte(domain.KindCryptoData)
	binary.BigEndian.PutUint16(buf[1:cryptoDataHeaderSize], d.LowNonce)
	copy(buf[cryptoDataHeaderSize:], d.Ciphertext)
	return buf
}

func DecodeCryptoData(buf []byte) (CryptoData, error) {
	if len(buf) <= cryptoDataHeaderSize || buf[0] != byte(domain.KindCryptoData) {
		return CryptoData{}, domain.ErrMalformedPacket
	}
	var d CryptoData
	d.LowNonce = binary.BigEndian.Uint16(buf[1:cryptoDataHeaderSize])
	d.Ciphertext = append([]byte(nil), buf[cryptoDataHeaderSize:]...)
	return d, nil
}

// cryptoDataBodyHeaderSize is the width of the BufferStart|PacketNumber|
// DataKind prefix ahead of the payload inside a CryptoData's decrypted
// plaintext.
const cryptoDataBodyHeaderSize = 4 + 4 + 1

// CryptoDataBody is the plaintext sealed inside a CryptoData packet.
type CryptoDataBody struct {
	BufferStart  uint32 // sender's RecvArray.Start(), a piggybacked ack of the peer's sends
	PacketNumber uint32 // this packet's own SendArray sequence number, 0 for untracked sends
	Kind         domain.DataKind
	Payload      []byte
}

func EncodeCryptoDataBody(b CryptoDataBody) []byte {
	buf := make([]byte, cryptoDataBodyHeaderSize+len(b.Payload))
	binary.BigEndian.PutUint32(buf[0:4], b.BufferStart)
	binary.BigEndian.PutUint32(buf[4:8], b.PacketNumber)
	buf[8] = byte(b.Kind)
	copy(buf[cryptoDataBodyHeaderSize:], b.Payload)
	return buf
}

func DecodeCryptoDataBody(plain []byte) (CryptoDataBody, error) {
	if len(plain) < cryptoDataBodyHeaderSize {
		return CryptoDataBody{}, domain.ErrMalformedPacket
	}
	var b CryptoDataBody
	b.BufferStart = binary.BigEndian.Uint32(plain[0:4])
	b.PacketNumber = binary.BigEndian.Uint32(plain[4:8])
	b.Kind = domain.DataKind(plain[8])
	b.Payload = plain[cryptoDataBodyHeaderSize:]
	return b, nil
}

// PeekKind reads the kind byte without allocating, so a dispatcher can
// route a packet before running any codec.
func PeekKind(buf []byte) (domain.PacketKind, error) {
	if len(buf) == 0 {
		return 0, domain.ErrMalformedPacket
	}
	return domain.PacketKind(buf[0]), nil
}
