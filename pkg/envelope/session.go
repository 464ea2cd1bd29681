// Package envelope implements the gateway's server-to-server security
// envelope: AES-CBC encryption of TradeInfo with the vendor's 32-byte
// padding, and the TradeSha, CheckCode and CheckValue checksums.
package envelope

import (
	"bytes"
	"fmt"
)

// Session holds a merchant's HashKey and HashIV. It is immutable and safe
// for concurrent use.
type Session struct {
	key []byte
	iv  []byte
}

// NewSession creates a session. Key and iv sizes are checked only when
// encrypting or decrypting; checksums accept any length.
func NewSession(key, iv []byte) *Session {
	return &Session{
		key: bytes.Clone(key),
		iv:  bytes.Clone(iv),
	}
}

// Encrypt encrypts the payload into hex TradeInfo.
func (s *Session) Encrypt(p Payload) (string, error) {
	return Encrypt(s.key, s.iv, p)
}

// Decrypt decrypts hex TradeInfo into its form-encoded string.
func (s *Session) Decrypt(ciphertextHex string) (string, error) {
	return Decrypt(s.key, s.iv, ciphertextHex)
}

// TradeSha hashes encrypted TradeInfo.
func (s *Session) TradeSha(p Payload) (string, error) {
	return TradeSha(s.key, s.iv, p)
}

// CheckCode computes a CheckCode for the payload.
func (s *Session) CheckCode(v Variant, p Payload) (string, error) {
	return CheckCode(s.key, s.iv, v, p)
}

// CheckValue computes a CheckValue for the payload.
func (s *Session) CheckValue(v Variant, p Payload) (string, error) {
	return CheckValue(s.key, s.iv, v, p)
}

// VerifyTradeSha reports whether sha is the TradeSha of the encrypted payload.
func (s *Session) VerifyTradeSha(p Payload, sha string) (bool, error) {
	want, err := s.TradeSha(p)
	if err != nil {
		return false, err
	}
	return Equal(want, sha), nil
}

// VerifyCheckCode reports whether code is the CheckCode of the payload.
func (s *Session) VerifyCheckCode(v Variant, p Payload, code string) (bool, error) {
	want, err := s.CheckCode(v, p)
	if err != nil {
		return false, err
	}
	return Equal(want, code), nil
}

// Trade binds a payload to the session.
func (s *Session) Trade(p Payload) Trade {
	return Trade{session: s, payload: p}
}

// Trade is a session paired with one payload. Binding a new payload with
// Session.Trade returns a new value; a Trade is never modified.
type Trade struct {
	session *Session
	payload Payload
}

// Payload returns the bound payload.
func (t Trade) Payload() Payload {
	return t.payload
}

// Encrypt encrypts the bound payload into hex TradeInfo.
func (t Trade) Encrypt() (string, error) {
	return t.session.Encrypt(t.payload)
}

// Decrypt needs the bound payload to be Raw hex ciphertext.
func (t Trade) Decrypt() (string, error) {
	raw, ok := t.payload.(Raw)
	if !ok {
		return "", newError("decrypt", ErrTypeMismatch, fmt.Errorf("want opaque payload, got %T", t.payload))
	}
	return t.session.Decrypt(string(raw))
}

// TradeSha hashes the bound payload, which must be encrypted TradeInfo.
func (t Trade) TradeSha() (string, error) {
	return t.session.TradeSha(t.payload)
}

// CheckCode computes the CheckCode of the bound payload for v.
func (t Trade) CheckCode(v Variant) (string, error) {
	return t.session.CheckCode(v, t.payload)
}

// CheckValue computes the CheckValue of the bound payload for v.
func (t Trade) CheckValue(v Variant) (string, error) {
	return t.session.CheckValue(v, t.payload)
}
