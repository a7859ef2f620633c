package bittorrent

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/juju/errors"
)

// InfoHash is the 20-byte identifier of a torrent, carried in its
// 40-character lowercase hexadecimal form.
type InfoHash string

// ParseInfoHash validates and normalizes a hex info hash. Malformed input is
// a caller error and is never silently tolerated.
func ParseInfoHash(s string) (InfoHash, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", errors.NotValidf("info hash %q", s)
	}
	if len(raw) != sha1.Size {
		return "", errors.NotValidf("info hash %q: %d bytes", s, len(raw))
	}
	return InfoHash(strings.ToLower(s)), nil
}

// InfoHashFromBytes converts a raw 20-byte hash into its hex form.
func InfoHashFromBytes(raw []byte) (InfoHash, error) {
	if len(raw) != sha1.Size {
		return "", errors.NotValidf("raw info hash: %d bytes", len(raw))
	}
	return InfoHash(hex.EncodeToString(raw)), nil
}

func (h InfoHash) String() string {
	return string(h)
}

// Bytes returns the raw 20-byte form. The receiver is always a parsed hash,
// so the decode cannot fail.
func (h InfoHash) Bytes() []byte {
	raw, _ := hex.DecodeString(string(h))
	return raw
}
