// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

// Package identity translates between Stash entity identifiers and the
// 32-character hexadecimal item ids used by Jellyfin clients.
//
// An encoded id is 16 bytes rendered as lowercase hex:
//
//	bytes 0-3   magic prefix
//	byte  4     entity kind
//	bytes 5-7   checksum (SHA-256 prefix over bytes 0-4 and 8-15)
//	bytes 8-15  numeric backend id, big-endian
//
// The layout is reversible without any lookup table, so ids survive restarts
// and no state is shared between requests. Clients that parse ids as GUIDs
// may send them back in the dashed form; Decode accepts both.
package identity

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies the category of entity behind a client-facing id.
type Kind uint8

const (
	KindScene Kind = iota + 1
	KindPerformer
	KindStudio
	KindGroup
	KindTag
	// KindTagGroup is a configured tag exposed as a top-level library.
	KindTagGroup
	// KindSavedFilter is a Stash saved scene filter exposed as a library.
	KindSavedFilter
	// KindCatalog is one of the fixed catalog libraries.
	KindCatalog
)

var kindNames = map[Kind]string{
	KindScene:       "scene",
	KindPerformer:   "performer",
	KindStudio:      "studio",
	KindGroup:       "group",
	KindTag:         "tag",
	KindTagGroup:    "tag_group",
	KindSavedFilter: "saved_filter",
	KindCatalog:     "catalog",
}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Fixed catalog identifiers used with KindCatalog.
const (
	CatalogAllScenes uint64 = iota + 1
	CatalogPerformers
	CatalogStudios
	CatalogGroups
	CatalogTags
)

var (
	// ErrNotAnIdentifier is returned by Decode for strings that were not
	// produced by Encode.
	ErrNotAnIdentifier = errors.New("not a valid item identifier")

	// ErrInvalidBackendID is returned by Encode for ids that are not
	// non-negative decimal integers.
	ErrInvalidBackendID = errors.New("backend id is not numeric")

	// ErrUnknownKind is returned by Encode for kinds outside the known set.
	ErrUnknownKind = errors.New("unknown entity kind")
)

// magic marks ids minted by this package ("sb" + format version + reserved).
var magic = [4]byte{0x73, 0x62, 0x01, 0x00}

const (
	rawLen     = 16
	encodedLen = rawLen * 2
)

// Ref is a decoded client-facing id.
type Ref struct {
	Kind Kind
	ID   string
}

// String renders the ref for logs, e.g. "scene:42".
func (r Ref) String() string {
	return r.Kind.String() + ":" + r.ID
}

// Encode derives the client-facing id for a backend entity.
func Encode(kind Kind, backendID string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
	n, err := strconv.ParseUint(backendID, 10, 64)
	// Leading zeros would break the round trip.
	if err != nil || strconv.FormatUint(n, 10) != backendID {
		return "", fmt.Errorf("%w: %q", ErrInvalidBackendID, backendID)
	}
	return encode(kind, n), nil
}

// MustEncode is Encode for ids known to be numeric, such as ids returned by
// Stash itself. It panics on invalid input.
func MustEncode(kind Kind, backendID string) string {
	id, err := Encode(kind, backendID)
	if err != nil {
		panic(err)
	}
	return id
}

// EncodeCatalog returns the id of a fixed catalog library.
func EncodeCatalog(catalog uint64) string {
	return encode(KindCatalog, catalog)
}

// Decode inverts Encode. Any string Encode could not have produced yields
// ErrNotAnIdentifier.
func Decode(clientID string) (Ref, error) {
	raw, ok := parseRaw(clientID)
	if !ok {
		return Ref{}, ErrNotAnIdentifier
	}
	if [4]byte(raw[0:4]) != magic {
		return Ref{}, ErrNotAnIdentifier
	}
	kind := Kind(raw[4])
	if !kind.Valid() {
		return Ref{}, ErrNotAnIdentifier
	}
	sum := checksum(raw)
	if raw[5] != sum[0] || raw[6] != sum[1] || raw[7] != sum[2] {
		return Ref{}, ErrNotAnIdentifier
	}
	n := binary.BigEndian.Uint64(raw[8:16])
	return Ref{Kind: kind, ID: strconv.FormatUint(n, 10)}, nil
}

// DecodeKind decodes clientID and checks that it has the expected kind.
func DecodeKind(clientID string, want Kind) (string, error) {
	ref, err := Decode(clientID)
	if err != nil {
		return "", err
	}
	if ref.Kind != want {
		return "", ErrNotAnIdentifier
	}
	return ref.ID, nil
}

func encode(kind Kind, n uint64) string {
	var raw [rawLen]byte
	copy(raw[0:4], magic[:])
	raw[4] = byte(kind)
	binary.BigEndian.PutUint64(raw[8:16], n)
	sum := checksum(raw[:])
	raw[5], raw[6], raw[7] = sum[0], sum[1], sum[2]
	return hex.EncodeToString(raw[:])
}

func checksum(raw []byte) [sha256.Size]byte {
	var buf [13]byte
	copy(buf[0:5], raw[0:5])
	copy(buf[5:13], raw[8:16])
	return sha256.Sum256(buf[:])
}

func parseRaw(s string) ([]byte, bool) {
	switch len(s) {
	case encodedLen:
		raw, err := hex.DecodeString(strings.ToLower(s))
		if err != nil {
			return nil, false
		}
		return raw, true
	case 36, 38, 45:
		u, err := uuid.Parse(s)
		if err != nil {
			return nil, false
		}
		return u[:], true
	default:
		return nil, false
	}
}

// Namespace for ids that are derived from names rather than backend ids.
var nameSpace = uuid.MustParse("5d3b0f6e-2c41-4d8e-9a51-7f1c2b6e9d30")

// ServerID derives the stable Jellyfin server id from the server name.
func ServerID(serverName string) string {
	return hexUUID(uuid.NewSHA1(nameSpace, []byte("server:"+serverName)))
}

// UserID derives the stable Jellyfin user id for the configured account.
func UserID(username string) string {
	return hexUUID(uuid.NewSHA1(nameSpace, []byte("user:"+username)))
}

// SameID reports whether two client-facing ids denote the same GUID,
// tolerating dashes and case differences.
func SameID(a, b string) bool {
	na, oka := normalize(a)
	nb, okb := normalize(b)
	return oka && okb && na == nb
}

func normalize(s string) (string, bool) {
	raw, ok := parseRaw(s)
	if !ok {
		return "", false
	}
	return hex.EncodeToString(raw), true
}

func hexUUID(u uuid.UUID) string {
	return strings.ReplaceAll(u.String(), "-", "")
}
