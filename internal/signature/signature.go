// Package signature computes content-derived identifiers for
// deduplication and provenance backtracking.
//
// Two documents with identical cleaned canonical text under the same
// dedup scope always resolve to the same signature, regardless of
// arrival order or originating provider. Signatures are BLAKE3 keyed
// hashes over canonicalized text; the key provides domain separation
// between dedup scopes so a strict-scope signature can never collide
// with a provider-scope one.
package signature

import (
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/zeebo/blake3"

	"github.com/kayf-project/retriever/internal/core/domain"
)

// Domain separation keys, one per dedup scope. Fixed constants;
// changing them invalidates every stored signature in that scope. The
// byte values are the ASCII encoding of the domain name, zero-padded
// to 32 bytes, so they are inspectable in hex dumps.
var (
	strictDomainKey = [32]byte{
		'k', 'a', 'y', 'f', '.', 'd', 'e', 'd', 'u', 'p', '.',
		's', 't', 'r', 'i', 'c', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	providerDomainKey = [32]byte{
		'k', 'a', 'y', 'f', '.', 'd', 'e', 'd', 'u', 'p', '.',
		'p', 'r', 'o', 'v', 'i', 'd', 'e', 'r', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// Canonicalize normalizes cleaned text before hashing: leading and
// trailing space is trimmed and every internal run of whitespace
// collapses to a single space. Byte-identical content after cleaning
// therefore always canonicalizes identically, and cosmetic whitespace
// differences never defeat deduplication.
func Canonicalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inSpace := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			b.WriteByte(' ')
			inSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Compute returns the hex signature of canonical text under the given
// scope. For ScopeProvider the provider id is mixed into the digest so
// identical content from different providers yields distinct
// signatures; for ScopeStrict the provider id is ignored.
func Compute(scope domain.DedupScope, providerID, canonical string) string {
	key := strictDomainKey
	if scope == domain.ScopeProvider {
		key = providerDomainKey
	}

	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		// NewKeyed only fails on a wrong key length, which is
		// impossible with the fixed 32-byte constants above.
		panic("signature: BLAKE3 keyed hash initialization failed: " + err.Error())
	}

	if scope == domain.ScopeProvider {
		hasher.Write([]byte(providerID))
		hasher.Write([]byte{0})
	}
	hasher.Write([]byte(canonical))

	return hex.EncodeToString(hasher.Sum(nil))
}
