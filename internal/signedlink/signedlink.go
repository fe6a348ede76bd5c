// Package signedlink issues and checks the capability tokens embedded in
// review-request emails.
//
// A token authorizes the review form for one (project, branch, user)
// triple. Tokens carry no expiry and are not bound to a push record, so a
// link keeps working across re-pushes of the same branch by the same user.
package signedlink

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/gmessner/simple-cr/internal/entities"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/hkdf"
)

const (
	keySize = 32
	// SignatureSize is the number of hash bytes kept in a signature.
	SignatureSize = 16

	keyInfo = "simple-cr review link v1"
)

// Codec signs and validates review links.
type Codec struct {
	key [keySize]byte
}

// New derives the signing key from secret.
func New(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("signedlink: empty secret")
	}
	c := &Codec{}
	reader := hkdf.New(sha256.New, secret, nil, []byte(keyInfo))
	if _, err := io.ReadFull(reader, c.key[:]); err != nil {
		return nil, fmt.Errorf("signedlink: derive key: %w", err)
	}
	return c, nil
}

// Sign returns the hex signature for link.
func (c *Codec) Sign(link entities.ReviewLink) string {
	return hex.EncodeToString(c.sum(link))
}

// Validate checks signature against link.
func (c *Codec) Validate(link entities.ReviewLink, signature string) error {
	if len(signature) != 2*SignatureSize {
		return fmt.Errorf("%w: bad length", entities.ErrInvalidSignature)
	}
	got, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return fmt.Errorf("%w: not hex", entities.ErrInvalidSignature)
	}
	if subtle.ConstantTimeCompare(got, c.sum(link)) != 1 {
		return entities.ErrInvalidSignature
	}
	return nil
}

// URL builds the review form link under base.
func (c *Codec) URL(base string, link entities.ReviewLink) string {
	return strings.TrimRight(base, "/") + "/" + Path(link, c.Sign(link))
}

// Path renders the {projectId}/{branch}/{userId}/{signature} path.
func Path(link entities.ReviewLink, signature string) string {
	return strconv.Itoa(link.ProjectID) + "/" + url.PathEscape(link.Branch) + "/" +
		strconv.Itoa(link.UserID) + "/" + signature
}

func (c *Codec) sum(link entities.ReviewLink) []byte {
	hasher, err := blake3.NewKeyed(c.key[:])
	if err != nil {
		panic("signedlink: keyed hash initialization failed: " + err.Error())
	}
	_, _ = hasher.Write(canonical(link))
	return hasher.Sum(nil)[:SignatureSize]
}

// canonical length-prefixes every field so no two distinct triples encode
// to the same bytes, whatever characters the branch contains.
func canonical(link entities.ReviewLink) []byte {
	var b strings.Builder
	for _, field := range []string{
		strconv.Itoa(link.ProjectID),
		link.Branch,
		strconv.Itoa(link.UserID),
	} {
		b.WriteString(strconv.Itoa(len(field)))
		b.WriteByte(':')
		b.WriteString(field)
		b.WriteByte('|')
	}
	return []byte(b.String())
}
