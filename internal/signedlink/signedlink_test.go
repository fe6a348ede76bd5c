package signedlink

import (
	"strings"
	"testing"

	"github.com/gmessner/simple-cr/internal/entities"

	"github.com/stretchr/testify/require"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()

	c, err := New([]byte("test-secret"))
	require.NoError(t, err)
	return c
}

func TestNewRejectsEmptySecret(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestSignValidateRoundTrip(t *testing.T) {
	c := testCodec(t)

	links := []entities.ReviewLink{
		{ProjectID: 42, Branch: "feature-x", UserID: 7},
		{ProjectID: 1, Branch: "team/feature/deep", UserID: 1},
		{ProjectID: 0, Branch: "", UserID: 0},
		{ProjectID: 99, Branch: "unicodé-branch", UserID: 12345},
	}
	for _, link := range links {
		sig := c.Sign(link)
		require.Len(t, sig, 2*SignatureSize)
		require.NoError(t, c.Validate(link, sig), "link %+v", link)
		require.NoError(t, c.Validate(link, strings.ToUpper(sig)))
	}
}

func TestValidateRejectsChangedField(t *testing.T) {
	c := testCodec(t)
	link := entities.ReviewLink{ProjectID: 42, Branch: "feature-x", UserID: 7}
	sig := c.Sign(link)

	changed := []entities.ReviewLink{
		{ProjectID: 43, Branch: "feature-x", UserID: 7},
		{ProjectID: 42, Branch: "feature-y", UserID: 7},
		{ProjectID: 42, Branch: "feature-x", UserID: 8},
	}
	for _, other := range changed {
		require.ErrorIs(t, c.Validate(other, sig), entities.ErrInvalidSignature)
	}
}

func TestCanonicalNoCrossFieldCollision(t *testing.T) {
	c := testCodec(t)

	a := entities.ReviewLink{ProjectID: 1, Branch: "2|3", UserID: 4}
	b := entities.ReviewLink{ProjectID: 12, Branch: "3", UserID: 4}
	require.NotEqual(t, canonical(a), canonical(b))
	require.ErrorIs(t, c.Validate(b, c.Sign(a)), entities.ErrInvalidSignature)

	slash := entities.ReviewLink{ProjectID: 1, Branch: "a/b", UserID: 2}
	split := entities.ReviewLink{ProjectID: 1, Branch: "a", UserID: 2}
	require.ErrorIs(t, c.Validate(split, c.Sign(slash)), entities.ErrInvalidSignature)
}

func TestValidateRejectsMalformed(t *testing.T) {
	c := testCodec(t)
	link := entities.ReviewLink{ProjectID: 42, Branch: "feature-x", UserID: 7}

	require.ErrorIs(t, c.Validate(link, ""), entities.ErrInvalidSignature)
	require.ErrorIs(t, c.Validate(link, "abc"), entities.ErrInvalidSignature)
	require.ErrorIs(t, c.Validate(link, strings.Repeat("z", 2*SignatureSize)), entities.ErrInvalidSignature)
}

func TestDifferentSecretsDisagree(t *testing.T) {
	a := testCodec(t)
	b, err := New([]byte("other-secret"))
	require.NoError(t, err)

	link := entities.ReviewLink{ProjectID: 42, Branch: "feature-x", UserID: 7}
	require.ErrorIs(t, b.Validate(link, a.Sign(link)), entities.ErrInvalidSignature)
}

func TestURLEscapesBranch(t *testing.T) {
	c := testCodec(t)
	link := entities.ReviewLink{ProjectID: 42, Branch: "team/feature", UserID: 7}

	u := c.URL("https://cr.example.com/", link)
	require.Equal(t, "https://cr.example.com/42/team%2Ffeature/7/"+c.Sign(link), u)
}
