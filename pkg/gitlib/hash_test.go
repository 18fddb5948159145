package gitlib_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/timemachine/pkg/gitlib"
)

func TestHashIsZero(t *testing.T) {
	t.Parallel()

	assert.True(t, gitlib.Hash{}.IsZero())
	assert.False(t, gitlib.Hash{1}.IsZero())
}

func TestParseHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "lowercase", input: "0123456789abcdef0123456789abcdef01234567", want: "0123456789abcdef0123456789abcdef01234567"},
		{name: "uppercase is normalised", input: "0123456789ABCDEF0123456789ABCDEF01234567", want: "0123456789abcdef0123456789abcdef01234567"},
		{name: "too short", input: "abcd", wantErr: true},
		{name: "not hex", input: "zz23456789abcdef0123456789abcdef01234567", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			hash, err := gitlib.ParseHash(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, gitlib.ErrInvalidHash)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, hash.String())
		})
	}
}

func TestParseHashPrefix(t *testing.T) {
	t.Parallel()

	hash, size, err := gitlib.ParseHashPrefix("abc1")
	require.NoError(t, err)
	assert.Equal(t, 4, size)
	assert.Equal(t, "abc1000000000000000000000000000000000000", hash.String())

	_, _, err = gitlib.ParseHashPrefix("abc")
	require.ErrorIs(t, err, gitlib.ErrInvalidHash)

	_, _, err = gitlib.ParseHashPrefix("abcg")
	require.ErrorIs(t, err, gitlib.ErrInvalidHash)
}

func TestHashOidRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := gitlib.ParseHash("ffffffffffffffffffffffffffffffffffffff01")
	require.NoError(t, err)

	assert.Equal(t, hash, gitlib.HashFromOid(hash.ToOid()))
	assert.True(t, gitlib.HashFromOid(nil).IsZero())
}
