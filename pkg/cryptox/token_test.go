package cryptox

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, a, 43)

	b, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	_, err = GenerateToken(0)
	require.Error(t, err)
}

func TestSixDigitCodeRange(t *testing.T) {
	seen := make(map[string]struct{})
	for range 500 {
		code, err := SixDigitCode()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 100000)
		require.LessOrEqual(t, n, 999999)
		seen[code] = struct{}{}
	}
	require.Greater(t, len(seen), 400, "codes should rarely repeat")
}

func TestNumericCodeBounds(t *testing.T) {
	code, err := NumericCode(7, 7)
	require.NoError(t, err)
	require.Equal(t, "7", code)

	_, err = NumericCode(10, 1)
	require.Error(t, err)
}

func TestEqualConstantTime(t *testing.T) {
	require.True(t, EqualConstantTime("123456", "123456"))
	require.False(t, EqualConstantTime("123456", "123457"))
	require.False(t, EqualConstantTime("123456", "12345"))
	require.False(t, EqualConstantTime("123456", ""))
}
