package envelope_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherkeep/internal/envelope"
	"cipherkeep/internal/failure"
)

// fast keeps tests quick; production floors are covered by Validate tests.
var fast = envelope.Params{MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 1}

func TestDerive_Deterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{7}, envelope.SaltBytes)

	a, err := envelope.Derive("correct horse", salt, fast)
	require.NoError(t, err)
	b, err := envelope.Derive("correct horse", salt, fast)
	require.NoError(t, err)

	assert.Equal(t, a.Enc, b.Enc)
	assert.Equal(t, a.Verifier, b.Verifier)
}

func TestDerive_SubkeysIndependent(t *testing.T) {
	salt := bytes.Repeat([]byte{1}, envelope.SaltBytes)
	k, err := envelope.Derive("pw", salt, fast)
	require.NoError(t, err)
	assert.NotEqual(t, k.Enc, k.Verifier)
}

func TestDerive_DistinctSalts(t *testing.T) {
	s1, err := envelope.NewSalt()
	require.NoError(t, err)
	s2, err := envelope.NewSalt()
	require.NoError(t, err)
	require.NotEqual(t, s1, s2)

	a, err := envelope.Derive("same password", s1, fast)
	require.NoError(t, err)
	b, err := envelope.Derive("same password", s2, fast)
	require.NoError(t, err)

	assert.NotEqual(t, a.Enc, b.Enc)
	assert.NotEqual(t, a.Verifier, b.Verifier)
}

func TestDerive_RejectsShortSalt(t *testing.T) {
	_, err := envelope.Derive("pw", []byte("short"), fast)
	assert.Equal(t, failure.ReasonInvalidArgument, failure.ReasonOf(err))
}

func TestDeriveMasterSecret_Length(t *testing.T) {
	m, err := envelope.DeriveMasterSecret("pw", make([]byte, 16), fast)
	require.NoError(t, err)
	assert.Len(t, m, envelope.KeyBytes)
}

func TestParams_Validate(t *testing.T) {
	require.NoError(t, envelope.DefaultParams().Validate())
	assert.Error(t, fast.Validate())
	assert.Error(t, envelope.Params{MemoryKiB: 64 * 1024, Iterations: 3, Parallelism: 4}.Validate())
}

func TestVerifier_HashAndCheck(t *testing.T) {
	salt := bytes.Repeat([]byte{3}, envelope.SaltBytes)
	k, err := envelope.Derive("pw", salt, fast)
	require.NoError(t, err)

	hash, err := envelope.HashVerifier(k.Verifier[:])
	require.NoError(t, err)
	assert.NotContains(t, hash, string(k.Verifier[:]))
	assert.True(t, envelope.CheckVerifier(hash, k.Verifier[:]))

	other, err := envelope.Derive("pw2", salt, fast)
	require.NoError(t, err)
	assert.False(t, envelope.CheckVerifier(hash, other.Verifier[:]))
}

func TestCheckPasswordPolicy(t *testing.T) {
	cases := map[string]bool{
		"short1!A":           false,
		"alllowercase12!":    false,
		"ALLUPPERCASE12!":    false,
		"NoDigitsHere!!":     false,
		"NoSymbols12345":     false,
		"Correct-Horse-42":   true,
		"Ünïcödé-Pässwörd-9": true,
	}
	for pw, ok := range cases {
		err := envelope.CheckPasswordPolicy(pw)
		if ok {
			assert.NoError(t, err, pw)
		} else {
			assert.ErrorIs(t, err, failure.ErrWeakPassword, pw)
		}
	}
}
