package ordinals

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testXOnlyPubKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestEnvelopeRoundTrip(t *testing.T) {
	testcases := []struct {
		name        string
		contentType string
		payloadSize int
	}{
		{name: "small_text", contentType: "text/plain;charset=utf-8", payloadSize: 11},
		{name: "single_full_chunk", contentType: "image/png", payloadSize: MaxChunkSize},
		{name: "multi_chunk", contentType: "image/png", payloadSize: MaxChunkSize*3 + 17},
		{name: "large_payload", contentType: "image/jpeg", payloadSize: 100_000},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			payload := make([]byte, tc.payloadSize)
			_, err := rand.Read(payload)
			require.NoError(t, err)

			script, err := BuildEnvelopeScript(testXOnlyPubKey(t), tc.contentType, payload)
			require.NoError(t, err)

			inscription, err := ParseEnvelopeFromScript(script)
			require.NoError(t, err)
			assert.Equal(t, tc.contentType, inscription.ContentType)
			assert.True(t, bytes.Equal(payload, inscription.Content))
		})
	}
}

func TestBuildEnvelopeScriptChunking(t *testing.T) {
	payload := make([]byte, MaxChunkSize*2+1)
	script, err := BuildEnvelopeScript(testXOnlyPubKey(t), "image/png", payload)
	require.NoError(t, err)

	// count payload data pushes after the body separator
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	var pushes []int
	seenSeparator := false
	for tokenizer.Next() {
		if tokenizer.Opcode() == txscript.OP_0 && tokenizer.Data() == nil {
			seenSeparator = true
			continue
		}
		if seenSeparator && tokenizer.Data() != nil {
			pushes = append(pushes, len(tokenizer.Data()))
		}
	}
	require.NoError(t, tokenizer.Err())
	require.Len(t, pushes, 3)
	assert.Equal(t, MaxChunkSize, pushes[0])
	assert.Equal(t, MaxChunkSize, pushes[1])
	assert.Equal(t, 1, pushes[2])
}

func TestBuildEnvelopeScriptValidation(t *testing.T) {
	key := testXOnlyPubKey(t)

	_, err := BuildEnvelopeScript(key[:31], "text/plain", []byte("hi"))
	assert.ErrorIs(t, err, errs.InvalidArgument)

	_, err = BuildEnvelopeScript(key, "", []byte("hi"))
	assert.ErrorIs(t, err, errs.ArgumentRequired)

	_, err = BuildEnvelopeScript(key, "text/plain", nil)
	assert.ErrorIs(t, err, errs.ArgumentRequired)
}

func TestParseEnvelopeFromScriptNoEnvelope(t *testing.T) {
	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_TRUE).
		Script()
	require.NoError(t, err)

	_, err = ParseEnvelopeFromScript(script)
	assert.True(t, errors.Is(err, errs.NotFound))
}

func TestParseEnvelopeFromWitness(t *testing.T) {
	payload := []byte("witness payload")
	script, err := BuildEnvelopeScript(testXOnlyPubKey(t), "text/plain", payload)
	require.NoError(t, err)

	signature := make([]byte, 64)
	controlBlock := make([]byte, 33)

	t.Run("script_path", func(t *testing.T) {
		inscription, err := ParseEnvelopeFromWitness([][]byte{signature, script, controlBlock})
		require.NoError(t, err)
		assert.Equal(t, payload, inscription.Content)
	})

	t.Run("with_annex", func(t *testing.T) {
		annex := append([]byte{txscript.TaprootAnnexTag}, 0x01)
		inscription, err := ParseEnvelopeFromWitness([][]byte{signature, script, controlBlock, annex})
		require.NoError(t, err)
		assert.Equal(t, payload, inscription.Content)
	})

	t.Run("key_path", func(t *testing.T) {
		_, err := ParseEnvelopeFromWitness([][]byte{signature})
		assert.True(t, errors.Is(err, errs.NotFound))
	})
}
