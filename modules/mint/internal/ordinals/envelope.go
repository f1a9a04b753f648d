package ordinals

import (
	"bytes"

	"github.com/btcsuite/btcd/txscript"
	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/common/errs"
)

var protocolId = []byte("ord")

// Tag is an envelope field tag.
type Tag byte

const (
	TagContentType     Tag = 1
	TagContentEncoding Tag = 9
)

const (
	// MaxChunkSize is the maximum size of a single payload data push.
	MaxChunkSize = txscript.MaxScriptElementSize
)

// Inscription is the content committed inside an ord envelope.
type Inscription struct {
	ContentType string
	Content     []byte
}

// BuildEnvelopeScript builds the taproot leaf script that commits to an
// inscription:
//
//	<xonly pk> OP_CHECKSIG OP_FALSE OP_IF "ord" [0x01] <content-type> OP_0 <payload chunks> OP_ENDIF
//
// The payload is split into data pushes of at most MaxChunkSize bytes.
func BuildEnvelopeScript(xOnlyPubKey []byte, contentType string, payload []byte) ([]byte, error) {
	if len(xOnlyPubKey) != 32 {
		return nil, errors.Wrapf(errs.InvalidArgument, "x-only pubkey must be 32 bytes, got %d", len(xOnlyPubKey))
	}
	if contentType == "" {
		return nil, errors.Wrap(errs.ArgumentRequired, "content type is required")
	}
	if len(payload) == 0 {
		return nil, errors.Wrap(errs.ArgumentRequired, "payload is required")
	}

	builder := NewPushScriptBuilder().
		AddData(xOnlyPubKey).
		AddOp(txscript.OP_CHECKSIG).
		AddOp(txscript.OP_FALSE).
		AddOp(txscript.OP_IF).
		AddData(protocolId).
		AddData([]byte{byte(TagContentType)}).
		AddData([]byte(contentType)).
		AddOp(txscript.OP_0)
	for offset := 0; offset < len(payload); offset += MaxChunkSize {
		end := offset + MaxChunkSize
		if end > len(payload) {
			end = len(payload)
		}
		builder.AddData(payload[offset:end])
	}
	builder.AddOp(txscript.OP_ENDIF)

	script, err := builder.Script()
	if err != nil {
		return nil, errors.Wrap(err, "can't build envelope script")
	}
	return script, nil
}

// ParseEnvelopeFromScript recovers the inscription from a tapscript
// containing an ord envelope. Returns errs.NotFound if the script carries no
// envelope.
func ParseEnvelopeFromScript(script []byte) (Inscription, error) {
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	for tokenizer.Next() {
		if tokenizer.Opcode() != txscript.OP_FALSE {
			continue
		}
		inscription, ok, err := envelopeFromTokenizer(&tokenizer)
		if err != nil {
			return Inscription{}, errors.WithStack(err)
		}
		if ok {
			return inscription, nil
		}
	}
	if err := tokenizer.Err(); err != nil {
		return Inscription{}, errors.Wrap(err, "malformed script")
	}
	return Inscription{}, errors.Wrap(errs.NotFound, "no envelope in script")
}

// ParseEnvelopeFromWitness recovers the inscription from a taproot
// script-path witness stack.
func ParseEnvelopeFromWitness(witness [][]byte) (Inscription, error) {
	tapScript, ok := extractTapScript(witness)
	if !ok {
		return Inscription{}, errors.Wrap(errs.NotFound, "witness has no tapscript")
	}
	inscription, err := ParseEnvelopeFromScript(tapScript)
	return inscription, errors.WithStack(err)
}

func envelopeFromTokenizer(tokenizer *txscript.ScriptTokenizer) (Inscription, bool, error) {
	tokenizer.Next()
	if tokenizer.Opcode() != txscript.OP_IF {
		return Inscription{}, false, nil
	}

	tokenizer.Next()
	if !bytes.Equal(tokenizer.Data(), protocolId) {
		return Inscription{}, false, nil
	}

	payload := make([][]byte, 0)
	for tokenizer.Next() {
		if tokenizer.Err() != nil {
			return Inscription{}, false, errors.Wrap(tokenizer.Err(), "malformed envelope")
		}
		if tokenizer.Opcode() == txscript.OP_ENDIF {
			break
		}
		if tokenizer.Opcode() == txscript.OP_0 {
			payload = append(payload, []byte{})
			continue
		}
		data := tokenizer.Data()
		if data == nil {
			// non-push opcode inside envelope
			return Inscription{}, false, nil
		}
		payload = append(payload, data)
	}
	if tokenizer.Done() && tokenizer.Opcode() != txscript.OP_ENDIF {
		// incomplete envelope
		return Inscription{}, false, nil
	}

	// body starts after the first empty data push in an even (field key) position
	bodyIndex := -1
	for i, value := range payload {
		if i%2 == 0 && len(value) == 0 {
			bodyIndex = i
			break
		}
	}
	fieldPayloads := payload
	var body []byte
	if bodyIndex != -1 {
		fieldPayloads = payload[:bodyIndex]
		for _, chunk := range payload[bodyIndex+1:] {
			body = append(body, chunk...)
		}
	}

	var contentType []byte
	for i := 0; i+1 < len(fieldPayloads); i += 2 {
		if Tag(fieldPayloads[i][0]) == TagContentType && contentType == nil {
			contentType = fieldPayloads[i+1]
		}
	}

	return Inscription{
		ContentType: string(contentType),
		Content:     body,
	}, true, nil
}

func extractTapScript(witness [][]byte) ([]byte, bool) {
	witness = removeAnnexFromWitness(witness)
	if len(witness) < 2 {
		return nil, false
	}
	return witness[len(witness)-2], true
}

func removeAnnexFromWitness(witness [][]byte) [][]byte {
	if len(witness) >= 2 && len(witness[len(witness)-1]) > 0 && witness[len(witness)-1][0] == txscript.TaprootAnnexTag {
		return witness[:len(witness)-1]
	}
	return witness
}
