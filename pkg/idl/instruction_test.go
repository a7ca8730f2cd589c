package idl

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-idl/pkg/idl/value"
	"github.com/code-payments/code-idl/pkg/solana"
)

const transferProgram = `{
	"metadata": {"name": "transfer"},
	"instructions": [
		{
			"name": "sendTokens",
			"accounts": [
				{"name": "owner", "signer": true},
				{"name": "source", "writable": true},
				{"name": "destination", "writable": true},
				{"name": "referrer", "optional": true}
			],
			"args": [
				{"name": "amount", "type": "u64"},
				{"name": "memo", "type": {"option": "string"}}
			],
			"returns": "u64"
		}
	],
	"events": [
		{"name": "Transferred", "fields": [{"name": "amount", "type": "u64"}]}
	]
}`

func TestBuildAndDecodeInstruction(t *testing.T) {
	p, err := ParseProgramJSON([]byte(transferProgram))
	require.NoError(t, err)

	ix, ok := p.Instruction("send_tokens")
	require.True(t, ok)
	assert.Equal(t, "sendTokens", ix.Name)

	programID := bytes.Repeat([]byte{9}, 32)
	owner := ed25519.PublicKey(bytes.Repeat([]byte{1}, 32))
	source := ed25519.PublicKey(bytes.Repeat([]byte{2}, 32))
	destination := ed25519.PublicKey(bytes.Repeat([]byte{3}, 32))

	built, err := p.BuildInstruction(
		ix,
		programID,
		map[string]ed25519.PublicKey{
			"owner":       owner,
			"source":      source,
			"destination": destination,
		},
		map[string]interface{}{"amount": 1000, "memo": "hi"},
	)
	require.NoError(t, err)

	assert.EqualValues(t, programID, built.Program)
	require.Len(t, built.Accounts, 4)
	assert.Equal(t, solana.NewReadonlyAccountMeta(owner, true), built.Accounts[0])
	assert.Equal(t, solana.NewAccountMeta(source, false), built.Accounts[1])
	assert.Equal(t, solana.NewAccountMeta(destination, false), built.Accounts[2])
	assert.EqualValues(t, programID, built.Accounts[3].PublicKey)
	assert.False(t, built.Accounts[3].IsWritable)

	expectedData := append(defaultInstructionDiscriminator("send_tokens"), 0xe8, 0x03, 0, 0, 0, 0, 0, 0, 1, 2, 0, 0, 0, 'h', 'i')
	assert.Equal(t, expectedData, built.Data)

	decoded, err := p.DecodeInstruction(built)
	require.NoError(t, err)
	assert.Same(t, ix, decoded.Instruction)
	assert.Equal(t, map[string]ed25519.PublicKey{
		"owner":       owner,
		"source":      source,
		"destination": destination,
	}, decoded.Addresses)
	assert.Equal(t, value.NewObject("amount", uint64(1000), "memo", "hi"), decoded.Args)
}

func TestBuildInstruction_MissingAccount(t *testing.T) {
	p, err := ParseProgramJSON([]byte(transferProgram))
	require.NoError(t, err)

	_, err = p.BuildInstruction(
		p.Instructions["sendTokens"],
		bytes.Repeat([]byte{9}, 32),
		map[string]ed25519.PublicKey{"owner": bytes.Repeat([]byte{1}, 32)},
		map[string]interface{}{"amount": 1},
	)
	assert.True(t, errors.Is(err, ErrMissingAccount))
}

func TestDecodeAddresses(t *testing.T) {
	p, err := ParseProgramJSON([]byte(transferProgram))
	require.NoError(t, err)
	ix := p.Instructions["sendTokens"]

	programID := ed25519.PublicKey(bytes.Repeat([]byte{9}, 32))
	referrer := ed25519.PublicKey(bytes.Repeat([]byte{4}, 32))
	keys := []ed25519.PublicKey{
		bytes.Repeat([]byte{1}, 32),
		bytes.Repeat([]byte{2}, 32),
		bytes.Repeat([]byte{3}, 32),
	}

	addresses, err := ix.DecodeAddresses(programID, keys)
	require.NoError(t, err)
	assert.Len(t, addresses, 3)

	addresses, err = ix.DecodeAddresses(programID, append(keys, referrer))
	require.NoError(t, err)
	assert.Equal(t, referrer, addresses["referrer"])

	_, err = ix.DecodeAddresses(programID, keys[:2])
	assert.True(t, errors.Is(err, ErrMissingAccount))
}

func TestInstruction_DecodeDataAndReturn(t *testing.T) {
	p, err := ParseProgramJSON([]byte(transferProgram))
	require.NoError(t, err)
	ix := p.Instructions["sendTokens"]

	_, err = ix.DecodeData([]byte{1, 2, 3})
	assert.True(t, errors.Is(err, ErrDiscriminator))

	data, err := ix.EncodeData(map[string]interface{}{"amount": 5})
	require.NoError(t, err)

	args, err := ix.DecodeData(data)
	require.NoError(t, err)
	memo, ok := args.(*value.Object).Get("memo")
	require.True(t, ok)
	assert.Nil(t, memo)

	ret, err := ix.DecodeReturn([]byte{5, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), ret)
}

func TestEvent_DecodeLog(t *testing.T) {
	p, err := ParseProgramJSON([]byte(transferProgram))
	require.NoError(t, err)

	event, ok := p.Event("Transferred")
	require.True(t, ok)

	data, err := event.Encode(map[string]interface{}{"amount": 77})
	require.NoError(t, err)
	assert.Equal(t, "1584ef4092efa644", hex.EncodeToString(data[:8]))

	for _, line := range []string{
		"Program data: " + base64.StdEncoding.EncodeToString(data),
		base64.StdEncoding.EncodeToString(data),
		"Program data: " + base64.StdEncoding.EncodeToString(append(append([]byte{}, eventIxTag...), data...)),
	} {
		decodedEvent, payload, err := p.DecodeEventLog(line)
		require.NoError(t, err)
		assert.Same(t, event, decodedEvent)
		assert.Equal(t, value.NewObject("amount", uint64(77)), payload)
	}

	_, _, err = p.DecodeEventLog("Program data: ???")
	assert.Error(t, err)

	_, _, err = p.DecodeEvent([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	assert.IsType(t, &NoMatchError{}, err)
}
