package idl

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-idl/pkg/solana"
)

const vaultProgram = `{
	"address": "11111111111111111111111111111111",
	"metadata": {"name": "vault", "version": "0.1.0", "spec": "0.1.0"},
	"accounts": [
		{
			"name": "Vault",
			"discriminator": [1],
			"type": {"kind": "struct", "fields": [
				{"name": "authority", "type": "pubkey"},
				{"name": "mint", "type": "pubkey"},
				{"name": "bump", "type": "u8"}
			]}
		}
	],
	"pdas": [
		{"name": "receipt", "seeds": [{"kind": "account", "path": "vault"}, {"kind": "arg", "path": "id", "type": "u64"}]}
	],
	"instructions": [
		{
			"name": "deposit",
			"discriminator": [2],
			"accounts": [
				{"name": "receipt", "writable": true, "pda": "receipt"},
				{"name": "record", "pda": {"seeds": [{"kind": "account", "path": "vault.bump"}, {"kind": "account", "path": "vault.authority"}]}},
				{"name": "escrow", "writable": true, "pda": {"seeds": [{"kind": "account", "path": "vault.mint", "account": "Vault"}]}},
				{"name": "vault", "writable": true, "pda": {"seeds": ["vault", {"kind": "account", "path": "authority"}]}},
				{"name": "authority", "signer": true},
				{"name": "memo", "optional": true},
				{"name": "systemProgram", "address": "11111111111111111111111111111111"}
			],
			"args": [{"name": "id", "type": "u64"}]
		},
		{
			"name": "spin",
			"discriminator": [3],
			"accounts": [
				{"name": "a", "pda": {"seeds": [{"account": "b"}]}},
				{"name": "b", "pda": {"seeds": [{"account": "a"}]}}
			],
			"args": []
		},
		{
			"name": "bridge",
			"discriminator": [4],
			"accounts": [
				{"name": "remote", "pda": {"seeds": ["x"], "program": {"kind": "account", "path": "remoteProgram"}}},
				{"name": "remoteProgram", "address": "SysvarRent111111111111111111111111111111111"}
			],
			"args": []
		}
	]
}`

type memoryFetcher struct {
	accounts map[string]*AccountState
	calls    map[string]int
}

func newMemoryFetcher() *memoryFetcher {
	return &memoryFetcher{
		accounts: make(map[string]*AccountState),
		calls:    make(map[string]int),
	}
}

func (f *memoryFetcher) put(address ed25519.PublicKey, data []byte) {
	f.accounts[base58.Encode(address)] = &AccountState{Data: data}
}

func (f *memoryFetcher) FetchAccount(_ context.Context, address ed25519.PublicKey) (*AccountState, error) {
	key := base58.Encode(address)
	f.calls[key]++

	state, ok := f.accounts[key]
	if !ok {
		return nil, errors.Errorf("account %s not found", key)
	}
	return state, nil
}

type vaultEnv struct {
	program   *Program
	programID ed25519.PublicKey
	authority ed25519.PublicKey
	mint      ed25519.PublicKey
	vault     ed25519.PublicKey
	vaultBump uint8
	fetcher   *memoryFetcher
}

func setupVaultEnv(t *testing.T) *vaultEnv {
	p, err := ParseProgramJSON([]byte(vaultProgram))
	require.NoError(t, err)

	env := &vaultEnv{
		program:   p,
		programID: bytes.Repeat([]byte{7}, ed25519.PublicKeySize),
		authority: bytes.Repeat([]byte{1}, ed25519.PublicKeySize),
		mint:      bytes.Repeat([]byte{2}, ed25519.PublicKeySize),
		fetcher:   newMemoryFetcher(),
	}

	env.vault, env.vaultBump, err = solana.FindProgramAddressAndBump(env.programID, []byte("vault"), env.authority)
	require.NoError(t, err)

	data, err := p.Accounts["Vault"].Encode(map[string]interface{}{
		"authority": base58.Encode(env.authority),
		"mint":      base58.Encode(env.mint),
		"bump":      env.vaultBump,
	})
	require.NoError(t, err)
	env.fetcher.put(env.vault, data)

	return env
}

func mustFindPda(t *testing.T, program ed25519.PublicKey, seeds ...[]byte) ed25519.PublicKey {
	address, err := solana.FindProgramAddress(program, seeds...)
	require.NoError(t, err)
	return address
}

func TestHydrateInstructionAddresses(t *testing.T) {
	env := setupVaultEnv(t)

	ix, ok := env.program.Instruction("deposit")
	require.True(t, ok)

	addresses, err := env.program.HydrateInstructionAddresses(
		context.Background(),
		ix,
		env.programID,
		map[string]ed25519.PublicKey{"authority": env.authority},
		map[string]interface{}{"id": 42},
		env.fetcher,
	)
	require.NoError(t, err)

	id := make([]byte, 8)
	binary.LittleEndian.PutUint64(id, 42)

	assert.Equal(t, env.authority, addresses["authority"])
	assert.Equal(t, env.vault, addresses["vault"])
	assert.Equal(t, mustFindPda(t, env.programID, env.mint), addresses["escrow"])
	assert.Equal(t, mustFindPda(t, env.programID, env.vault, id), addresses["receipt"])
	assert.Equal(t, mustFindPda(t, env.programID, []byte{env.vaultBump}, env.authority), addresses["record"])
	assert.Equal(t, ed25519.PublicKey(make([]byte, 32)), addresses["systemProgram"])

	_, ok = addresses["memo"]
	assert.False(t, ok)

	// escrow and record both read the vault state
	assert.Equal(t, 1, env.fetcher.calls[base58.Encode(env.vault)])
}

func TestHydrateInstructionAddresses_KnownOverride(t *testing.T) {
	env := setupVaultEnv(t)
	ix := env.program.Instructions["deposit"]

	other := bytes.Repeat([]byte{9}, ed25519.PublicKeySize)
	env.fetcher.put(other, env.fetcher.accounts[base58.Encode(env.vault)].Data)

	addresses, err := env.program.HydrateInstructionAddresses(
		context.Background(),
		ix,
		env.programID,
		map[string]ed25519.PublicKey{"authority": env.authority, "vault": other},
		map[string]interface{}{"id": uint64(1)},
		env.fetcher,
	)
	require.NoError(t, err)

	assert.Equal(t, ed25519.PublicKey(other), addresses["vault"])
	assert.Equal(t, 1, env.fetcher.calls[base58.Encode(other)])
	assert.Zero(t, env.fetcher.calls[base58.Encode(env.vault)])
}

func TestHydrateInstructionAddresses_MissingRoot(t *testing.T) {
	env := setupVaultEnv(t)
	ix := env.program.Instructions["deposit"]

	_, err := env.program.HydrateInstructionAddresses(
		context.Background(),
		ix,
		env.programID,
		nil,
		map[string]interface{}{"id": 1},
		env.fetcher,
	)

	var unresolved *UnresolvedDependencyError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "receipt", unresolved.Account)
	assert.Equal(t, []string{"vault"}, unresolved.Missing)
}

func TestHydrateInstructionAddresses_Cycle(t *testing.T) {
	env := setupVaultEnv(t)

	_, err := env.program.HydrateInstructionAddresses(
		context.Background(),
		env.program.Instructions["spin"],
		env.programID,
		nil,
		nil,
		nil,
	)

	var unresolved *UnresolvedDependencyError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "a", unresolved.Account)
	assert.Equal(t, []string{"b"}, unresolved.Missing)
}

func TestHydrateInstructionAddresses_NoFetcher(t *testing.T) {
	env := setupVaultEnv(t)

	_, err := env.program.HydrateInstructionAddresses(
		context.Background(),
		env.program.Instructions["deposit"],
		env.programID,
		map[string]ed25519.PublicKey{"authority": env.authority},
		map[string]interface{}{"id": 1},
		nil,
	)
	assert.True(t, errors.Is(err, ErrNoFetcher))
}

func TestHydrateInstructionAddresses_FetchFailure(t *testing.T) {
	env := setupVaultEnv(t)

	_, err := env.program.HydrateInstructionAddresses(
		context.Background(),
		env.program.Instructions["deposit"],
		env.programID,
		map[string]ed25519.PublicKey{"authority": env.authority, "vault": bytes.Repeat([]byte{5}, 32)},
		map[string]interface{}{"id": 1},
		env.fetcher,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestHydrateInstructionAddresses_ProgramSeed(t *testing.T) {
	env := setupVaultEnv(t)

	addresses, err := env.program.HydrateInstructionAddresses(
		context.Background(),
		env.program.Instructions["bridge"],
		env.programID,
		nil,
		nil,
		nil,
	)
	require.NoError(t, err)

	remoteProgram, err := solana.ParsePublicKey("SysvarRent111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, mustFindPda(t, remoteProgram, []byte("x")), addresses["remote"])
}

func TestHydrateInstructionAddresses_CancelledContext(t *testing.T) {
	env := setupVaultEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.program.HydrateInstructionAddresses(
		ctx,
		env.program.Instructions["deposit"],
		env.programID,
		map[string]ed25519.PublicKey{"authority": env.authority},
		map[string]interface{}{"id": 1},
		env.fetcher,
	)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindPda(t *testing.T) {
	env := setupVaultEnv(t)

	pda, ok := env.program.Pda("receipt")
	require.True(t, ok)

	address, bump, err := env.program.FindPda(
		context.Background(),
		pda,
		env.programID,
		map[string]interface{}{"id": "7"},
		map[string]ed25519.PublicKey{"vault": env.vault},
		nil,
	)
	require.NoError(t, err)

	expected, expectedBump, err := solana.FindProgramAddressAndBump(env.programID, env.vault, []byte{7, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, expected, address)
	assert.Equal(t, expectedBump, bump)

	_, _, err = env.program.FindPda(context.Background(), pda, env.programID, map[string]interface{}{"id": 7}, nil, nil)
	var unresolved *UnresolvedDependencyError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "receipt", unresolved.Account)
	assert.Equal(t, []string{"vault"}, unresolved.Missing)
}

func TestFindPda_UntypedSeeds(t *testing.T) {
	p := newProgram()
	programID := bytes.Repeat([]byte{7}, ed25519.PublicKeySize)

	pda := &Pda{Name: "named", Seeds: []PdaSeed{PdaSeedArg{Path: "label"}}}

	address, _, err := p.FindPda(context.Background(), pda, programID, map[string]interface{}{"label": "hello"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, mustFindPda(t, programID, []byte("hello")), address)

	_, _, err = p.FindPda(context.Background(), pda, programID, map[string]interface{}{"label": 12}, nil, nil)
	assert.Error(t, err)
}
