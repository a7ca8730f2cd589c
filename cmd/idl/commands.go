package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/code-payments/code-idl/pkg/app"
	"github.com/code-payments/code-idl/pkg/idl"
	"github.com/code-payments/code-idl/pkg/idl/fetcher"
	"github.com/code-payments/code-idl/pkg/idl/value"
	"github.com/code-payments/code-idl/pkg/solana"
)

var (
	idlFlag = cli.StringFlag{
		Name:  "idl",
		Usage: "path to the IDL JSON document",
	}
	programFlag = cli.StringFlag{
		Name:  "program",
		Usage: "base58 program id, defaulting to the IDL address",
	}
	encodingFlag = cli.StringFlag{
		Name:  "encoding",
		Usage: "encoding of -data: base64, base58, hex or utf8",
		Value: value.EncodingBase64,
	}
	dataFlag = cli.StringFlag{
		Name:  "data",
		Usage: "account or instruction data",
	}
	accountTypeFlag = cli.StringFlag{
		Name:  "name",
		Usage: "account type, guessed from the data when empty",
	}
	instructionFlag = cli.StringFlag{
		Name:  "name",
		Usage: "instruction name",
	}
	namedAccountsFlag = cli.StringFlag{
		Name:  "accounts",
		Usage: "json object of account name to base58 address",
	}
	argsFlag = cli.StringFlag{
		Name:  "args",
		Usage: "json arguments, inline or @path",
	}
)

var commands = []cli.Command{
	{
		Name:   "decode-account",
		Usage:  "decode account data against an IDL",
		Flags:  []cli.Flag{idlFlag, accountTypeFlag, dataFlag, encodingFlag},
		Action: app.Action(decodeAccount),
	},
	{
		Name:  "decode-instruction",
		Usage: "decode instruction data and accounts",
		Flags: []cli.Flag{
			idlFlag, programFlag, dataFlag, encodingFlag,
			cli.StringFlag{
				Name:  "accounts",
				Usage: "comma separated base58 account keys, in instruction order",
			},
		},
		Action: app.Action(decodeInstruction),
	},
	{
		Name:   "encode-instruction",
		Usage:  "build an instruction from named accounts and JSON args",
		Flags:  []cli.Flag{idlFlag, programFlag, instructionFlag, namedAccountsFlag, argsFlag},
		Action: app.Action(encodeInstruction),
	},
	{
		Name:  "find-pda",
		Usage: "derive a program-level PDA",
		Flags: []cli.Flag{
			idlFlag, programFlag, namedAccountsFlag, argsFlag,
			cli.StringFlag{
				Name:  "name",
				Usage: "program-level pda name",
			},
			cli.BoolFlag{
				Name:  "fetch",
				Usage: "fetch account state over RPC for seeds that read it",
			},
		},
		Action: app.Action(findPda),
	},
	{
		Name:  "hydrate",
		Usage: "derive the addresses of an instruction's accounts",
		Flags: []cli.Flag{
			idlFlag, programFlag, instructionFlag, namedAccountsFlag, argsFlag,
			cli.BoolFlag{
				Name:  "offline",
				Usage: "never fetch account state over RPC",
			},
		},
		Action: app.Action(hydrate),
	},
	{
		Name:  "fetch-account",
		Usage: "fetch an account over RPC, decoding it when an IDL is given",
		Flags: []cli.Flag{
			idlFlag, accountTypeFlag,
			cli.StringFlag{
				Name:  "address",
				Usage: "base58 account address",
			},
		},
		Action: app.Action(fetchAccount),
	},
}

func loadProgram(c *cli.Context) (*idl.Program, error) {
	path := c.String(idlFlag.Name)
	if path == "" {
		return nil, errors.New("-idl is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read idl")
	}
	return idl.ParseProgramJSON(data)
}

func programID(c *cli.Context, p *idl.Program) (ed25519.PublicKey, error) {
	if encoded := c.String(programFlag.Name); encoded != "" {
		return solana.ParsePublicKey(encoded)
	}
	if p.Metadata.Address != nil {
		return p.Metadata.Address, nil
	}
	return nil, errors.New("-program is required when the IDL has no address")
}

// loadProgramAndID loads the IDL and the program id it is deployed at.
func loadProgramAndID(c *cli.Context) (*idl.Program, ed25519.PublicKey, error) {
	p, err := loadProgram(c)
	if err != nil {
		return nil, nil, err
	}
	id, err := programID(c, p)
	if err != nil {
		return nil, nil, err
	}
	return p, id, nil
}

func decodeData(c *cli.Context) ([]byte, error) {
	return value.DecodeString(c.String(encodingFlag.Name), c.String(dataFlag.Name))
}

func codecOptions(env *app.Env) []idl.CodecOption {
	if env.Config.StrictBool {
		return []idl.CodecOption{idl.WithStrictBool()}
	}
	return nil
}

// parseArgs parses the JSON given to -args, inline or as @path.
func parseArgs(c *cli.Context) (interface{}, error) {
	s := c.String(argsFlag.Name)
	if s == "" {
		return nil, nil
	}
	data := []byte(s)
	if strings.HasPrefix(s, "@") {
		var err error
		if data, err = os.ReadFile(s[1:]); err != nil {
			return nil, errors.Wrap(err, "cannot read json file")
		}
	}
	return value.ParseJSON(data)
}

// parseNamedAccounts parses a JSON object of account name to base58 address.
func parseNamedAccounts(c *cli.Context) (map[string]ed25519.PublicKey, error) {
	addresses := make(map[string]ed25519.PublicKey)
	s := c.String(namedAccountsFlag.Name)
	if s == "" {
		return addresses, nil
	}

	var raw map[string]string
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, errors.Wrap(err, "accounts must be a json object of name to base58 address")
	}
	for name, encoded := range raw {
		address, err := solana.ParsePublicKey(encoded)
		if err != nil {
			return nil, errors.Wrapf(err, "account %s", name)
		}
		addresses[name] = address
	}
	return addresses, nil
}

func encodeAddresses(addresses map[string]ed25519.PublicKey) map[string]string {
	encoded := make(map[string]string, len(addresses))
	for name, address := range addresses {
		encoded[name] = base58.Encode(address)
	}
	return encoded
}

func lookupInstruction(c *cli.Context, p *idl.Program) (*idl.Instruction, error) {
	name := c.String(instructionFlag.Name)
	ix, ok := p.Instruction(name)
	if !ok {
		return nil, errors.Wrapf(idl.ErrUnknownName, "instruction %s", name)
	}
	return ix, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value.JSONCompatible(v))
}

func newFetcher(env *app.Env) *fetcher.Fetcher {
	return fetcher.New(solana.New(solana.ResolveEndpoint(env.Config.RPCEndpoint)), fetcher.WithEnvConfigs())
}

func decodeAccount(_ context.Context, env *app.Env, c *cli.Context) error {
	p, err := loadProgram(c)
	if err != nil {
		return err
	}
	data, err := decodeData(c)
	if err != nil {
		return err
	}

	account, state, err := decodeAccountData(p, c.String(accountTypeFlag.Name), data, codecOptions(env))
	if err != nil {
		return err
	}
	return writeJSON(env.Stdout, value.NewObject("account", account.Name, "state", state))
}

func decodeAccountData(p *idl.Program, name string, data []byte, opts []idl.CodecOption) (*idl.Account, interface{}, error) {
	if name == "" {
		return p.DecodeAccount(data, opts...)
	}

	account, ok := p.Account(name)
	if !ok {
		return nil, nil, errors.Wrapf(idl.ErrUnknownName, "account %s", name)
	}
	state, err := account.Decode(data, opts...)
	return account, state, err
}

func decodeInstruction(_ context.Context, env *app.Env, c *cli.Context) error {
	p, id, err := loadProgramAndID(c)
	if err != nil {
		return err
	}
	data, err := decodeData(c)
	if err != nil {
		return err
	}

	ix := solana.Instruction{Program: id, Data: data}
	for _, encoded := range strings.Split(c.String("accounts"), ",") {
		if encoded = strings.TrimSpace(encoded); encoded == "" {
			continue
		}
		key, err := solana.ParsePublicKey(encoded)
		if err != nil {
			return err
		}
		ix.Accounts = append(ix.Accounts, solana.AccountMeta{PublicKey: key})
	}

	decoded, err := p.DecodeInstruction(ix, codecOptions(env)...)
	if err != nil {
		return err
	}

	return writeJSON(env.Stdout, value.NewObject(
		"instruction", decoded.Instruction.Name,
		"accounts", encodeAddresses(decoded.Addresses),
		"args", decoded.Args,
	))
}

func encodeInstruction(_ context.Context, env *app.Env, c *cli.Context) error {
	p, id, err := loadProgramAndID(c)
	if err != nil {
		return err
	}
	ix, err := lookupInstruction(c, p)
	if err != nil {
		return err
	}
	addresses, err := parseNamedAccounts(c)
	if err != nil {
		return err
	}
	args, err := parseArgs(c)
	if err != nil {
		return err
	}

	built, err := p.BuildInstruction(ix, id, addresses, args, codecOptions(env)...)
	if err != nil {
		return err
	}

	metas := make([]interface{}, len(built.Accounts))
	for i, meta := range built.Accounts {
		metas[i] = value.NewObject(
			"pubkey", base58.Encode(meta.PublicKey),
			"signer", meta.IsSigner,
			"writable", meta.IsWritable,
		)
	}
	return writeJSON(env.Stdout, value.NewObject(
		"program", base58.Encode(built.Program),
		"accounts", metas,
		"data", base64.StdEncoding.EncodeToString(built.Data),
	))
}

func findPda(ctx context.Context, env *app.Env, c *cli.Context) error {
	p, id, err := loadProgramAndID(c)
	if err != nil {
		return err
	}
	name := c.String("name")
	pda, ok := p.Pda(name)
	if !ok {
		return errors.Wrapf(idl.ErrUnknownName, "pda %s", name)
	}
	addresses, err := parseNamedAccounts(c)
	if err != nil {
		return err
	}
	args, err := parseArgs(c)
	if err != nil {
		return err
	}

	var accountFetcher idl.AccountFetcher
	if c.Bool("fetch") {
		accountFetcher = newFetcher(env)
	}

	address, bump, err := p.FindPda(ctx, pda, id, args, addresses, accountFetcher)
	if err != nil {
		return err
	}
	return writeJSON(env.Stdout, value.NewObject("address", base58.Encode(address), "bump", uint64(bump)))
}

func hydrate(ctx context.Context, env *app.Env, c *cli.Context) error {
	p, id, err := loadProgramAndID(c)
	if err != nil {
		return err
	}
	ix, err := lookupInstruction(c, p)
	if err != nil {
		return err
	}
	known, err := parseNamedAccounts(c)
	if err != nil {
		return err
	}
	args, err := parseArgs(c)
	if err != nil {
		return err
	}

	var accountFetcher idl.AccountFetcher
	if !c.Bool("offline") {
		accountFetcher = newFetcher(env)
	}

	addresses, err := p.HydrateInstructionAddresses(ctx, ix, id, known, args, accountFetcher)
	if err != nil {
		return err
	}

	env.Log.WithField("resolved", len(addresses)).Debug("hydrated instruction addresses")

	ordered := value.NewObject()
	for _, account := range ix.Accounts {
		if address, ok := addresses[account.Name]; ok {
			ordered.Set(account.Name, base58.Encode(address))
		}
	}
	return writeJSON(env.Stdout, ordered)
}

func fetchAccount(ctx context.Context, env *app.Env, c *cli.Context) error {
	key, err := solana.ParsePublicKey(c.String("address"))
	if err != nil {
		return err
	}

	state, err := newFetcher(env).FetchAccount(ctx, key)
	if err != nil {
		return err
	}

	out := value.NewObject(
		"address", base58.Encode(key),
		"owner", base58.Encode(state.Owner),
		"data", base64.StdEncoding.EncodeToString(state.Data),
	)

	if c.String(idlFlag.Name) != "" {
		p, err := loadProgram(c)
		if err != nil {
			return err
		}
		account, decoded, err := decodeAccountData(p, c.String(accountTypeFlag.Name), state.Data, codecOptions(env))
		if err != nil {
			return err
		}
		out.Set("account", account.Name)
		out.Set("state", decoded)
	}

	return writeJSON(env.Stdout, out)
}
