package idl

import (
	"context"
	"crypto/ed25519"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/code-idl/pkg/idl/value"
	"github.com/code-payments/code-idl/pkg/metrics"
	"github.com/code-payments/code-idl/pkg/solana"
)

// missingDependencyError reports seeds that read accounts whose addresses are
// not known yet.
type missingDependencyError struct {
	names []string
}

func (e *missingDependencyError) Error() string {
	return "missing accounts: " + strings.Join(e.names, ", ")
}

// seedContext evaluates seeds against instruction arguments, known addresses
// and, through the fetcher, the decoded state of known accounts.
type seedContext struct {
	program   *Program
	args      interface{}
	argTypes  *FullFields
	addresses map[string]ed25519.PublicKey
	fetcher   AccountFetcher

	// decoded account states by base58 address
	states map[string]interface{}
	// account shapes of the states above
	shapes map[string]*Account
}

func newSeedContext(p *Program, args interface{}, argTypes *FullFields, addresses map[string]ed25519.PublicKey, fetcher AccountFetcher) *seedContext {
	return &seedContext{
		program:   p,
		args:      args,
		argTypes:  argTypes,
		addresses: addresses,
		fetcher:   fetcher,
		states:    make(map[string]interface{}),
		shapes:    make(map[string]*Account),
	}
}

// FindPda derives the address of a program-level PDA. args holds the values
// read by argument seeds and addresses the accounts read by account seeds.
// Argument seeds need an explicit type unless their value is a string or
// bytes.
func (p *Program) FindPda(ctx context.Context, pda *Pda, programID ed25519.PublicKey, args interface{}, addresses map[string]ed25519.PublicKey, fetcher AccountFetcher) (ed25519.PublicKey, uint8, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "FindPda")
	tracer.AddAttributes(map[string]interface{}{
		metrics.AttributeProgram: p.Metadata.Name,
		metrics.AttributeAccount: pda.Name,
	})
	defer tracer.End()

	sc := newSeedContext(p, args, nil, addresses, fetcher)
	address, bump, err := sc.find(ctx, pda, programID)
	if err != nil {
		var dep *missingDependencyError
		if errors.As(err, &dep) {
			err = &UnresolvedDependencyError{Account: pda.Name, Missing: dep.names}
		}
		tracer.OnError(err)
		return nil, 0, err
	}
	return address, bump, nil
}

func (sc *seedContext) find(ctx context.Context, pda *Pda, programID ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	seeds := make([][]byte, 0, len(pda.Seeds))
	var missing []string
	for i, seed := range pda.Seeds {
		b, err := sc.seedBytes(ctx, seed)
		if err != nil {
			var dep *missingDependencyError
			if errors.As(err, &dep) {
				missing = append(missing, dep.names...)
				continue
			}
			return nil, 0, errors.Wrapf(err, "seed %d of %s", i, pda.Name)
		}
		seeds = append(seeds, b)
	}

	if pda.Program != nil {
		b, err := sc.seedBytes(ctx, pda.Program)
		if err != nil {
			var dep *missingDependencyError
			if !errors.As(err, &dep) {
				return nil, 0, errors.Wrapf(err, "program seed of %s", pda.Name)
			}
			missing = append(missing, dep.names...)
		} else {
			if len(b) != ed25519.PublicKeySize {
				return nil, 0, errors.Errorf("program seed of %s is %d bytes", pda.Name, len(b))
			}
			programID = b
		}
	}

	if len(missing) > 0 {
		return nil, 0, &missingDependencyError{names: missing}
	}
	return solana.FindProgramAddressAndBump(programID, seeds...)
}

func (sc *seedContext) seedBytes(ctx context.Context, seed PdaSeed) ([]byte, error) {
	switch typed := seed.(type) {
	case PdaSeedConst:
		return typed.Bytes, nil
	case PdaSeedArg:
		return sc.argBytes(typed)
	case PdaSeedAccount:
		return sc.accountBytes(ctx, typed)
	default:
		return nil, errors.Errorf("unsupported seed %T", seed)
	}
}

func (sc *seedContext) argBytes(seed PdaSeedArg) ([]byte, error) {
	segments, err := parsePath(seed.Path)
	if err != nil {
		return nil, err
	}
	v, err := walkValue(sc.args, segments)
	if err != nil {
		return nil, errors.Wrapf(err, "argument %s", seed.Path)
	}

	t := seed.Type
	if t == nil && sc.argTypes != nil {
		t = walkType(FullStruct{Fields: *sc.argTypes}, segments)
	}
	return valueSeed(t, v)
}

func (sc *seedContext) accountBytes(ctx context.Context, seed PdaSeedAccount) ([]byte, error) {
	segments, err := parsePath(seed.Path)
	if err != nil {
		return nil, err
	}
	if segments[0].isIndex {
		return nil, errors.Errorf("account path %q must start with an account name", seed.Path)
	}

	address, ok := lookupAddress(sc.addresses, segments[0].name)
	if !ok {
		return nil, &missingDependencyError{names: []string{segments[0].name}}
	}
	if len(segments) == 1 {
		return address, nil
	}

	state, account, err := sc.accountState(ctx, address, seed.AccountType)
	if err != nil {
		return nil, errors.Wrapf(err, "account %s", segments[0].name)
	}
	v, err := walkValue(state, segments[1:])
	if err != nil {
		return nil, errors.Wrapf(err, "account %s", seed.Path)
	}
	return valueSeed(walkType(account.Content, segments[1:]), v)
}

// accountState fetches and decodes an account once per address.
func (sc *seedContext) accountState(ctx context.Context, address ed25519.PublicKey, accountType string) (interface{}, *Account, error) {
	key := base58.Encode(address)
	if state, ok := sc.states[key]; ok {
		return state, sc.shapes[key], nil
	}
	if sc.fetcher == nil {
		return nil, nil, ErrNoFetcher
	}

	fetched, err := sc.fetcher.FetchAccount(ctx, address)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot fetch account")
	}

	var account *Account
	if accountType != "" {
		var ok bool
		account, ok = sc.program.Account(accountType)
		if !ok {
			return nil, nil, errors.Wrapf(ErrUnknownName, "account type %s", accountType)
		}
	} else {
		account, err = sc.program.GuessAccount(fetched.Data)
		if err != nil {
			return nil, nil, err
		}
	}

	state, err := account.Decode(fetched.Data)
	if err != nil {
		return nil, nil, err
	}

	sc.states[key] = state
	sc.shapes[key] = account
	return state, account, nil
}

// valueSeed turns a value into seed bytes. Strings and bytes are used raw,
// without a length prefix; other typed values are encoded.
func valueSeed(t FullType, v interface{}) ([]byte, error) {
	switch Unwrap(t).(type) {
	case FullString:
		s, ok := v.(string)
		if !ok {
			return nil, errors.Errorf("expected a string seed, got %T", v)
		}
		return []byte(s), nil
	case FullBytes:
		return value.ToBytes(v)
	case nil:
		switch typed := v.(type) {
		case string:
			return []byte(typed), nil
		case []byte:
			return typed, nil
		case ed25519.PublicKey:
			return typed, nil
		}
		return nil, errors.Errorf("seed value of type %T needs a declared type", v)
	default:
		return Encode(t, v)
	}
}
