package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/code-idl/pkg/retry"
	"github.com/code-payments/code-idl/pkg/retry/backoff"
)

const (
	// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs#L11
	rpcNodeUnhealthyCode = -32005

	// getMultipleAccounts accepts at most 100 keys per request
	maxMultipleAccounts = 100
)

type Commitment struct {
	Commitment string `json:"commitment"`
}

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"
)

var (
	CommitmentProcessed = Commitment{Commitment: confirmationStatusProcessed}
	CommitmentConfirmed = Commitment{Commitment: confirmationStatusConfirmed}
	CommitmentFinalized = Commitment{Commitment: confirmationStatusFinalized}
)

// CommitmentFromString maps "processed", "confirmed" or "finalized" to a
// Commitment.
func CommitmentFromString(s string) (Commitment, error) {
	switch s {
	case confirmationStatusProcessed:
		return CommitmentProcessed, nil
	case confirmationStatusConfirmed:
		return CommitmentConfirmed, nil
	case confirmationStatusFinalized:
		return CommitmentFinalized, nil
	default:
		return Commitment{}, errors.Errorf("unknown commitment %q", s)
	}
}

var (
	ErrNoAccountInfo = errors.New("no account info")
)

// AccountInfo contains the Solana account information (not to be confused with a TokenAccount)
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool

	// Slot is the context slot the RPC node answered at
	Slot uint64
}

// Client provides read access to accounts through the Solana JSON RPC API.
//
// Reference: https://docs.solana.com/apps/jsonrpc-api
type Client interface {
	GetAccountInfo(context.Context, ed25519.PublicKey, Commitment) (AccountInfo, error)
	GetMultipleAccounts(context.Context, []ed25519.PublicKey, Commitment) ([]*AccountInfo, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (lamports uint64, err error)
	GetSlot(context.Context, Commitment) (uint64, error)
}

var (
	errRateLimited  = errors.New("rate limited")
	errServiceError = errors.New("service error")
)

type rpcAccount struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"`
	Executable bool     `json:"executable"`
}

type rpcContext struct {
	Slot uint64 `json:"slot"`
}

type client struct {
	log     *logrus.Entry
	client  jsonrpc.RPCClient
	retrier retry.Retrier
}

// New returns a client using the specified endpoint.
func New(endpoint string) Client {
	return NewWithRPCOptions(endpoint, nil)
}

// NewWithRPCOptions returns a client configured with the specified RPC options.
func NewWithRPCOptions(endpoint string, opts *jsonrpc.RPCClientOpts) Client {
	return &client{
		log:    logrus.StandardLogger().WithField("type", "solana/client"),
		client: jsonrpc.NewClientWithOpts(endpoint, opts),
		retrier: retry.NewRetrier(
			retry.RetriableErrors(errRateLimited, errServiceError),
			retry.Limit(3),
			retry.BackoffWithJitter(backoff.BinaryExponential(time.Second), 10*time.Second, 0.1),
		),
	}
}

func (c *client) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := c.retrier.Retry(ctx, func() error {
		err := c.client.CallFor(out, method, params...)
		if err == nil {
			return nil
		}

		return c.handleRpcError(method, err)
	})

	return err
}

func (c *client) handleRpcError(method string, err error) error {
	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return err
	}
	if rpcErr.Code == 429 {
		c.log.WithField("method", method).Error("rate limited")
		return errRateLimited
	}
	if rpcErr.Code >= 500 || rpcErr.Code == rpcNodeUnhealthyCode {
		return errServiceError
	}

	return err
}

func (c *client) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (lamports uint64, err error) {
	if err := c.call(ctx, &lamports, "getMinimumBalanceForRentExemption", dataSize); err != nil {
		return 0, errors.Wrapf(err, "getMinimumBalanceForRentExemption() failed to send request")
	}

	return lamports, nil
}

func (c *client) GetSlot(ctx context.Context, commitment Commitment) (slot uint64, err error) {
	// note: we have to wrap the commitment in an []interface{} otherwise the
	//       solana RPC node complains. Technically this is a violation of the
	//       JSON RPC v2.0 spec.
	if err := c.call(ctx, &slot, "getSlot", []interface{}{commitment}); err != nil {
		return 0, errors.Wrapf(err, "getSlot() failed to send request")
	}

	return slot, nil
}

func (c *client) GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (accountInfo AccountInfo, err error) {
	type rpcResponse struct {
		Context rpcContext  `json:"context"`
		Value   *rpcAccount `json:"value"`
	}

	var resp rpcResponse
	if err := c.call(ctx, &resp, "getAccountInfo", base58.Encode(account[:]), accountConfig(commitment)); err != nil {
		return accountInfo, errors.Wrap(err, "getAccountInfo() failed to send request")
	}

	if resp.Value == nil {
		return accountInfo, ErrNoAccountInfo
	}

	info, err := resp.Value.toAccountInfo(resp.Context.Slot)
	if err != nil {
		return accountInfo, err
	}
	return *info, nil
}

// GetMultipleAccounts returns one entry per requested account, nil where the
// account does not exist. Requests are chunked to the RPC limit.
func (c *client) GetMultipleAccounts(ctx context.Context, accounts []ed25519.PublicKey, commitment Commitment) ([]*AccountInfo, error) {
	type rpcResponse struct {
		Context rpcContext    `json:"context"`
		Value   []*rpcAccount `json:"value"`
	}

	infos := make([]*AccountInfo, 0, len(accounts))
	for start := 0; start < len(accounts); start += maxMultipleAccounts {
		end := start + maxMultipleAccounts
		if end > len(accounts) {
			end = len(accounts)
		}

		b58Accounts := make([]string, 0, end-start)
		for _, account := range accounts[start:end] {
			b58Accounts = append(b58Accounts, base58.Encode(account))
		}

		var resp rpcResponse
		if err := c.call(ctx, &resp, "getMultipleAccounts", b58Accounts, accountConfig(commitment)); err != nil {
			return nil, errors.Wrap(err, "getMultipleAccounts() failed to send request")
		}
		if len(resp.Value) != len(b58Accounts) {
			return nil, errors.Errorf("getMultipleAccounts() returned %d values for %d accounts", len(resp.Value), len(b58Accounts))
		}

		for _, v := range resp.Value {
			if v == nil {
				infos = append(infos, nil)
				continue
			}

			info, err := v.toAccountInfo(resp.Context.Slot)
			if err != nil {
				return nil, err
			}
			infos = append(infos, info)
		}
	}

	return infos, nil
}

func accountConfig(commitment Commitment) interface{} {
	return struct {
		Commitment string `json:"commitment"`
		Encoding   string `json:"encoding"`
	}{
		Commitment: commitment.Commitment,
		Encoding:   "base64",
	}
}

func (a *rpcAccount) toAccountInfo(slot uint64) (*AccountInfo, error) {
	owner, err := base58.Decode(a.Owner)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base58 encoded owner")
	}

	if len(a.Data) == 0 {
		return nil, errors.New("missing account data")
	}
	data, err := base64.StdEncoding.DecodeString(a.Data[0])
	if err != nil {
		return nil, errors.Wrap(err, "invalid base64 encoded data")
	}

	return &AccountInfo{
		Data:       data,
		Owner:      owner,
		Lamports:   a.Lamports,
		Executable: a.Executable,
		Slot:       slot,
	}, nil
}
