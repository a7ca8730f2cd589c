package idl

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-idl/pkg/metrics"
)

const (
	metricsStructName = "idl.program"

	hydrateDurationMetricName = "Idl/hydrate_duration_ms"
	hydratePassesMetricName   = "Idl/hydrate_passes"
)

// AccountState is the on-chain state of an account as seen by a fetcher.
type AccountState struct {
	Owner ed25519.PublicKey
	Data  []byte
}

// AccountFetcher loads account state for seeds that read another account's
// fields.
type AccountFetcher interface {
	FetchAccount(ctx context.Context, address ed25519.PublicKey) (*AccountState, error)
}

// HydrateInstructionAddresses fills in the addresses of ix's accounts. It
// starts from known, adds fixed addresses, then derives PDAs in passes until
// no pending account can be derived. Accounts with neither a fixed address
// nor a PDA are left out unless known.
//
// Each dependency account is fetched and decoded at most once. When a pass
// makes no progress, an *UnresolvedDependencyError names the first stuck
// account and the accounts it is waiting on.
func (p *Program) HydrateInstructionAddresses(
	ctx context.Context,
	ix *Instruction,
	programID ed25519.PublicKey,
	known map[string]ed25519.PublicKey,
	args interface{},
	fetcher AccountFetcher,
) (map[string]ed25519.PublicKey, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "HydrateInstructionAddresses")
	tracer.AddAttributes(map[string]interface{}{
		metrics.AttributeProgram:     p.Metadata.Name,
		metrics.AttributeInstruction: ix.Name,
	})
	defer tracer.End()

	start := time.Now()
	defer func() {
		metrics.RecordDuration(ctx, hydrateDurationMetricName, time.Since(start))
	}()

	log := logrus.StandardLogger().WithFields(logrus.Fields{
		"type":        "idl/hydrate",
		"program":     p.Metadata.Name,
		"instruction": ix.Name,
	})

	addresses := make(map[string]ed25519.PublicKey, len(ix.Accounts))
	for name, address := range known {
		if account, ok := ix.Account(name); ok {
			name = account.Name
		}
		addresses[name] = address
	}

	var pending []*InstructionAccount
	for _, account := range ix.Accounts {
		if _, ok := addresses[account.Name]; ok {
			continue
		}
		if account.Address != nil {
			addresses[account.Name] = account.Address
			continue
		}
		if account.Pda != nil {
			pending = append(pending, account)
		}
	}

	sc := newSeedContext(p, args, &ix.Args, addresses, fetcher)

	var passes uint64
	for len(pending) > 0 {
		passes++

		var stuck []*InstructionAccount
		missing := make(map[string][]string)
		for _, account := range pending {
			if err := ctx.Err(); err != nil {
				tracer.OnError(err)
				return nil, err
			}

			address, _, err := sc.find(ctx, account.Pda, programID)
			if err != nil {
				var dep *missingDependencyError
				if errors.As(err, &dep) {
					stuck = append(stuck, account)
					missing[account.Name] = dep.names
					continue
				}

				log.WithError(err).WithField("account", account.Name).Warn("failure deriving account address")
				tracer.OnError(err)
				return nil, errors.Wrapf(err, "cannot derive account %s", account.Name)
			}
			addresses[account.Name] = address
		}

		log.WithFields(logrus.Fields{
			"pass":     passes,
			"resolved": len(pending) - len(stuck),
			"pending":  len(stuck),
		}).Trace("hydration pass complete")

		if len(stuck) == len(pending) {
			err := &UnresolvedDependencyError{Account: stuck[0].Name, Missing: missing[stuck[0].Name]}
			log.WithError(err).Debug("hydration made no progress")
			tracer.OnError(err)
			return nil, err
		}
		pending = stuck
	}

	metrics.RecordCount(ctx, hydratePassesMetricName, passes)
	return addresses, nil
}
