package fetcher

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/code-idl/pkg/cache"
	"github.com/code-payments/code-idl/pkg/idl"
	"github.com/code-payments/code-idl/pkg/metrics"
	"github.com/code-payments/code-idl/pkg/rate"
	"github.com/code-payments/code-idl/pkg/solana"
	"github.com/code-payments/code-idl/pkg/sync"
)

const (
	metricsStructName = "idl.fetcher"

	fetchDurationMetricName = "IdlFetcher/fetch_duration_ms"
	cacheHitMetricName      = "IdlFetcher/cache_hit"
	cacheMissMetricName     = "IdlFetcher/cache_miss"

	rateLimitKey = "rpc"
	lockStripes  = 64
)

var (
	ErrAccountNotFound = errors.New("account not found")
)

// Fetcher is an idl.AccountFetcher reading accounts from a Solana RPC node.
// Fetched accounts are cached by address until evicted or invalidated.
// Concurrent fetches of the same address result in a single RPC call.
type Fetcher struct {
	log     *logrus.Entry
	conf    *conf
	client  solana.Client
	cache   cache.Cache[*idl.AccountState]
	limiter rate.Limiter
	locks   *sync.StripedLock
}

var _ idl.AccountFetcher = (*Fetcher)(nil)

func New(client solana.Client, configProvider ConfigProvider) *Fetcher {
	conf := configProvider()
	ctx := context.Background()

	accounts := cache.New[*idl.AccountState](int(conf.cacheBudget.Get(ctx)))
	accounts.SetVerbose(conf.verboseCache.Get(ctx))

	return &Fetcher{
		log:     logrus.StandardLogger().WithField("type", "idl/fetcher"),
		conf:    conf,
		client:  client,
		cache:   accounts,
		limiter: rate.NewLocalRateLimiter(xrate.Limit(conf.requestsPerSecond.Get(ctx))),
		locks:   sync.NewStripedLock(lockStripes),
	}
}

// FetchAccount implements idl.AccountFetcher.FetchAccount
func (f *Fetcher) FetchAccount(ctx context.Context, address ed25519.PublicKey) (*idl.AccountState, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "FetchAccount")
	defer tracer.End()

	key := base58.Encode(address)
	tracer.AddAttribute(metrics.AttributeAccount, key)

	log := f.log.WithFields(logrus.Fields{
		"method":  "FetchAccount",
		"address": key,
	})

	mu := f.locks.Get([]byte(key))
	mu.Lock()
	defer mu.Unlock()

	if state, ok := f.cache.Retrieve(key); ok {
		metrics.RecordCount(ctx, cacheHitMetricName, 1)
		return cloneState(state), nil
	}
	metrics.RecordCount(ctx, cacheMissMetricName, 1)

	commitment, err := f.prepare(ctx)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.conf.fetchTimeout.Get(ctx))
	defer cancel()

	start := time.Now()
	info, err := f.client.GetAccountInfo(fetchCtx, address, commitment)
	metrics.RecordDuration(ctx, fetchDurationMetricName, time.Since(start))
	if err == solana.ErrNoAccountInfo {
		return nil, errors.Wrap(ErrAccountNotFound, key)
	} else if err != nil {
		log.WithError(err).Warn("failure fetching account")
		tracer.OnError(err)
		return nil, errors.Wrapf(err, "cannot fetch account %s", key)
	}

	log.WithField("slot", info.Slot).Trace("fetched account")

	state := &idl.AccountState{Owner: info.Owner, Data: info.Data}
	f.store(log, key, state)
	return cloneState(state), nil
}

// Prefetch loads the uncached accounts among addresses in batched RPC calls.
// Accounts that do not exist are skipped.
func (f *Fetcher) Prefetch(ctx context.Context, addresses []ed25519.PublicKey) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Prefetch")
	defer tracer.End()

	log := f.log.WithField("method", "Prefetch")

	var keys []string
	var missing []ed25519.PublicKey
	seen := make(map[string]struct{}, len(addresses))
	for _, address := range addresses {
		key := base58.Encode(address)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if _, ok := f.cache.Retrieve(key); ok {
			continue
		}
		keys = append(keys, key)
		missing = append(missing, address)
	}
	if len(missing) == 0 {
		return nil
	}

	commitment, err := f.prepare(ctx)
	if err != nil {
		tracer.OnError(err)
		return err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.conf.fetchTimeout.Get(ctx))
	defer cancel()

	start := time.Now()
	infos, err := f.client.GetMultipleAccounts(fetchCtx, missing, commitment)
	metrics.RecordDuration(ctx, fetchDurationMetricName, time.Since(start))
	if err != nil {
		log.WithError(err).Warn("failure prefetching accounts")
		tracer.OnError(err)
		return errors.Wrap(err, "cannot prefetch accounts")
	}

	for i, info := range infos {
		if info == nil {
			continue
		}
		f.store(log.WithField("address", keys[i]), keys[i], &idl.AccountState{Owner: info.Owner, Data: info.Data})
	}

	log.WithFields(logrus.Fields{
		"requested": len(missing),
		"cached":    f.cache.Len(),
	}).Debug("prefetched accounts")
	return nil
}

// Invalidate drops the cached state of address.
func (f *Fetcher) Invalidate(address ed25519.PublicKey) {
	f.cache.Remove(base58.Encode(address))
}

func (f *Fetcher) prepare(ctx context.Context) (solana.Commitment, error) {
	commitment, err := solana.CommitmentFromString(f.conf.commitment.Get(ctx))
	if err != nil {
		return solana.Commitment{}, err
	}
	if err := f.limiter.Wait(ctx, rateLimitKey); err != nil {
		return solana.Commitment{}, errors.Wrap(err, "rate limited")
	}
	return commitment, nil
}

func (f *Fetcher) store(log *logrus.Entry, key string, state *idl.AccountState) {
	weight := len(state.Data) + len(state.Owner)

	switch err := f.cache.Insert(key, state, weight); err {
	case nil, cache.ErrKeyExists:
	case cache.ErrWeightTooLarge:
		log.WithField("weight", weight).Debug("account too large to cache")
	default:
		log.WithError(err).Warn("failure caching account")
	}
}

// cloneState keeps callers from mutating cached bytes.
func cloneState(state *idl.AccountState) *idl.AccountState {
	return &idl.AccountState{
		Owner: append(ed25519.PublicKey(nil), state.Owner...),
		Data:  append([]byte(nil), state.Data...),
	}
}
