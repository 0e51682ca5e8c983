package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/orris-inc/offramp/internal/application/settlement/pricing"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

const (
	defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"
	// Maximum response body size for the price API (64KB)
	maxPriceResponseSize = 64 << 10
)

type CoinGeckoConfig struct {
	BaseURL string
	APIKey  string
	// CacheTTL is how long a fetched price is served without refetching.
	CacheTTL time.Duration
	// MaxCacheAge bounds how old a cached price may be when the API fails.
	// Past it the oracle fails closed.
	MaxCacheAge time.Duration
	Timeout     time.Duration
}

type cachedPrice struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// CoinGeckoOracle implements pricing.PriceOracle with the CoinGecko simple
// price API. Concurrent misses for the same pair share one request.
type CoinGeckoOracle struct {
	cfg        CoinGeckoConfig
	httpClient *http.Client
	clock      biztime.Clock
	logger     logger.Interface

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]cachedPrice
}

var _ pricing.PriceOracle = (*CoinGeckoOracle)(nil)

func NewCoinGeckoOracle(cfg CoinGeckoConfig, clock biztime.Clock, log logger.Interface) *CoinGeckoOracle {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCoinGeckoURL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.MaxCacheAge < cfg.CacheTTL {
		cfg.MaxCacheAge = cfg.CacheTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &CoinGeckoOracle{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		clock:      clock,
		logger:     log,
		cache:      make(map[string]cachedPrice),
	}
}

// Price returns the unit price of assetCode in currency.
func (o *CoinGeckoOracle) Price(ctx context.Context, assetCode, currency asset.Code) (decimal.Decimal, error) {
	if assetCode == currency {
		return decimal.NewFromInt(1), nil
	}
	coinID := assetCode.CoinGeckoID()
	if coinID == "" || !currency.IsFiat() {
		return decimal.Zero, fmt.Errorf("%w: no price source for %s/%s", pricing.ErrPriceUnavailable, assetCode, currency)
	}

	key := coinID + "/" + strings.ToLower(currency.String())
	now := o.clock.Now()

	o.mu.RLock()
	cached, ok := o.cache[key]
	o.mu.RUnlock()
	if ok && now.Sub(cached.fetchedAt) < o.cfg.CacheTTL {
		return cached.price, nil
	}

	v, err, _ := o.group.Do(key, func() (interface{}, error) {
		return o.fetch(ctx, coinID, strings.ToLower(currency.String()))
	})
	if err != nil {
		if ok && now.Sub(cached.fetchedAt) < o.cfg.MaxCacheAge {
			o.logger.Warnw("failed to fetch price, using cached value",
				"pair", key,
				"error", err,
				"cache_age", now.Sub(cached.fetchedAt),
			)
			return cached.price, nil
		}
		o.logger.Errorw("price unavailable", "pair", key, "error", err)
		return decimal.Zero, fmt.Errorf("%w: %s: %v", pricing.ErrPriceUnavailable, key, err)
	}

	price := v.(decimal.Decimal)
	o.mu.Lock()
	o.cache[key] = cachedPrice{price: price, fetchedAt: now}
	o.mu.Unlock()
	return price, nil
}

func (o *CoinGeckoOracle) fetch(ctx context.Context, coinID, vsCurrency string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("ids", coinID)
	q.Set("vs_currencies", vsCurrency)
	q.Set("precision", "full")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(o.cfg.BaseURL, "/")+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if o.cfg.APIKey != "" {
		req.Header.Set("x-cg-pro-api-key", o.cfg.APIKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// {"tether":{"ngn":1523.45}}; decoded into decimals to keep every digit.
	var data map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPriceResponseSize)).Decode(&data); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode response: %w", err)
	}

	price, ok := data[coinID][vsCurrency]
	if !ok || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("no positive price for %s/%s", coinID, vsCurrency)
	}

	o.logger.Debugw("fetched price", "coin", coinID, "currency", vsCurrency, "price", price.String())
	return price, nil
}

// StaticOracle serves fixed prices from configuration. Keys are
// "ASSET/CURRENCY", e.g. "USDT/NGN".
type StaticOracle struct {
	prices map[string]decimal.Decimal
}

var _ pricing.PriceOracle = (*StaticOracle)(nil)

func NewStaticOracle(prices map[string]string) (*StaticOracle, error) {
	parsed := make(map[string]decimal.Decimal, len(prices))
	for pair, raw := range prices {
		price, err := decimal.NewFromString(raw)
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("invalid static price for %s: %q", pair, raw)
		}
		parsed[strings.ToUpper(pair)] = price
	}
	return &StaticOracle{prices: parsed}, nil
}

func (o *StaticOracle) Price(_ context.Context, assetCode, currency asset.Code) (decimal.Decimal, error) {
	if assetCode == currency {
		return decimal.NewFromInt(1), nil
	}
	price, ok := o.prices[assetCode.String()+"/"+currency.String()]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no static price for %s/%s", pricing.ErrPriceUnavailable, assetCode, currency)
	}
	return price, nil
}
