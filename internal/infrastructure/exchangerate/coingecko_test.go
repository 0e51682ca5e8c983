package exchangerate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/offramp/internal/application/settlement/pricing"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

type priceServer struct {
	*httptest.Server
	calls  atomic.Int32
	mu     sync.Mutex
	status int
	body   string
}

func newPriceServer(t *testing.T, body string) *priceServer {
	ps := &priceServer{status: http.StatusOK, body: body}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.calls.Add(1)
		assert.Equal(t, "/simple/price", r.URL.Path)
		ps.mu.Lock()
		status, body := ps.status, ps.body
		ps.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *priceServer) respond(status int, body string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.status, ps.body = status, body
}

func newTestOracle(url string, clock biztime.Clock) *CoinGeckoOracle {
	return NewCoinGeckoOracle(CoinGeckoConfig{
		BaseURL:     url,
		CacheTTL:    time.Minute,
		MaxCacheAge: 10 * time.Minute,
		Timeout:     time.Second,
	}, clock, logger.NewNop())
}

func TestCoinGeckoOracle_FetchesAndCaches(t *testing.T) {
	srv := newPriceServer(t, `{"tether":{"ngn":1523.4567}}`)
	clock := biztime.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	oracle := newTestOracle(srv.URL, clock)

	price, err := oracle.Price(context.Background(), asset.USDT, asset.NGN)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1523.4567").Equal(price))

	_, err = oracle.Price(context.Background(), asset.USDT, asset.NGN)
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.calls.Load())

	clock.Advance(2 * time.Minute)
	_, err = oracle.Price(context.Background(), asset.USDT, asset.NGN)
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.calls.Load())
}

func TestCoinGeckoOracle_FailsClosedWhenCacheTooOld(t *testing.T) {
	srv := newPriceServer(t, `{"tether":{"usd":1.0001}}`)
	clock := biztime.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	oracle := newTestOracle(srv.URL, clock)

	_, err := oracle.Price(context.Background(), asset.USDT, asset.USD)
	require.NoError(t, err)

	srv.respond(http.StatusTooManyRequests, `{"error":"rate limited"}`)

	clock.Advance(5 * time.Minute)
	price, err := oracle.Price(context.Background(), asset.USDT, asset.USD)
	require.NoError(t, err, "stale but within max age")
	assert.True(t, decimal.RequireFromString("1.0001").Equal(price))

	clock.Advance(6 * time.Minute)
	_, err = oracle.Price(context.Background(), asset.USDT, asset.USD)
	assert.ErrorIs(t, err, pricing.ErrPriceUnavailable)
}

func TestCoinGeckoOracle_RejectsBadResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, ``},
		{"missing pair", http.StatusOK, `{"bitcoin":{"ngn":1}}`},
		{"zero price", http.StatusOK, `{"tether":{"ngn":0}}`},
		{"malformed", http.StatusOK, `{"tether":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newPriceServer(t, tt.body)
			srv.respond(tt.status, tt.body)
			oracle := newTestOracle(srv.URL, biztime.SystemClock())

			_, err := oracle.Price(context.Background(), asset.USDT, asset.NGN)
			assert.ErrorIs(t, err, pricing.ErrPriceUnavailable)
		})
	}
}

func TestCoinGeckoOracle_CoalescesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"bitcoin":{"ngn":150000000}}`))
	}))
	defer srv.Close()

	oracle := newTestOracle(srv.URL, biztime.SystemClock())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := oracle.Price(context.Background(), asset.BTC, asset.NGN)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestStaticOracle(t *testing.T) {
	oracle, err := NewStaticOracle(map[string]string{"usdt/ngn": "1500"})
	require.NoError(t, err)

	price, err := oracle.Price(context.Background(), asset.USDT, asset.NGN)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1500).Equal(price))

	_, err = oracle.Price(context.Background(), asset.BTC, asset.NGN)
	assert.ErrorIs(t, err, pricing.ErrPriceUnavailable)

	_, err = NewStaticOracle(map[string]string{"USDT/NGN": "-1"})
	assert.Error(t, err)
}
