package relaysim

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/swapx/dutchx/client"
	"github.com/betbot/swapx/dutchx/signing"
	"github.com/betbot/swapx/dutchx/types"
	"github.com/betbot/swapx/internal/services"
)

const simTestKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var simTestAccount = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func newTestRelay(t *testing.T, chains ...types.Chain) (*Server, *client.Client) {
	t.Helper()
	srv, err := New(Config{DBPath: ":memory:", Chains: chains})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	hs := httptest.NewServer(srv.Router())
	t.Cleanup(hs.Close)
	return srv, client.NewClient(hs.URL)
}

func simTrade() *types.Trade {
	return &types.Trade{
		Order: &types.DutchOrder{
			ChainID:        types.ChainMainnet,
			Permit2Address: common.HexToAddress(types.Permit2Address),
			Info: types.OrderInfo{
				Reactor: common.HexToAddress("0x6000da47483062A0D734Ba3dc7576Ce6A0B645C4"),
				Nonce:   big.NewInt(99),
			},
			Input: types.DutchInput{
				Token:       common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
				StartAmount: big.NewInt(2_000_000),
				EndAmount:   big.NewInt(2_000_000),
			},
			Outputs: []types.DutchOutput{{
				Token:       common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
				StartAmount: big.NewInt(1000),
				EndAmount:   big.NewInt(950),
			}},
		},
		AuctionPeriodSecs:  60,
		DeadlineBufferSecs: 12,
		QuoteID:            "sim-quote",
	}
}

func newSigner(t *testing.T) *signing.PrivateKeySigner {
	t.Helper()
	s, err := signing.NewPrivateKeySignerFromHex(simTestKey)
	require.NoError(t, err)
	return s
}

// capturingRelay 记录提交内容后转发给真实客户端
type capturingRelay struct {
	next *client.Client
	last *client.OrderSubmission
}

func (r *capturingRelay) SubmitOrder(ctx context.Context, sub *client.OrderSubmission) (*client.OrderResponse, error) {
	r.last = sub
	return r.next.SubmitOrder(ctx, sub)
}

func TestRelaySim_EndToEnd(t *testing.T) {
	_, c := newTestRelay(t)
	relay := &capturingRelay{next: c}
	svc := services.NewDutchSwapService(relay)

	res, err := svc.SignAndSubmit(context.Background(), simTrade(), simTestAccount.Hex(), newSigner(t))
	require.NoError(t, err)
	assert.Equal(t, services.FillTypeUniswapX, res.FillType)

	order, err := signing.DecodeOrder(relay.last.EncodedOrder, types.ChainMainnet)
	require.NoError(t, err)
	want, err := signing.OrderHash(order)
	require.NoError(t, err)
	assert.Equal(t, want, res.OrderHash)

	orders, err := c.GetOrders(context.Background(), simTestAccount.Hex(), 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, res.OrderHash, orders[0].OrderHash)
	assert.Equal(t, "sim-quote", orders[0].QuoteID)
	assert.Equal(t, res.Deadline, orders[0].Deadline)

	// 同一订单再次提交
	_, err = c.SubmitOrder(context.Background(), relay.last)
	var subErr *client.SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, http.StatusConflict, subErr.StatusCode)
	assert.Equal(t, "1006", subErr.Message)
}

func TestRelaySim_RejectsTamperedSignature(t *testing.T) {
	_, c := newTestRelay(t)
	key := newSigner(t)
	tamper := signing.SignerFunc(func(ctx context.Context, account common.Address, data apitypes.TypedData) (string, error) {
		sig, err := key.SignTypedData(ctx, account, data)
		if err != nil {
			return "", err
		}
		raw := hexutil.MustDecode(sig)
		raw[5] ^= 0xff
		return hexutil.Encode(raw), nil
	})

	_, err := services.NewDutchSwapService(c).SignAndSubmit(context.Background(), simTrade(), simTestAccount.Hex(), tamper)
	var subErr *client.SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, http.StatusBadRequest, subErr.StatusCode)
	assert.Equal(t, "1005", subErr.Message)
	assert.Equal(t, services.KindSubmissionFailed, services.KindOf(err))
}

func TestRelaySim_RejectsExpiredOrder(t *testing.T) {
	_, c := newTestRelay(t)
	past := func() time.Time { return time.Now().Add(-time.Hour) }
	_, err := services.NewDutchSwapService(c, services.WithClock(past)).
		SignAndSubmit(context.Background(), simTrade(), simTestAccount.Hex(), newSigner(t))
	var subErr *client.SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, "1004", subErr.Message)
}

func TestRelaySim_RejectsUnsupportedChain(t *testing.T) {
	_, c := newTestRelay(t, types.ChainArbitrum)
	_, err := services.NewDutchSwapService(c).
		SignAndSubmit(context.Background(), simTrade(), simTestAccount.Hex(), newSigner(t))
	var subErr *client.SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, "1003", subErr.Message)
}

func TestRelaySim_InvalidBodies(t *testing.T) {
	srv, err := New(Config{DBPath: ":memory:"})
	require.NoError(t, err)
	defer srv.Close()
	router := srv.Router()

	cases := []struct {
		body string
		code int
	}{
		{`not json`, ErrorCodeInvalidBody},
		{`{"chainId":1}`, ErrorCodeInvalidBody},
		{`{"encodedOrder":"0x1234","signature":"0x12","chainId":1}`, ErrorCodeInvalidOrder},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, client.EndpointDutchAuctionOrder, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, tc.body)
		var resp client.OrderErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, tc.code, resp.ErrorCode, tc.body)
		assert.NotEmpty(t, resp.Detail)
	}
}

func TestRelaySim_ListValidation(t *testing.T) {
	srv, err := New(Config{DBPath: ":memory:"})
	require.NoError(t, err)
	defer srv.Close()
	router := srv.Router()

	for _, q := range []string{"?limit=abc", "?limit=0", "?swapper=nope"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, client.EndpointDutchAuctionOrders+q, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, client.EndpointDutchAuctionOrders, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"orders":[]}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRelaySim_RateLimit(t *testing.T) {
	srv, err := New(Config{DBPath: ":memory:", RateBurst: 1})
	require.NoError(t, err)
	defer srv.Close()
	router := srv.Router()

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, client.EndpointDutchAuctionOrder, strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// 第一次消耗令牌（请求体无效），第二次被限流
	assert.Equal(t, http.StatusBadRequest, post().Code)
	w := post()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var resp client.OrderErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrorCodeRateLimited, resp.ErrorCode)
	assert.Empty(t, w.Header().Get("Retry-After"))

	// 查询不受限
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, client.EndpointDutchAuctionOrders, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNew_RequiresDBPath(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
