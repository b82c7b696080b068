package services

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/swapx/dutchx/client"
	"github.com/betbot/swapx/dutchx/signing"
	"github.com/betbot/swapx/dutchx/types"
	"github.com/betbot/swapx/pkg/orderjournal"
)

const swapTestKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	swapTestAccount = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	swapTestFee     = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeRelay 记录收到的提交
type fakeRelay struct {
	mu    sync.Mutex
	subs  []*client.OrderSubmission
	resp  *client.OrderResponse
	err   error
	check func(sub *client.OrderSubmission)
}

func (r *fakeRelay) SubmitOrder(ctx context.Context, sub *client.OrderSubmission) (*client.OrderResponse, error) {
	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()
	if r.check != nil {
		r.check(sub)
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.resp != nil {
		return r.resp, nil
	}
	order, err := signing.DecodeOrder(sub.EncodedOrder, types.Chain(sub.ChainID))
	if err != nil {
		return nil, err
	}
	hash, err := signing.OrderHash(order)
	if err != nil {
		return nil, err
	}
	return &client.OrderResponse{Hash: hash}, nil
}

func (r *fakeRelay) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

type memJournal struct {
	entries []orderjournal.Entry
	err     error
}

func (j *memJournal) Record(e orderjournal.Entry) error {
	j.entries = append(j.entries, e)
	return j.err
}

func testTrade() *types.Trade {
	return &types.Trade{
		Order: &types.DutchOrder{
			ChainID:        types.ChainMainnet,
			Permit2Address: common.HexToAddress(types.Permit2Address),
			Info: types.OrderInfo{
				Reactor: common.HexToAddress("0x6000da47483062A0D734Ba3dc7576Ce6A0B645C4"),
				Nonce:   big.NewInt(7),
			},
			Input: types.DutchInput{
				Token:       common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
				StartAmount: big.NewInt(1_000_000),
				EndAmount:   big.NewInt(1_000_000),
			},
			Outputs: []types.DutchOutput{
				{Token: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), StartAmount: big.NewInt(500), EndAmount: big.NewInt(490)},
				{Token: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), StartAmount: big.NewInt(5), EndAmount: big.NewInt(5), Recipient: swapTestFee},
			},
		},
		AuctionPeriodSecs:  60,
		DeadlineBufferSecs: 12,
		QuoteID:            "quote-123",
		FeeRecipient:       swapTestFee.Hex(),
	}
}

func newKeySigner(t *testing.T) *signing.PrivateKeySigner {
	t.Helper()
	s, err := signing.NewPrivateKeySignerFromHex(swapTestKey)
	require.NoError(t, err)
	return s
}

func TestSignAndSubmit_Success(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	trade := testTrade()
	signer := newKeySigner(t)

	relay := &fakeRelay{check: func(sub *client.OrderSubmission) {
		assert.Equal(t, uint64(1), sub.ChainID)
		assert.Equal(t, "quote-123", sub.QuoteID)

		order, err := signing.DecodeOrder(sub.EncodedOrder, types.ChainMainnet)
		require.NoError(t, err)
		assert.Equal(t, swapTestAccount, order.Info.Swapper)
		assert.Equal(t, swapTestAccount, order.Outputs[0].Recipient)
		assert.Equal(t, swapTestFee, order.Outputs[1].Recipient)
		assert.Equal(t, uint64(1_700_000_030), order.DecayStartTime)
		assert.Equal(t, uint64(1_700_000_090), order.DecayEndTime)
		assert.Equal(t, uint64(1_700_000_102), order.Info.Deadline)

		data, err := signing.PermitData(order)
		require.NoError(t, err)
		recovered, err := signing.RecoverAddress(data, sub.Signature)
		require.NoError(t, err)
		assert.Equal(t, swapTestAccount, recovered)
	}}
	journal := &memJournal{}

	svc := NewDutchSwapService(relay, WithClock(clock.Now), WithJournal(journal))
	res, err := svc.SignAndSubmit(context.Background(), trade, swapTestAccount.Hex(), signer)
	require.NoError(t, err)

	assert.Equal(t, FillTypeUniswapX, res.FillType)
	assert.Equal(t, uint64(1_700_000_102), res.Deadline)
	assert.Equal(t, 1, res.Attempts)
	assert.Len(t, res.OrderHash, 66)
	assert.Equal(t, 1, relay.calls())

	// trade 模板保持不变
	assert.Equal(t, common.Address{}, trade.Order.Info.Swapper)
	assert.Equal(t, uint64(0), trade.Order.Info.Deadline)

	require.Len(t, journal.entries, 1)
	assert.Equal(t, res.OrderHash, journal.entries[0].OrderHash)
	assert.Equal(t, "quote-123", journal.entries[0].QuoteID)
	assert.Equal(t, relay.subs[0].Signature, journal.entries[0].Signature)
}

func TestSignAndSubmit_StaleSignatureIsResigned(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	key := newKeySigner(t)

	var deadlines []uint64
	attempts := 0
	signer := signing.SignerFunc(func(ctx context.Context, account common.Address, data apitypes.TypedData) (string, error) {
		attempts++
		witness := data.Message["witness"].(map[string]interface{})
		info := witness["info"].(map[string]interface{})
		d := new(big.Int)
		d.SetString(info["deadline"].(string), 10)
		deadlines = append(deadlines, d.Uint64())

		sig, err := key.SignTypedData(ctx, account, data)
		if attempts == 1 {
			// 第一次签名耗时超过整个有效期
			clock.Advance(10 * time.Minute)
		}
		return sig, err
	})

	relay := &fakeRelay{}
	svc := NewDutchSwapService(relay, WithClock(clock.Now))
	res, err := svc.SignAndSubmit(context.Background(), testTrade(), swapTestAccount.Hex(), signer)
	require.NoError(t, err)

	require.Len(t, deadlines, 2)
	assert.Greater(t, deadlines[1], deadlines[0])
	assert.Equal(t, deadlines[1], res.Deadline)
	assert.Equal(t, 2, res.Attempts)
	assert.Greater(t, res.Deadline, uint64(clock.Now().Unix()))
	assert.Equal(t, 1, relay.calls())

	order, err := signing.DecodeOrder(relay.subs[0].EncodedOrder, types.ChainMainnet)
	require.NoError(t, err)
	assert.Equal(t, deadlines[1], order.Info.Deadline)
}

func TestSignAndSubmit_ExpiredAtDeadlineBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	key := newKeySigner(t)
	calls := 0
	signer := signing.SignerFunc(func(ctx context.Context, account common.Address, data apitypes.TypedData) (string, error) {
		calls++
		if calls == 1 {
			// 恰好到达 deadline：30 + 60 + 12 秒
			clock.Advance(102 * time.Second)
		}
		return key.SignTypedData(ctx, account, data)
	})
	svc := NewDutchSwapService(&fakeRelay{}, WithClock(clock.Now))
	res, err := svc.SignAndSubmit(context.Background(), testTrade(), swapTestAccount.Hex(), signer)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, res.Attempts)
}

func TestSignAndSubmit_RetryCap(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	key := newKeySigner(t)
	calls := 0
	signer := signing.SignerFunc(func(ctx context.Context, account common.Address, data apitypes.TypedData) (string, error) {
		calls++
		clock.Advance(time.Hour)
		return key.SignTypedData(ctx, account, data)
	})
	relay := &fakeRelay{}
	svc := NewDutchSwapService(relay, WithClock(clock.Now), WithMaxSignAttempts(3))
	_, err := svc.SignAndSubmit(context.Background(), testTrade(), swapTestAccount.Hex(), signer)
	require.Error(t, err)

	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, relay.calls())
	assert.ErrorIs(t, err, ErrSignatureExpired)
	assert.Equal(t, KindSigningFailed, KindOf(err))
}

func TestSignAndSubmit_UserRejection(t *testing.T) {
	calls := 0
	signer := signing.SignerFunc(func(ctx context.Context, account common.Address, data apitypes.TypedData) (string, error) {
		calls++
		return "", signing.ErrUserRejected
	})
	relay := &fakeRelay{}
	svc := NewDutchSwapService(relay)
	_, err := svc.SignAndSubmit(context.Background(), testTrade(), swapTestAccount.Hex(), signer)

	var rejected *UserRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "Transaction rejected", rejected.Reason)
	assert.Equal(t, KindUserRejected, KindOf(err))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, relay.calls())
}

func TestSignAndSubmit_SigningFailure(t *testing.T) {
	signer := signing.SignerFunc(func(ctx context.Context, account common.Address, data apitypes.TypedData) (string, error) {
		return "", errors.New("insufficient funds for transfer")
	})
	relay := &fakeRelay{}
	svc := NewDutchSwapService(relay)
	_, err := svc.SignAndSubmit(context.Background(), testTrade(), swapTestAccount.Hex(), signer)

	var signErr *SigningError
	require.True(t, errors.As(err, &signErr))
	assert.Equal(t, "Insufficient funds to complete the swap", signErr.Reason)
	assert.Equal(t, KindSigningFailed, KindOf(err))
	assert.Equal(t, 0, relay.calls())
}

func TestSignAndSubmit_Preconditions(t *testing.T) {
	signer := newKeySigner(t)
	relay := &fakeRelay{}
	svc := NewDutchSwapService(relay)
	ctx := context.Background()

	_, err := svc.SignAndSubmit(ctx, testTrade(), "", signer)
	assert.Same(t, ErrMissingAccount, err)

	_, err = svc.SignAndSubmit(ctx, testTrade(), swapTestAccount.Hex(), nil)
	assert.Same(t, ErrMissingSigner, err)

	_, err = svc.SignAndSubmit(ctx, nil, swapTestAccount.Hex(), signer)
	assert.Same(t, ErrMissingTrade, err)

	_, err = svc.SignAndSubmit(ctx, testTrade(), "not-an-address", signer)
	assert.Equal(t, KindPrecondition, KindOf(err))

	bad := testTrade()
	bad.AuctionPeriodSecs = 0
	_, err = svc.SignAndSubmit(ctx, bad, swapTestAccount.Hex(), signer)
	assert.Equal(t, KindPrecondition, KindOf(err))

	_, err = NewDutchSwapService(nil).SignAndSubmit(ctx, testTrade(), swapTestAccount.Hex(), signer)
	assert.Equal(t, KindPrecondition, KindOf(err))

	assert.Equal(t, 0, relay.calls())
}

func TestSignAndSubmit_FeeRecipientIsAccount(t *testing.T) {
	trade := testTrade()
	trade.FeeRecipient = swapTestAccount.Hex()
	relay := &fakeRelay{}
	_, err := NewDutchSwapService(relay).SignAndSubmit(context.Background(), trade, swapTestAccount.Hex(), newKeySigner(t))
	assert.Equal(t, KindSigningFailed, KindOf(err))
	assert.Equal(t, 0, relay.calls())
}

func TestSignAndSubmit_RelayRejection(t *testing.T) {
	relay := &fakeRelay{err: &client.SubmissionError{StatusCode: 400, Message: "42"}}
	_, err := NewDutchSwapService(relay).SignAndSubmit(context.Background(), testTrade(), swapTestAccount.Hex(), newKeySigner(t))

	var subErr *client.SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, "42", subErr.Message)
	assert.Equal(t, KindSubmissionFailed, KindOf(err))
	assert.Equal(t, 1, relay.calls())
}

func TestSignAndSubmit_TransportErrorIsSubmissionFailure(t *testing.T) {
	cause := errors.New("connection refused")
	relay := &fakeRelay{err: cause}
	journal := &memJournal{}
	_, err := NewDutchSwapService(relay, WithJournal(journal)).SignAndSubmit(context.Background(), testTrade(), swapTestAccount.Hex(), newKeySigner(t))

	assert.Equal(t, KindSubmissionFailed, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, journal.entries)
}

func TestSignAndSubmit_JournalFailureDoesNotFail(t *testing.T) {
	journal := &memJournal{err: errors.New("disk full")}
	res, err := NewDutchSwapService(&fakeRelay{}, WithJournal(journal)).
		SignAndSubmit(context.Background(), testTrade(), swapTestAccount.Hex(), newKeySigner(t))
	require.NoError(t, err)
	assert.NotEmpty(t, res.OrderHash)
	assert.Len(t, journal.entries, 1)
}

func TestSignAndSubmit_ConcurrentInvocations(t *testing.T) {
	relay := &fakeRelay{}
	svc := NewDutchSwapService(relay)
	signer := newKeySigner(t)
	trade := testTrade()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SignAndSubmit(context.Background(), trade, swapTestAccount.Hex(), signer)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 8, relay.calls())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("x")))
	assert.Equal(t, KindPrecondition, KindOf(ErrMissingAccount))
	assert.Equal(t, "submission_failed", KindSubmissionFailed.String())
	assert.Equal(t, "missing account", ErrMissingAccount.Error())
}
