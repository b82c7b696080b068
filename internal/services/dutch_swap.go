package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/betbot/swapx/dutchx/client"
	"github.com/betbot/swapx/dutchx/signing"
	"github.com/betbot/swapx/dutchx/types"
	"github.com/betbot/swapx/internal/metrics"
	"github.com/betbot/swapx/pkg/orderjournal"
)

var dutchSwapLog = logrus.WithField("component", "dutch_swap")

// DefaultMaxSignAttempts 签名过期后重新签名的次数上限（含首次）
const DefaultMaxSignAttempts = 5

// FillTypeUniswapX 成交方式
const FillTypeUniswapX = "uniswapx"

// OrderRelay 订单 relay
type OrderRelay interface {
	SubmitOrder(ctx context.Context, sub *client.OrderSubmission) (*client.OrderResponse, error)
}

// OrderJournal 已提交订单的记录器（可选）
type OrderJournal interface {
	Record(e orderjournal.Entry) error
}

// SwapResult 提交成功的结果
type SwapResult struct {
	FillType  string `json:"type"`
	OrderHash string `json:"orderHash"`
	Deadline  uint64 `json:"deadline"`
	Attempts  int    `json:"attempts"`
}

// signedOrder 未过期的已签名订单
type signedOrder struct {
	order     *types.DutchOrder
	signature string
	attempt   int
}

// DutchSwapService 荷兰式拍卖订单的签名与提交流程
// 服务本身不保存调用之间的可变状态，可被并发调用
type DutchSwapService struct {
	relay           OrderRelay
	now             func() time.Time
	maxSignAttempts int
	journal         OrderJournal
}

// DutchSwapOption 服务选项
type DutchSwapOption func(*DutchSwapService)

// WithClock 替换时间源（测试用）
func WithClock(now func() time.Time) DutchSwapOption {
	return func(s *DutchSwapService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxSignAttempts 设置签名次数上限
func WithMaxSignAttempts(n int) DutchSwapOption {
	return func(s *DutchSwapService) {
		if n > 0 {
			s.maxSignAttempts = n
		}
	}
}

// WithJournal 提交成功后写入订单日志
func WithJournal(j OrderJournal) DutchSwapOption {
	return func(s *DutchSwapService) {
		s.journal = j
	}
}

// NewDutchSwapService 创建服务
func NewDutchSwapService(relay OrderRelay, opts ...DutchSwapOption) *DutchSwapService {
	s := &DutchSwapService{
		relay:           relay,
		now:             time.Now,
		maxSignAttempts: DefaultMaxSignAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignAndSubmit 为 trade 生成带时间窗口的订单，由 signer 签名后提交给 relay
//
// 签名返回时如果 deadline 已过，丢弃该签名并用新的时间窗口重新签名；
// relay 最多只会收到一次提交。
func (s *DutchSwapService) SignAndSubmit(ctx context.Context, trade *types.Trade, account string, signer signing.TypedDataSigner) (*SwapResult, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, ErrMissingAccount
	}
	if signer == nil {
		return nil, ErrMissingSigner
	}
	if trade == nil {
		return nil, ErrMissingTrade
	}
	if !common.IsHexAddress(account) {
		return nil, &PreconditionError{Field: "account", Reason: "not a hex address: " + account}
	}
	if err := trade.Validate(); err != nil {
		return nil, &PreconditionError{Field: "trade", Reason: err.Error()}
	}
	if s.relay == nil {
		return nil, &PreconditionError{Field: "relay"}
	}
	swapper := common.HexToAddress(account)

	signed, err := s.signDutchOrder(ctx, trade, swapper, signer)
	if err != nil {
		return nil, err
	}

	encoded, err := signing.EncodeOrder(signed.order)
	if err != nil {
		return nil, &SigningError{Reason: "failed to encode order", Err: err}
	}

	resp, err := s.relay.SubmitOrder(ctx, &client.OrderSubmission{
		EncodedOrder: encoded,
		Signature:    signed.signature,
		ChainID:      uint64(signed.order.ChainID),
		QuoteID:      trade.QuoteID,
	})
	if err != nil {
		metrics.SwapSubmitErrors.Add(1)
		var subErr *client.SubmissionError
		if !errors.As(err, &subErr) {
			err = &client.SubmissionError{Message: err.Error(), Err: err}
		}
		dutchSwapLog.WithField("quoteId", trade.QuoteID).Errorf("提交订单失败: %v", err)
		return nil, err
	}
	metrics.SwapSubmitted.Add(1)

	result := &SwapResult{
		FillType:  FillTypeUniswapX,
		OrderHash: resp.Hash,
		Deadline:  signed.order.Info.Deadline,
		Attempts:  signed.attempt,
	}
	dutchSwapLog.WithFields(logrus.Fields{
		"orderHash": result.OrderHash,
		"deadline":  result.Deadline,
		"quoteId":   trade.QuoteID,
	}).Info("订单已提交")

	s.record(trade, signed, encoded, result)
	return result, nil
}

// signDutchOrder 计算时间窗口、绑定账户并请求签名，签名过期则重来
func (s *DutchSwapService) signDutchOrder(ctx context.Context, trade *types.Trade, swapper common.Address, signer signing.TypedDataSigner) (*signedOrder, error) {
	for attempt := 1; attempt <= s.maxSignAttempts; attempt++ {
		window := types.NewTimeWindow(s.now(), trade)
		entry := dutchSwapLog.WithFields(logrus.Fields{
			"startTime": window.StartTime,
			"endTime":   window.EndTime,
			"deadline":  window.Deadline,
			"attempt":   attempt,
			"quoteId":   trade.QuoteID,
		})

		// 时间和账户相关字段在用户发起兑换时才设置，保证尽可能新
		order, err := types.NewOrderBuilder(trade.Order).
			DecayStartTime(window.StartTime).
			DecayEndTime(window.EndTime).
			Deadline(window.Deadline).
			Swapper(swapper).
			NonFeeRecipient(swapper, trade.FeeRecipient).
			Build()
		if err != nil {
			metrics.SwapSigningFailures.Add(1)
			return nil, &SigningError{Reason: err.Error(), Err: err}
		}

		typedData, err := signing.PermitData(order)
		if err != nil {
			metrics.SwapSigningFailures.Add(1)
			return nil, &SigningError{Reason: err.Error(), Err: err}
		}

		metrics.SwapSignAttempts.Add(1)
		entry.Debug("请求签名")
		signature, err := signer.SignTypedData(ctx, swapper, typedData)
		if err != nil {
			if signing.IsUserRejection(err) {
				metrics.SwapUserRejections.Add(1)
				entry.WithField("status", "cancelled").Info("用户取消签名")
				return nil, &UserRejectedError{Reason: signing.ReadableMessage(err), Err: err}
			}
			metrics.SwapSigningFailures.Add(1)
			entry.Warnf("签名失败: %v", err)
			return nil, &SigningError{Reason: signing.ReadableMessage(err), Err: err}
		}

		if window.Expired(s.now()) {
			metrics.SwapStaleSignatures.Add(1)
			entry.Warn("签名耗时超过订单有效期，重新签名")
			continue
		}
		return &signedOrder{order: order, signature: signature, attempt: attempt}, nil
	}

	metrics.SwapSigningFailures.Add(1)
	return nil, &SigningError{Reason: ErrSignatureExpired.Error(), Err: ErrSignatureExpired}
}

func (s *DutchSwapService) record(trade *types.Trade, signed *signedOrder, encoded string, result *SwapResult) {
	if s.journal == nil {
		return
	}
	err := s.journal.Record(orderjournal.Entry{
		OrderHash:    result.OrderHash,
		QuoteID:      trade.QuoteID,
		ChainID:      uint64(signed.order.ChainID),
		Swapper:      signed.order.Info.Swapper.Hex(),
		Deadline:     result.Deadline,
		EncodedOrder: encoded,
		Signature:    signed.signature,
		Attempts:     signed.attempt,
		SubmittedAt:  s.now(),
	})
	if err != nil {
		dutchSwapLog.Warnf("写入订单日志失败: %v", err)
	}
}
