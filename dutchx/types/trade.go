package types

import (
	"errors"
	"time"
)

// StartTimePaddingSeconds 衰减开始时间相对当前时间的延后量（秒）
// 给 relay 和网络留出接收已签名订单的时间
const StartTimePaddingSeconds = 30

// Trade 一次 UniswapX 兑换的描述，由报价流程构建，签名期间只读
type Trade struct {
	// Order 订单模板（衰减时间尚未锚定）
	Order *DutchOrder `json:"order"`
	// AuctionPeriodSecs 价格衰减窗口时长（秒）
	AuctionPeriodSecs uint64 `json:"auctionPeriodSecs"`
	// DeadlineBufferSecs 衰减结束后订单仍可成交的宽限期（秒）
	DeadlineBufferSecs uint64 `json:"deadlineBufferSecs"`
	// QuoteID 与之前报价关联的标识
	QuoteID string `json:"quoteId"`
	// FeeRecipient 手续费输出接收方，可选；该输出的 recipient 不会被改写
	FeeRecipient string `json:"feeRecipient,omitempty"`
}

// Validate 校验交易参数
func (t *Trade) Validate() error {
	if t == nil {
		return errors.New("trade 为空")
	}
	if t.Order == nil {
		return errors.New("trade 缺少订单模板")
	}
	if t.AuctionPeriodSecs == 0 {
		return errors.New("auctionPeriodSecs 必须大于 0")
	}
	return nil
}

// TimeWindow 每次签名时重新计算的时间窗口（unix 秒）
type TimeWindow struct {
	StartTime uint64 `json:"startTime"`
	EndTime   uint64 `json:"endTime"`
	Deadline  uint64 `json:"deadline"`
}

// NewTimeWindow 以 now 为基准计算时间窗口
func NewTimeWindow(now time.Time, trade *Trade) TimeWindow {
	start := uint64(now.Unix()) + StartTimePaddingSeconds
	end := start + trade.AuctionPeriodSecs
	return TimeWindow{
		StartTime: start,
		EndTime:   end,
		Deadline:  end + trade.DeadlineBufferSecs,
	}
}

// Valid startTime < endTime <= deadline
func (w TimeWindow) Valid() bool {
	return w.StartTime < w.EndTime && w.EndTime <= w.Deadline
}

// Expired 当前时间已到达 deadline，订单不可再提交
func (w TimeWindow) Expired(now time.Time) bool {
	return uint64(now.Unix()) >= w.Deadline
}
