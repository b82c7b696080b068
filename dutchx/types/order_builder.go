package types

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// OrderBuilder 基于订单模板构建最终订单
// 构建过程只修改模板的副本
type OrderBuilder struct {
	order *DutchOrder
	err   error
}

// NewOrderBuilder 从已有订单模板创建 builder
func NewOrderBuilder(template *DutchOrder) *OrderBuilder {
	if template == nil {
		return &OrderBuilder{err: errors.New("订单模板为空")}
	}
	return &OrderBuilder{order: template.Clone()}
}

// DecayStartTime 设置价格衰减开始时间（unix 秒）
func (b *OrderBuilder) DecayStartTime(t uint64) *OrderBuilder {
	if b.order != nil {
		b.order.DecayStartTime = t
	}
	return b
}

// DecayEndTime 设置价格衰减结束时间（unix 秒）
func (b *OrderBuilder) DecayEndTime(t uint64) *OrderBuilder {
	if b.order != nil {
		b.order.DecayEndTime = t
	}
	return b
}

// Deadline 设置订单截止时间（unix 秒）
func (b *OrderBuilder) Deadline(t uint64) *OrderBuilder {
	if b.order != nil {
		b.order.Info.Deadline = t
	}
	return b
}

// Swapper 设置订单发起账户
func (b *OrderBuilder) Swapper(swapper common.Address) *OrderBuilder {
	if b.order != nil {
		b.order.Info.Swapper = swapper
	}
	return b
}

// Nonce 设置 Permit2 nonce
func (b *OrderBuilder) Nonce(nonce *big.Int) *OrderBuilder {
	if b.order != nil {
		b.order.Info.Nonce = cloneInt(nonce)
	}
	return b
}

// NonFeeRecipient 将所有非手续费输出的接收方改为 recipient
// feeRecipient 为空时所有输出都会被改写
func (b *OrderBuilder) NonFeeRecipient(recipient common.Address, feeRecipient string) *OrderBuilder {
	if b.order == nil || b.err != nil {
		return b
	}
	fee := strings.TrimSpace(feeRecipient)
	if fee != "" && strings.EqualFold(recipient.Hex(), fee) {
		b.err = fmt.Errorf("recipient 不能与 feeRecipient 相同: %s", recipient.Hex())
		return b
	}
	for i := range b.order.Outputs {
		if fee != "" && strings.EqualFold(b.order.Outputs[i].Recipient.Hex(), fee) {
			continue
		}
		b.order.Outputs[i].Recipient = recipient
	}
	return b
}

// Build 校验并返回最终订单
func (b *OrderBuilder) Build() (*DutchOrder, error) {
	if b.err != nil {
		return nil, b.err
	}
	o := b.order
	if o.Info.Swapper == (common.Address{}) {
		return nil, errors.New("订单缺少 swapper")
	}
	if o.Info.Reactor == (common.Address{}) {
		return nil, errors.New("订单缺少 reactor")
	}
	if o.DecayStartTime > o.DecayEndTime {
		return nil, fmt.Errorf("decayStartTime(%d) 晚于 decayEndTime(%d)", o.DecayStartTime, o.DecayEndTime)
	}
	if o.DecayEndTime > o.Info.Deadline {
		return nil, fmt.Errorf("decayEndTime(%d) 晚于 deadline(%d)", o.DecayEndTime, o.Info.Deadline)
	}
	if o.Input.StartAmount == nil || o.Input.EndAmount == nil {
		return nil, errors.New("订单输入数量未设置")
	}
	if o.Input.StartAmount.Cmp(o.Input.EndAmount) > 0 {
		return nil, errors.New("输入 startAmount 不能大于 endAmount")
	}
	if len(o.Outputs) == 0 {
		return nil, errors.New("订单至少需要一个输出")
	}
	for i, output := range o.Outputs {
		if output.StartAmount == nil || output.EndAmount == nil {
			return nil, fmt.Errorf("输出 #%d 数量未设置", i)
		}
		if output.StartAmount.Cmp(output.EndAmount) < 0 {
			return nil, fmt.Errorf("输出 #%d startAmount 不能小于 endAmount", i)
		}
	}
	if o.Info.Nonce == nil {
		o.Info.Nonce = new(big.Int)
	}
	if o.ExclusivityOverrideBps == nil {
		o.ExclusivityOverrideBps = new(big.Int)
	}
	return o, nil
}
