package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DutchInput 订单输入（swapper 支付的代币）
// 价格衰减期间输入量从 StartAmount 线性变化到 EndAmount
type DutchInput struct {
	Token       common.Address `json:"token"`
	StartAmount *big.Int       `json:"startAmount"`
	EndAmount   *big.Int       `json:"endAmount"`
}

// DutchOutput 订单输出（swapper 或手续费接收方收到的代币）
type DutchOutput struct {
	Token       common.Address `json:"token"`
	StartAmount *big.Int       `json:"startAmount"`
	EndAmount   *big.Int       `json:"endAmount"`
	Recipient   common.Address `json:"recipient"`
}

// OrderInfo 所有 reactor 订单共享的通用信息
type OrderInfo struct {
	Reactor                      common.Address `json:"reactor"`
	Swapper                      common.Address `json:"swapper"`
	Nonce                        *big.Int       `json:"nonce"`
	Deadline                     uint64         `json:"deadline"`
	AdditionalValidationContract common.Address `json:"additionalValidationContract"`
	AdditionalValidationData     []byte         `json:"additionalValidationData"`
}

// DutchOrder 荷兰式拍卖订单
// 订单模板（尚未锚定衰减时间）与最终签名的订单使用同一结构
type DutchOrder struct {
	ChainID                Chain          `json:"chainId"`
	Permit2Address         common.Address `json:"permit2Address"`
	Info                   OrderInfo      `json:"info"`
	DecayStartTime         uint64         `json:"decayStartTime"`
	DecayEndTime           uint64         `json:"decayEndTime"`
	ExclusiveFiller        common.Address `json:"exclusiveFiller"`
	ExclusivityOverrideBps *big.Int       `json:"exclusivityOverrideBps"`
	Input                  DutchInput     `json:"input"`
	Outputs                []DutchOutput  `json:"outputs"`
}

// Clone 深拷贝订单，签名流程不会修改调用方持有的模板
func (o *DutchOrder) Clone() *DutchOrder {
	if o == nil {
		return nil
	}
	out := *o
	out.Info.Nonce = cloneInt(o.Info.Nonce)
	if o.Info.AdditionalValidationData != nil {
		out.Info.AdditionalValidationData = append([]byte{}, o.Info.AdditionalValidationData...)
	}
	out.ExclusivityOverrideBps = cloneInt(o.ExclusivityOverrideBps)
	out.Input.StartAmount = cloneInt(o.Input.StartAmount)
	out.Input.EndAmount = cloneInt(o.Input.EndAmount)
	if o.Outputs != nil {
		out.Outputs = make([]DutchOutput, len(o.Outputs))
		for i, output := range o.Outputs {
			out.Outputs[i] = DutchOutput{
				Token:       output.Token,
				StartAmount: cloneInt(output.StartAmount),
				EndAmount:   cloneInt(output.EndAmount),
				Recipient:   output.Recipient,
			}
		}
	}
	return &out
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// IntOrZero nil 视为 0
func IntOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
