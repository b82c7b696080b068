// Package tradefile 从 JSON 文件读取 trade 描述
// 金额使用人类可读的小数（例如 "1.5" USDC），按代币精度换算为链上整数
package tradefile

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/betbot/swapx/dutchx/types"
)

// maxDecimals ERC20 精度上限
const maxDecimals = 36

// Amount 代币数量
type Amount struct {
	Token       string `json:"token"`
	Decimals    int32  `json:"decimals"`
	StartAmount string `json:"startAmount"`
	EndAmount   string `json:"endAmount"`
	Recipient   string `json:"recipient,omitempty"` // 只对输出有效
}

// File trade 文件结构
type File struct {
	ChainID                uint64   `json:"chainId"`
	QuoteID                string   `json:"quoteId"`
	AuctionPeriodSecs      uint64   `json:"auctionPeriodSecs"`
	DeadlineBufferSecs     uint64   `json:"deadlineBufferSecs"`
	FeeRecipient           string   `json:"feeRecipient,omitempty"`
	Reactor                string   `json:"reactor,omitempty"` // 为空时使用链默认 reactor
	Nonce                  string   `json:"nonce,omitempty"`   // 十进制；为空时随机生成
	ExclusiveFiller        string   `json:"exclusiveFiller,omitempty"`
	ExclusivityOverrideBps uint64   `json:"exclusivityOverrideBps,omitempty"`
	Input                  Amount   `json:"input"`
	Outputs                []Amount `json:"outputs"`
}

// Load 读取并转换 trade 文件
func Load(path string) (*types.Trade, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取 trade 文件失败: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析 trade 文件失败: %w", err)
	}
	return f.Trade()
}

// Trade 转换为订单模板
func (f *File) Trade() (*types.Trade, error) {
	chain := types.Chain(f.ChainID)
	if f.ChainID == 0 {
		chain = types.ChainMainnet
	}
	contracts, err := types.GetContractConfig(chain)
	if err != nil {
		return nil, err
	}

	reactorHex := strings.TrimSpace(f.Reactor)
	if reactorHex == "" {
		reactorHex = contracts.Reactor
	}
	if reactorHex == "" {
		return nil, fmt.Errorf("链 %s 没有默认 reactor，需要在 trade 文件中指定", chain)
	}
	reactor, err := parseAddress("reactor", reactorHex)
	if err != nil {
		return nil, err
	}

	nonce, err := parseNonce(f.Nonce)
	if err != nil {
		return nil, err
	}

	filler := common.Address{}
	if strings.TrimSpace(f.ExclusiveFiller) != "" {
		if filler, err = parseAddress("exclusiveFiller", f.ExclusiveFiller); err != nil {
			return nil, err
		}
	}

	inToken, err := parseAddress("input.token", f.Input.Token)
	if err != nil {
		return nil, err
	}
	inStart, err := ToBaseUnits(f.Input.StartAmount, f.Input.Decimals)
	if err != nil {
		return nil, fmt.Errorf("input.startAmount: %w", err)
	}
	inEnd, err := ToBaseUnits(f.Input.EndAmount, f.Input.Decimals)
	if err != nil {
		return nil, fmt.Errorf("input.endAmount: %w", err)
	}

	if len(f.Outputs) == 0 {
		return nil, fmt.Errorf("outputs 不能为空")
	}
	outputs := make([]types.DutchOutput, 0, len(f.Outputs))
	for i, o := range f.Outputs {
		token, err := parseAddress(fmt.Sprintf("outputs[%d].token", i), o.Token)
		if err != nil {
			return nil, err
		}
		start, err := ToBaseUnits(o.StartAmount, o.Decimals)
		if err != nil {
			return nil, fmt.Errorf("outputs[%d].startAmount: %w", i, err)
		}
		end, err := ToBaseUnits(o.EndAmount, o.Decimals)
		if err != nil {
			return nil, fmt.Errorf("outputs[%d].endAmount: %w", i, err)
		}
		// recipient 为空时由签名流程绑定到提交账户
		recipient := common.Address{}
		if strings.TrimSpace(o.Recipient) != "" {
			if recipient, err = parseAddress(fmt.Sprintf("outputs[%d].recipient", i), o.Recipient); err != nil {
				return nil, err
			}
		}
		outputs = append(outputs, types.DutchOutput{
			Token:       token,
			StartAmount: start,
			EndAmount:   end,
			Recipient:   recipient,
		})
	}

	if f.FeeRecipient != "" && !common.IsHexAddress(f.FeeRecipient) {
		return nil, fmt.Errorf("feeRecipient 不是有效地址: %s", f.FeeRecipient)
	}

	trade := &types.Trade{
		Order: &types.DutchOrder{
			ChainID:        chain,
			Permit2Address: common.HexToAddress(contracts.Permit2),
			Info: types.OrderInfo{
				Reactor: reactor,
				Nonce:   nonce,
			},
			ExclusiveFiller:        filler,
			ExclusivityOverrideBps: new(big.Int).SetUint64(f.ExclusivityOverrideBps),
			Input: types.DutchInput{
				Token:       inToken,
				StartAmount: inStart,
				EndAmount:   inEnd,
			},
			Outputs: outputs,
		},
		AuctionPeriodSecs:  f.AuctionPeriodSecs,
		DeadlineBufferSecs: f.DeadlineBufferSecs,
		QuoteID:            f.QuoteID,
		FeeRecipient:       f.FeeRecipient,
	}
	if err := trade.Validate(); err != nil {
		return nil, err
	}
	return trade, nil
}

// ToBaseUnits 把小数金额按精度换算为整数；超出精度的小数位视为错误
func ToBaseUnits(amount string, decimals int32) (*big.Int, error) {
	if decimals < 0 || decimals > maxDecimals {
		return nil, fmt.Errorf("decimals 超出范围: %d", decimals)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("无效金额 %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("金额不能为负: %s", amount)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("金额 %s 超出 %d 位精度", amount, decimals)
	}
	return scaled.BigInt(), nil
}

// FromBaseUnits 整数金额转为小数字符串（用于展示）
func FromBaseUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

func parseAddress(field, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s 不是有效地址: %q", field, s)
	}
	return common.HexToAddress(s), nil
}

// parseNonce 未指定 nonce 时用随机 UUID 的 128 位作为 Permit2 nonce
func parseNonce(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		id := uuid.New()
		return new(big.Int).SetBytes(id[:]), nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("nonce 无效: %q", s)
	}
	return n, nil
}
