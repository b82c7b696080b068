package signing

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/betbot/swapx/dutchx/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// orderArguments 订单的 ABI 编码格式（与 reactor 解码格式一致）
var orderArguments = func() abi.Arguments {
	tokenAmount := []abi.ArgumentMarshaling{
		{Name: "token", Type: "address"},
		{Name: "startAmount", Type: "uint256"},
		{Name: "endAmount", Type: "uint256"},
	}
	orderType, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "info", Type: "tuple", Components: []abi.ArgumentMarshaling{
			{Name: "reactor", Type: "address"},
			{Name: "swapper", Type: "address"},
			{Name: "nonce", Type: "uint256"},
			{Name: "deadline", Type: "uint256"},
			{Name: "additionalValidationContract", Type: "address"},
			{Name: "additionalValidationData", Type: "bytes"},
		}},
		{Name: "decayStartTime", Type: "uint256"},
		{Name: "decayEndTime", Type: "uint256"},
		{Name: "exclusiveFiller", Type: "address"},
		{Name: "exclusivityOverrideBps", Type: "uint256"},
		{Name: "input", Type: "tuple", Components: tokenAmount},
		{Name: "outputs", Type: "tuple[]", Components: append(append([]abi.ArgumentMarshaling{}, tokenAmount...),
			abi.ArgumentMarshaling{Name: "recipient", Type: "address"})},
	})
	if err != nil {
		panic(fmt.Sprintf("订单 ABI 类型定义错误: %v", err))
	}
	return abi.Arguments{{Name: "order", Type: orderType}}
}()

// 以下结构体字段顺序必须与 ABI components 一致（解码按下标赋值）
type abiOrderInfo struct {
	Reactor                      common.Address `abi:"reactor"`
	Swapper                      common.Address `abi:"swapper"`
	Nonce                        *big.Int       `abi:"nonce"`
	Deadline                     *big.Int       `abi:"deadline"`
	AdditionalValidationContract common.Address `abi:"additionalValidationContract"`
	AdditionalValidationData     []byte         `abi:"additionalValidationData"`
}

type abiInput struct {
	Token       common.Address `abi:"token"`
	StartAmount *big.Int       `abi:"startAmount"`
	EndAmount   *big.Int       `abi:"endAmount"`
}

type abiOutput struct {
	Token       common.Address `abi:"token"`
	StartAmount *big.Int       `abi:"startAmount"`
	EndAmount   *big.Int       `abi:"endAmount"`
	Recipient   common.Address `abi:"recipient"`
}

type abiOrder struct {
	Info                   abiOrderInfo   `abi:"info"`
	DecayStartTime         *big.Int       `abi:"decayStartTime"`
	DecayEndTime           *big.Int       `abi:"decayEndTime"`
	ExclusiveFiller        common.Address `abi:"exclusiveFiller"`
	ExclusivityOverrideBps *big.Int       `abi:"exclusivityOverrideBps"`
	Input                  abiInput       `abi:"input"`
	Outputs                []abiOutput    `abi:"outputs"`
}

// EncodeOrder 将订单序列化为 ABI 编码的十六进制字符串（0x 前缀）
func EncodeOrder(order *types.DutchOrder) (string, error) {
	if order == nil {
		return "", errors.New("订单为空")
	}
	outputs := make([]abiOutput, 0, len(order.Outputs))
	for _, o := range order.Outputs {
		outputs = append(outputs, abiOutput{
			Token:       o.Token,
			StartAmount: types.IntOrZero(o.StartAmount),
			EndAmount:   types.IntOrZero(o.EndAmount),
			Recipient:   o.Recipient,
		})
	}
	validationData := order.Info.AdditionalValidationData
	if validationData == nil {
		validationData = []byte{}
	}
	packed, err := orderArguments.Pack(abiOrder{
		Info: abiOrderInfo{
			Reactor:                      order.Info.Reactor,
			Swapper:                      order.Info.Swapper,
			Nonce:                        types.IntOrZero(order.Info.Nonce),
			Deadline:                     new(big.Int).SetUint64(order.Info.Deadline),
			AdditionalValidationContract: order.Info.AdditionalValidationContract,
			AdditionalValidationData:     validationData,
		},
		DecayStartTime:         new(big.Int).SetUint64(order.DecayStartTime),
		DecayEndTime:           new(big.Int).SetUint64(order.DecayEndTime),
		ExclusiveFiller:        order.ExclusiveFiller,
		ExclusivityOverrideBps: types.IntOrZero(order.ExclusivityOverrideBps),
		Input: abiInput{
			Token:       order.Input.Token,
			StartAmount: types.IntOrZero(order.Input.StartAmount),
			EndAmount:   types.IntOrZero(order.Input.EndAmount),
		},
		Outputs: outputs,
	})
	if err != nil {
		return "", fmt.Errorf("ABI 编码订单失败: %w", err)
	}
	return hexutil.Encode(packed), nil
}

// DecodeOrder 解析 ABI 编码的订单
// chainID 与 permit2 不在编码内容中，由调用方提供
func DecodeOrder(encoded string, chainID types.Chain) (order *types.DutchOrder, err error) {
	raw, err := hexutil.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("订单不是合法的十六进制: %w", err)
	}
	values, err := orderArguments.Unpack(raw)
	if err != nil {
		return nil, fmt.Errorf("ABI 解码订单失败: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("ABI 解码结果数量异常: %d", len(values))
	}

	// abi.ConvertType 在类型不匹配时会 panic
	defer func() {
		if r := recover(); r != nil {
			order = nil
			err = fmt.Errorf("ABI 订单结构转换失败: %v", r)
		}
	}()
	decoded := *abi.ConvertType(values[0], new(abiOrder)).(*abiOrder)

	out := &types.DutchOrder{
		ChainID:        chainID,
		Permit2Address: common.HexToAddress(types.Permit2Address),
		Info: types.OrderInfo{
			Reactor:                      decoded.Info.Reactor,
			Swapper:                      decoded.Info.Swapper,
			Nonce:                        decoded.Info.Nonce,
			Deadline:                     decoded.Info.Deadline.Uint64(),
			AdditionalValidationContract: decoded.Info.AdditionalValidationContract,
			AdditionalValidationData:     decoded.Info.AdditionalValidationData,
		},
		DecayStartTime:         decoded.DecayStartTime.Uint64(),
		DecayEndTime:           decoded.DecayEndTime.Uint64(),
		ExclusiveFiller:        decoded.ExclusiveFiller,
		ExclusivityOverrideBps: decoded.ExclusivityOverrideBps,
		Input: types.DutchInput{
			Token:       decoded.Input.Token,
			StartAmount: decoded.Input.StartAmount,
			EndAmount:   decoded.Input.EndAmount,
		},
	}
	for _, o := range decoded.Outputs {
		out.Outputs = append(out.Outputs, types.DutchOutput{
			Token:       o.Token,
			StartAmount: o.StartAmount,
			EndAmount:   o.EndAmount,
			Recipient:   o.Recipient,
		})
	}
	return out, nil
}
