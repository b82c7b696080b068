package signing

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/betbot/swapx/dutchx/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// permitTypes Permit2 见证转账的类型定义
// 字段顺序决定 typeHash，必须与链上 reactor 保持一致
var permitTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	PrimaryType: {
		{Name: "permitted", Type: "TokenPermissions"},
		{Name: "spender", Type: "address"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
		{Name: "witness", Type: WitnessType},
	},
	"TokenPermissions": {
		{Name: "token", Type: "address"},
		{Name: "amount", Type: "uint256"},
	},
	WitnessType: {
		{Name: "info", Type: "OrderInfo"},
		{Name: "decayStartTime", Type: "uint256"},
		{Name: "decayEndTime", Type: "uint256"},
		{Name: "exclusiveFiller", Type: "address"},
		{Name: "exclusivityOverrideBps", Type: "uint256"},
		{Name: "inputToken", Type: "address"},
		{Name: "inputStartAmount", Type: "uint256"},
		{Name: "inputEndAmount", Type: "uint256"},
		{Name: "outputs", Type: "DutchOutput[]"},
	},
	"OrderInfo": {
		{Name: "reactor", Type: "address"},
		{Name: "swapper", Type: "address"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
		{Name: "additionalValidationContract", Type: "address"},
		{Name: "additionalValidationData", Type: "bytes"},
	},
	"DutchOutput": {
		{Name: "token", Type: "address"},
		{Name: "startAmount", Type: "uint256"},
		{Name: "endAmount", Type: "uint256"},
		{Name: "recipient", Type: "address"},
	},
}

// PermitData 构建订单的 EIP712 签名数据（domain、types、message）
// 结果只取决于订单字段，relay 可以独立重算
func PermitData(order *types.DutchOrder) (apitypes.TypedData, error) {
	if order == nil {
		return apitypes.TypedData{}, errors.New("订单为空")
	}
	if order.Input.EndAmount == nil {
		return apitypes.TypedData{}, errors.New("订单输入 endAmount 未设置")
	}

	permit2 := order.Permit2Address
	if permit2 == (common.Address{}) {
		permit2 = common.HexToAddress(types.Permit2Address)
	}

	domain := apitypes.TypedDataDomain{
		Name:              Permit2DomainName,
		ChainId:           math.NewHexOrDecimal256(int64(order.ChainID)),
		VerifyingContract: permit2.Hex(),
	}

	message := apitypes.TypedDataMessage{
		"permitted": map[string]interface{}{
			"token":  order.Input.Token.Hex(),
			"amount": order.Input.EndAmount.String(),
		},
		"spender":  order.Info.Reactor.Hex(),
		"nonce":    types.IntOrZero(order.Info.Nonce).String(),
		"deadline": strconv.FormatUint(order.Info.Deadline, 10),
		"witness":  witnessMessage(order),
	}

	return apitypes.TypedData{
		Types:       permitTypes,
		PrimaryType: PrimaryType,
		Domain:      domain,
		Message:     message,
	}, nil
}

// witnessMessage 构建 ExclusiveDutchOrder 见证值
func witnessMessage(order *types.DutchOrder) map[string]interface{} {
	outputs := make([]interface{}, 0, len(order.Outputs))
	for _, output := range order.Outputs {
		outputs = append(outputs, map[string]interface{}{
			"token":       output.Token.Hex(),
			"startAmount": types.IntOrZero(output.StartAmount).String(),
			"endAmount":   types.IntOrZero(output.EndAmount).String(),
			"recipient":   output.Recipient.Hex(),
		})
	}

	return map[string]interface{}{
		"info": map[string]interface{}{
			"reactor":                      order.Info.Reactor.Hex(),
			"swapper":                      order.Info.Swapper.Hex(),
			"nonce":                        types.IntOrZero(order.Info.Nonce).String(),
			"deadline":                     strconv.FormatUint(order.Info.Deadline, 10),
			"additionalValidationContract": order.Info.AdditionalValidationContract.Hex(),
			"additionalValidationData":     hexutil.Encode(order.Info.AdditionalValidationData),
		},
		"decayStartTime":         strconv.FormatUint(order.DecayStartTime, 10),
		"decayEndTime":           strconv.FormatUint(order.DecayEndTime, 10),
		"exclusiveFiller":        order.ExclusiveFiller.Hex(),
		"exclusivityOverrideBps": types.IntOrZero(order.ExclusivityOverrideBps).String(),
		"inputToken":             order.Input.Token.Hex(),
		"inputStartAmount":       types.IntOrZero(order.Input.StartAmount).String(),
		"inputEndAmount":         types.IntOrZero(order.Input.EndAmount).String(),
		"outputs":                outputs,
	}
}

// OrderHash 计算订单哈希（ExclusiveDutchOrder 结构哈希）
func OrderHash(order *types.DutchOrder) (string, error) {
	typedData, err := PermitData(order)
	if err != nil {
		return "", err
	}
	witness, ok := typedData.Message["witness"].(map[string]interface{})
	if !ok {
		return "", errors.New("缺少 witness")
	}
	hash, err := typedData.HashStruct(WitnessType, witness)
	if err != nil {
		return "", fmt.Errorf("计算订单哈希失败: %w", err)
	}
	return hexutil.Encode(hash), nil
}

// SigningHash 计算待签名的 EIP712 摘要
func SigningHash(typedData apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("计算 EIP712 哈希失败: %w", err)
	}
	return hash, nil
}
