package signing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// RPCSigner 通过 JSON-RPC（eth_signTypedData_v4）请求外部钱包签名
// 外部钱包可能需要用户确认，这里不设置额外超时，由 ctx 控制
type RPCSigner struct {
	client *rpc.Client
}

// DialRPCSigner 连接外部签名器（例如 clef 或钱包桥接服务）
func DialRPCSigner(ctx context.Context, endpoint string) (*RPCSigner, error) {
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("连接签名器失败 %s: %w", endpoint, err)
	}
	return &RPCSigner{client: client}, nil
}

// NewRPCSigner 使用已有的 RPC 客户端
func NewRPCSigner(client *rpc.Client) *RPCSigner {
	return &RPCSigner{client: client}
}

// SignTypedData 实现 TypedDataSigner
func (s *RPCSigner) SignTypedData(ctx context.Context, account common.Address, data apitypes.TypedData) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("序列化 typed data 失败: %w", err)
	}
	var signature string
	if err := s.client.CallContext(ctx, &signature, "eth_signTypedData_v4", account.Hex(), string(payload)); err != nil {
		return "", err
	}
	return signature, nil
}

// Close 关闭连接
func (s *RPCSigner) Close() {
	if s.client != nil {
		s.client.Close()
	}
}
