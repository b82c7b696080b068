package signing

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// TypedDataSigner 账户的签名能力（本地私钥、助记词或外部钱包）
// SignTypedData 可能阻塞等待用户在外部签名器中确认
type TypedDataSigner interface {
	SignTypedData(ctx context.Context, account common.Address, data apitypes.TypedData) (string, error)
}

// SignerFunc 函数适配器
type SignerFunc func(ctx context.Context, account common.Address, data apitypes.TypedData) (string, error)

// SignTypedData 实现 TypedDataSigner
func (f SignerFunc) SignTypedData(ctx context.Context, account common.Address, data apitypes.TypedData) (string, error) {
	return f(ctx, account, data)
}
