package signing

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// PrivateKeySigner 使用本地私钥签名
type PrivateKeySigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewPrivateKeySigner 创建私钥签名器
func NewPrivateKeySigner(privateKey *ecdsa.PrivateKey) *PrivateKeySigner {
	return &PrivateKeySigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}
}

// PrivateKeyFromHex 从十六进制字符串解析私钥（可带 0x 前缀）
func PrivateKeyFromHex(hexKey string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
}

// NewPrivateKeySignerFromHex 从十六进制私钥创建签名器
func NewPrivateKeySignerFromHex(hexKey string) (*PrivateKeySigner, error) {
	key, err := PrivateKeyFromHex(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewPrivateKeySigner(key), nil
}

// Address 签名器控制的地址
func (s *PrivateKeySigner) Address() common.Address {
	return s.address
}

// SignTypedData 对 EIP712 数据签名，返回 r||s||v（v 为 27/28）
func (s *PrivateKeySigner) SignTypedData(ctx context.Context, account common.Address, data apitypes.TypedData) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if account != s.address {
		return "", fmt.Errorf("签名器不控制账户 %s（签名器地址 %s）", account.Hex(), s.address.Hex())
	}

	hash, err := SigningHash(data)
	if err != nil {
		return "", err
	}

	// crypto.Sign 返回 65 字节：r(32) + s(32) + v(1)，v 为 0/1
	signature, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("签名失败: %w", err)
	}
	signature[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(signature), nil
}

// RecoverAddress 从 EIP712 数据和签名恢复签名地址
func RecoverAddress(data apitypes.TypedData, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("签名不是合法的十六进制: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("签名长度错误: %d", len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash, err := SigningHash(data)
	if err != nil {
		return common.Address{}, err
	}
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("恢复公钥失败: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
