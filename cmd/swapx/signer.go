package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/betbot/swapx/dutchx/signing"
	"github.com/betbot/swapx/pkg/config"
	"github.com/betbot/swapx/pkg/secretstore"
)

// buildSigner 按配置构建签名器，返回签名器、提交账户和释放函数
func buildSigner(ctx context.Context, cfg config.SignerConfig) (signing.TypedDataSigner, string, func(), error) {
	noop := func() {}

	switch cfg.Mode() {
	case config.SignerModePrivateKey:
		s, err := signing.NewPrivateKeySignerFromHex(cfg.PrivateKey)
		if err != nil {
			return nil, "", noop, err
		}
		return s, accountOr(cfg.Account, s.Address().Hex()), noop, nil

	case config.SignerModeMnemonic:
		s, err := signing.NewMnemonicSigner(cfg.Mnemonic, cfg.DerivationPath)
		if err != nil {
			return nil, "", noop, err
		}
		return s, accountOr(cfg.Account, s.Address().Hex()), noop, nil

	case config.SignerModeSecretStore:
		s, err := signerFromSecretStore(cfg)
		if err != nil {
			return nil, "", noop, err
		}
		return s, accountOr(cfg.Account, s.Address().Hex()), noop, nil

	case config.SignerModeRPC:
		s, err := signing.DialRPCSigner(ctx, cfg.RPCURL)
		if err != nil {
			return nil, "", noop, err
		}
		return s, cfg.Account, s.Close, nil
	}
	return nil, "", noop, fmt.Errorf("未配置签名方式")
}

func signerFromSecretStore(cfg config.SignerConfig) (*signing.PrivateKeySigner, error) {
	key, err := secretstore.ParseKey(cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("解析密钥库密钥失败: %w", err)
	}
	ss, err := secretstore.Open(secretstore.OpenOptions{
		Path:          cfg.SecretDB,
		EncryptionKey: key,
		ReadOnly:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("打开密钥库失败: %w", err)
	}
	defer ss.Close()

	secrets, err := ss.SignerSecrets()
	if err != nil {
		return nil, err
	}
	if secrets.PrivateKey != "" {
		return signing.NewPrivateKeySignerFromHex(secrets.PrivateKey)
	}
	path := secrets.DerivationPath
	if path == "" {
		path = cfg.DerivationPath
	}
	return signing.NewMnemonicSigner(secrets.Mnemonic, path)
}

func accountOr(account, fallback string) string {
	if strings.TrimSpace(account) != "" {
		return account
	}
	return fallback
}
