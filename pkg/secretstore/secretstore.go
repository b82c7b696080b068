package secretstore

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// 签名器相关的键（位于 DefaultPrefix 之下）
const (
	DefaultPrefix     = "signer/"
	KeyPrivateKey     = "PRIVATE_KEY"
	KeyMnemonic       = "MNEMONIC"
	KeyDerivationPath = "DERIVATION_PATH"
)

// Store Badger 加密 KV 的薄封装
// 加密由 Badger 选项提供（value log + key registry），不在本层实现
type Store struct {
	db     *badger.DB
	prefix string
}

type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 32 字节；为空时不加密（不推荐）
	ReadOnly      bool
	InMemory      bool   // 测试用
	Prefix        string // 为空时使用 DefaultPrefix
}

// SignerSecrets 从 store 读出的签名材料
type SignerSecrets struct {
	PrivateKey     string
	Mnemonic       string
	DerivationPath string
}

func Open(opts OpenOptions) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if strings.TrimSpace(opts.Path) == "" {
			return nil, errors.New("secretstore: path is required")
		}
		bopts = badger.DefaultOptions(opts.Path).WithReadOnly(opts.ReadOnly)
	}
	bopts = bopts.WithLogger(nil)
	if len(opts.EncryptionKey) > 0 {
		// 加密模式下 Badger 要求开启索引缓存
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(100 << 20)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{db: db, prefix: prefix}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetString 读取 prefix+key；第二个返回值表示是否存在
func (s *Store) GetString(key string) (string, bool, error) {
	k, err := s.key(key)
	if err != nil {
		return "", false, err
	}
	var (
		out   string
		found bool
	)
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false, err
	}
	return out, found, nil
}

func (s *Store) SetString(key string, val string) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	v := []byte(val)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
}

func (s *Store) Delete(key string) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

// SignerSecrets 读取签名材料；私钥和助记词都不存在时返回错误
func (s *Store) SignerSecrets() (*SignerSecrets, error) {
	var out SignerSecrets
	for key, dst := range map[string]*string{
		KeyPrivateKey:     &out.PrivateKey,
		KeyMnemonic:       &out.Mnemonic,
		KeyDerivationPath: &out.DerivationPath,
	} {
		v, _, err := s.GetString(key)
		if err != nil {
			return nil, fmt.Errorf("secretstore: read %s: %w", key, err)
		}
		*dst = strings.TrimSpace(v)
	}
	if out.PrivateKey == "" && out.Mnemonic == "" {
		return nil, fmt.Errorf("secretstore: neither %s nor %s is set", KeyPrivateKey, KeyMnemonic)
	}
	return &out, nil
}

func (s *Store) key(key string) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("secretstore: not opened")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("secretstore: key is empty")
	}
	return []byte(s.prefix + key), nil
}

// ParseKey 解析 32 字节密钥（hex 或 base64）；输入为空返回 nil
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	// 先按 hex 解析，避免把 hex 字符串误当作 base64
	if b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x")); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	return nil, errors.New("key must be base64(32 bytes) or hex(32 bytes)")
}
