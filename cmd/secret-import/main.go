package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/betbot/swapx/pkg/secretstore"
)

// 从 .env 导入签名材料到 Badger 密钥库
// .env 中可识别的键：SWAPX_PRIVATE_KEY、SWAPX_MNEMONIC、SWAPX_DERIVATION_PATH
var importKeys = map[string]string{
	"SWAPX_PRIVATE_KEY":     secretstore.KeyPrivateKey,
	"SWAPX_MNEMONIC":        secretstore.KeyMnemonic,
	"SWAPX_DERIVATION_PATH": secretstore.KeyDerivationPath,
}

func main() {
	var (
		inPath    = flag.String("in", ".env", "input .env file path")
		dbPath    = flag.String("badger", getenv("SWAPX_SECRET_DB", "data/secrets.badger"), "badger secrets db path")
		secretKey = flag.String("secret-key", getenv("SWAPX_SECRET_KEY", ""), "badger encryption key (32 bytes base64/hex)")
	)
	flag.Parse()

	keyBytes, err := secretstore.ParseKey(*secretKey)
	if err != nil {
		fatal(err)
	}
	if keyBytes == nil {
		fatal(fmt.Errorf("secret key is required: set SWAPX_SECRET_KEY or pass -secret-key"))
	}

	kv, err := godotenv.Read(*inPath)
	if err != nil {
		fatal(err)
	}

	ss, err := secretstore.Open(secretstore.OpenOptions{
		Path:          *dbPath,
		EncryptionKey: keyBytes,
	})
	if err != nil {
		fatal(err)
	}
	defer ss.Close()

	written := 0
	for envKey, storeKey := range importKeys {
		v := strings.TrimSpace(kv[envKey])
		if v == "" {
			continue
		}
		if err := ss.SetString(storeKey, v); err != nil {
			fatal(err)
		}
		written++
	}
	if written == 0 {
		fatal(fmt.Errorf("%s 中没有可导入的签名材料", *inPath))
	}

	fmt.Fprintf(os.Stderr, "已导入 %d 项到 badger：%s\n", written, *dbPath)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
