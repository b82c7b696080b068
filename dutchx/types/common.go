package types

import "fmt"

// Chain 区块链网络 ID
type Chain uint64

const (
	ChainMainnet  Chain = 1
	ChainGoerli   Chain = 5
	ChainPolygon  Chain = 137
	ChainArbitrum Chain = 42161
)

// Permit2Address Permit2 合约地址（所有链相同）
const Permit2Address = "0x000000000022D473030F116dDEE9F6B43aC78BA3"

// ZeroAddress 零地址
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// ContractConfig 合约配置
type ContractConfig struct {
	Permit2 string // Permit2 合约地址（EIP712 verifyingContract）
	Reactor string // ExclusiveDutchOrderReactor 地址，为空表示需要由订单模板提供
}

var contractConfigs = map[Chain]ContractConfig{
	ChainMainnet: {
		Permit2: Permit2Address,
		Reactor: "0x6000da47483062A0D734Ba3dc7576Ce6A0B645C4",
	},
	ChainGoerli:   {Permit2: Permit2Address},
	ChainPolygon:  {Permit2: Permit2Address},
	ChainArbitrum: {Permit2: Permit2Address},
}

// GetContractConfig 根据链 ID 获取合约配置
func GetContractConfig(chainID Chain) (*ContractConfig, error) {
	cfg, ok := contractConfigs[chainID]
	if !ok {
		return nil, fmt.Errorf("不支持的链 ID: %d", chainID)
	}
	return &cfg, nil
}

// String 返回链名称
func (c Chain) String() string {
	switch c {
	case ChainMainnet:
		return "mainnet"
	case ChainGoerli:
		return "goerli"
	case ChainPolygon:
		return "polygon"
	case ChainArbitrum:
		return "arbitrum"
	default:
		return fmt.Sprintf("chain-%d", uint64(c))
	}
}
