package signing

const (
	// Permit2DomainName Permit2 EIP712 域名称（Permit2 域不含 version 字段）
	Permit2DomainName = "Permit2"

	// PrimaryType Permit2 见证转账的主类型
	PrimaryType = "PermitWitnessTransferFrom"

	// WitnessType 荷兰式订单的见证类型
	WitnessType = "ExclusiveDutchOrder"
)
