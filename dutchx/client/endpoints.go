package client

const (
	// EndpointDutchAuctionOrder 荷兰式拍卖订单提交端点
	EndpointDutchAuctionOrder = "/dutch-auction/order"

	// EndpointDutchAuctionOrders 订单查询端点
	EndpointDutchAuctionOrders = "/dutch-auction/orders"
)

// relay 成功状态码区间（闭区间）
// 区间外的状态码一律视为错误，与响应体内容无关
const (
	StatusSuccessMin = 200
	StatusSuccessMax = 202
)

// UnknownErrorMessage 无法从错误响应中提取信息时使用
const UnknownErrorMessage = "Unknown error"

// HeaderRequestID 请求追踪 ID
const HeaderRequestID = "X-Request-Id"
