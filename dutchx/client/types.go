package client

import "time"

// OrderSubmission 提交给 relay 的请求体
type OrderSubmission struct {
	EncodedOrder string `json:"encodedOrder"`
	Signature    string `json:"signature"`
	ChainID      uint64 `json:"chainId"`
	QuoteID      string `json:"quoteId"`
}

// OrderResponse relay 接收订单成功
type OrderResponse struct {
	Hash string `json:"hash"`
}

// OrderErrorResponse relay 返回的错误体
// 客户端解析时各字段均按可缺失处理
type OrderErrorResponse struct {
	ErrorCode int    `json:"errorCode,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// SubmissionError 订单提交失败
// StatusCode 为 0 表示请求未得到 HTTP 响应
type SubmissionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SubmissionError) Error() string {
	return e.Message
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// OrderRecord relay 已接收的订单
type OrderRecord struct {
	OrderHash    string    `json:"orderHash"`
	ChainID      uint64    `json:"chainId"`
	Swapper      string    `json:"swapper"`
	QuoteID      string    `json:"quoteId"`
	Deadline     uint64    `json:"deadline"`
	EncodedOrder string    `json:"encodedOrder"`
	Signature    string    `json:"signature"`
	CreatedAt    time.Time `json:"createdAt"`
}

// OrdersResponse GET /dutch-auction/orders 响应
type OrdersResponse struct {
	Orders []OrderRecord `json:"orders"`
}
