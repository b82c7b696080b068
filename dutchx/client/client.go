package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout relay 请求默认超时
const DefaultTimeout = 30 * time.Second

var relayLog = logrus.WithField("component", "relay-client")

// Client relay HTTP 客户端
// 订单提交不做自动重试：每次调用最多发送一次 POST
type Client struct {
	host   string
	client *resty.Client
}

// Option 客户端选项
type Option func(*Client)

// WithTimeout 设置请求超时
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.SetTimeout(timeout)
		}
	}
}

// WithHTTPClient 使用自定义的 http.Client（测试或代理场景）
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = resty.NewWithClient(hc).SetBaseURL(c.host)
		}
	}
}

// NewClient 创建 relay 客户端
func NewClient(host string, opts ...Option) *Client {
	host = strings.TrimSuffix(strings.TrimSpace(host), "/")

	// resty 会自动从环境变量读取代理配置（HTTP_PROXY, HTTPS_PROXY）
	c := &Client{
		host: host,
		client: resty.New().
			SetBaseURL(host).
			SetTimeout(DefaultTimeout).
			SetRetryCount(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetHost 获取 relay 地址
func (c *Client) GetHost() string {
	return c.host
}

// SubmitOrder 提交已签名订单
// 状态码不在 [200, 202] 内时返回 *SubmissionError
func (c *Client) SubmitOrder(ctx context.Context, sub *OrderSubmission) (*OrderResponse, error) {
	if sub == nil {
		return nil, errors.New("order submission is nil")
	}
	requestID := uuid.NewString()

	startTime := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader(HeaderRequestID, requestID).
		SetBody(sub).
		Post(EndpointDutchAuctionOrder)
	if err != nil {
		return nil, errors.Wrapf(err, "POST %s%s", c.host, EndpointDutchAuctionOrder)
	}

	relayLog.WithFields(logrus.Fields{
		"requestId": requestID,
		"status":    resp.StatusCode(),
		"elapsed":   time.Since(startTime).String(),
	}).Debug("relay 响应")

	result, err := decodeRelayResponse(resp.StatusCode(), resp.Body())
	if err != nil {
		return nil, err
	}
	switch result.kind {
	case resultAccepted:
		return &OrderResponse{Hash: result.hash}, nil
	default:
		return nil, &SubmissionError{StatusCode: result.statusCode, Message: result.message}
	}
}

// GetOrders 查询 relay 已接收的订单；swapper 为空时返回全部
func (c *Client) GetOrders(ctx context.Context, swapper string, limit int) ([]OrderRecord, error) {
	req := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader(HeaderRequestID, uuid.NewString())
	if swapper != "" {
		req.SetQueryParam("swapper", swapper)
	}
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}

	var out OrdersResponse
	resp, err := req.SetResult(&out).Get(EndpointDutchAuctionOrders)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s%s", c.host, EndpointDutchAuctionOrders)
	}
	if !isSuccessStatus(resp.StatusCode()) {
		var body relayBody
		message := UnknownErrorMessage
		if jsonErr := json.Unmarshal(resp.Body(), &body); jsonErr == nil {
			message = body.errorMessage()
		}
		return nil, &SubmissionError{StatusCode: resp.StatusCode(), Message: message}
	}
	return out.Orders, nil
}
