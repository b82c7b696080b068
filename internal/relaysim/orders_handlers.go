package relaysim

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/betbot/swapx/dutchx/client"
	"github.com/betbot/swapx/dutchx/signing"
	"github.com/betbot/swapx/dutchx/types"
	"github.com/betbot/swapx/internal/metrics"
)

var relayLog = logrus.WithField("component", "relay_sim")

// 错误码（errorCode 字段）
const (
	ErrorCodeInvalidBody      = 1001
	ErrorCodeInvalidOrder     = 1002
	ErrorCodeUnsupportedChain = 1003
	ErrorCodeOrderExpired     = 1004
	ErrorCodeInvalidSignature = 1005
	ErrorCodeDuplicateOrder   = 1006
	ErrorCodeRateLimited      = 1007
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (s *Server) handleOrderCreate(c *gin.Context) {
	var req client.OrderSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		s.reject(c, http.StatusBadRequest, ErrorCodeInvalidBody, "invalid request body: "+err.Error())
		return
	}
	if req.EncodedOrder == "" || req.Signature == "" {
		s.reject(c, http.StatusBadRequest, ErrorCodeInvalidBody, "encodedOrder and signature are required")
		return
	}

	chain := types.Chain(req.ChainID)
	if !s.chains[chain] {
		s.reject(c, http.StatusBadRequest, ErrorCodeUnsupportedChain, "unsupported chainId "+strconv.FormatUint(req.ChainID, 10))
		return
	}

	order, err := signing.DecodeOrder(req.EncodedOrder, chain)
	if err != nil {
		s.reject(c, http.StatusBadRequest, ErrorCodeInvalidOrder, err.Error())
		return
	}
	if order.Info.Swapper == (common.Address{}) || len(order.Outputs) == 0 {
		s.reject(c, http.StatusBadRequest, ErrorCodeInvalidOrder, "order is missing swapper or outputs")
		return
	}
	if order.DecayStartTime > order.DecayEndTime || order.DecayEndTime > order.Info.Deadline {
		s.reject(c, http.StatusBadRequest, ErrorCodeInvalidOrder, "inconsistent decay window")
		return
	}
	if uint64(s.cfg.Now().Unix()) >= order.Info.Deadline {
		s.reject(c, http.StatusBadRequest, ErrorCodeOrderExpired, "order deadline has passed")
		return
	}

	typedData, err := signing.PermitData(order)
	if err != nil {
		s.reject(c, http.StatusBadRequest, ErrorCodeInvalidOrder, err.Error())
		return
	}
	signer, err := signing.RecoverAddress(typedData, req.Signature)
	if err != nil || signer != order.Info.Swapper {
		s.reject(c, http.StatusBadRequest, ErrorCodeInvalidSignature, "signature does not match swapper")
		return
	}

	hash, err := signing.OrderHash(order)
	if err != nil {
		s.reject(c, http.StatusBadRequest, ErrorCodeInvalidOrder, err.Error())
		return
	}

	err = s.insertOrder(c.Request.Context(), StoredOrder{
		OrderHash:    hash,
		ChainID:      req.ChainID,
		Swapper:      order.Info.Swapper.Hex(),
		QuoteID:      req.QuoteID,
		Deadline:     order.Info.Deadline,
		EncodedOrder: req.EncodedOrder,
		Signature:    req.Signature,
		CreatedAt:    s.cfg.Now(),
	})
	if err != nil {
		if errors.Is(err, errDuplicateOrder) {
			s.reject(c, http.StatusConflict, ErrorCodeDuplicateOrder, "order already submitted")
			return
		}
		relayLog.Errorf("保存订单失败: %v", err)
		metrics.RelayOrdersRejected.Add(1)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
		return
	}

	metrics.RelayOrdersAccepted.Add(1)
	relayLog.WithFields(logrus.Fields{
		"orderHash": hash,
		"swapper":   order.Info.Swapper.Hex(),
		"quoteId":   req.QuoteID,
		"requestId": c.GetHeader(client.HeaderRequestID),
	}).Info("订单已接收")
	c.JSON(http.StatusCreated, client.OrderResponse{Hash: hash})
}

func (s *Server) handleOrdersList(c *gin.Context) {
	swapper := strings.TrimSpace(c.Query("swapper"))
	if swapper != "" && !common.IsHexAddress(swapper) {
		s.reject(c, http.StatusBadRequest, ErrorCodeInvalidBody, "invalid swapper address")
		return
	}
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.reject(c, http.StatusBadRequest, ErrorCodeInvalidBody, "invalid limit")
			return
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		limit = n
	}
	if swapper != "" {
		swapper = common.HexToAddress(swapper).Hex()
	}

	orders, err := s.listOrders(c.Request.Context(), swapper, limit)
	if err != nil {
		relayLog.Errorf("查询订单失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) reject(c *gin.Context, status int, code int, detail string) {
	metrics.RelayOrdersRejected.Add(1)
	relayLog.WithFields(logrus.Fields{"errorCode": code, "status": status}).Warn(detail)
	c.JSON(status, client.OrderErrorResponse{ErrorCode: code, Detail: detail})
}
