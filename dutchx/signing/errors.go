package signing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// ErrUserRejected 用户在签名器中拒绝了请求
var ErrUserRejected = errors.New("user rejected request")

// UserRejectedCode EIP-1193 用户拒绝错误码
const UserRejectedCode = 4001

var rejectionPhrases = []string{
	"user rejected",
	"user denied",
	"user cancelled",
	"user canceled",
	"action_rejected",
	"request rejected",
}

// IsUserRejection 判断签名错误是否由用户主动取消导致
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserRejected) {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == UserRejectedCode {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range rejectionPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// ReadableMessage 将签名错误转换为可读信息
func ReadableMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsUserRejection(err) {
		return "Transaction rejected"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Signing request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "Signing request was cancelled"
	}

	msg := err.Error()
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		msg = rpcErr.Error()
		var dataErr rpc.DataError
		if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
			msg = fmt.Sprintf("%s: %v", msg, dataErr.ErrorData())
		}
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "insufficient funds"):
		return "Insufficient funds to complete the swap"
	case strings.Contains(lower, "unknown account"), strings.Contains(lower, "不控制账户"):
		return "The connected wallet cannot sign for this account"
	case strings.Contains(lower, "method not found"), strings.Contains(lower, "does not exist/is not available"):
		return "The connected wallet does not support typed data signing"
	}

	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "Unknown error"
	}
	return fmt.Sprintf("Unknown error: %s", msg)
}
