package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type resultKind int

const (
	resultAccepted resultKind = iota
	resultRejected
)

// relayResult relay 响应只解码一次，之后按 kind 分支
type relayResult struct {
	kind       resultKind
	statusCode int
	hash       string
	message    string
}

// relayBody 成功与错误两种形态的并集
type relayBody struct {
	Hash      *string         `json:"hash"`
	ErrorCode json.RawMessage `json:"errorCode"`
	Detail    *string         `json:"detail"`
	Message   *string         `json:"message"`
}

// isSuccessStatus 状态码是否在 [StatusSuccessMin, StatusSuccessMax] 内
func isSuccessStatus(code int) bool {
	return code >= StatusSuccessMin && code <= StatusSuccessMax
}

// decodeRelayResponse 按状态码分类并提取哈希或错误信息
func decodeRelayResponse(statusCode int, raw []byte) (relayResult, error) {
	var body relayBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return relayResult{}, &SubmissionError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("解析 relay 响应失败（HTTP %d）: %v", statusCode, err),
		}
	}

	if !isSuccessStatus(statusCode) {
		return relayResult{
			kind:       resultRejected,
			statusCode: statusCode,
			message:    body.errorMessage(),
		}, nil
	}

	if body.Hash == nil || *body.Hash == "" {
		return relayResult{}, &SubmissionError{
			StatusCode: statusCode,
			Message:    "relay 响应缺少订单哈希",
		}
	}
	return relayResult{
		kind:       resultAccepted,
		statusCode: statusCode,
		hash:       *body.Hash,
	}, nil
}

// errorMessage errorCode ?? detail ?? message ?? "Unknown error"
func (b relayBody) errorMessage() string {
	if code := bytes.TrimSpace(b.ErrorCode); len(code) > 0 && !bytes.Equal(code, []byte("null")) {
		if code[0] == '"' {
			if s, err := strconv.Unquote(string(code)); err == nil {
				return s
			}
		}
		return string(code)
	}
	if b.Detail != nil {
		return *b.Detail
	}
	if b.Message != nil {
		return *b.Message
	}
	return UnknownErrorMessage
}
