package services

import (
	"errors"
	"fmt"

	"github.com/betbot/swapx/dutchx/client"
)

// PreconditionError 调用前置条件不满足，在任何签名或网络请求之前返回
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	if e.Reason == "" {
		return "missing " + e.Field
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var (
	ErrMissingAccount = &PreconditionError{Field: "account"}
	ErrMissingSigner  = &PreconditionError{Field: "signer"}
	ErrMissingTrade   = &PreconditionError{Field: "trade"}
)

// ErrSignatureExpired 多次签名后订单仍然过期
var ErrSignatureExpired = errors.New("signature deadline expired before submission")

// UserRejectedError 用户在签名器中取消，不重试
type UserRejectedError struct {
	Reason string
	Err    error
}

func (e *UserRejectedError) Error() string {
	return e.Reason
}

func (e *UserRejectedError) Unwrap() error {
	return e.Err
}

// SigningError 除用户取消外的签名阶段失败，Reason 为可读信息
type SigningError struct {
	Reason string
	Err    error
}

func (e *SigningError) Error() string {
	return e.Reason
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// ErrorKind 对调用方可见的失败分类
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindPrecondition
	KindUserRejected
	KindSigningFailed
	KindSubmissionFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindUserRejected:
		return "user_rejected"
	case KindSigningFailed:
		return "signing_failed"
	case KindSubmissionFailed:
		return "submission_failed"
	default:
		return "unknown"
	}
}

// KindOf 返回错误所属分类
func KindOf(err error) ErrorKind {
	var (
		preErr    *PreconditionError
		rejectErr *UserRejectedError
		signErr   *SigningError
		subErr    *client.SubmissionError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &preErr):
		return KindPrecondition
	case errors.As(err, &rejectErr):
		return KindUserRejected
	case errors.As(err, &signErr):
		return KindSigningFailed
	case errors.As(err, &subErr):
		return KindSubmissionFailed
	default:
		return KindUnknown
	}
}
