package metrics

import "expvar"

// 签名流程
var (
	SwapSignAttempts    = expvar.NewInt("swapx_sign_attempts")
	SwapStaleSignatures = expvar.NewInt("swapx_stale_signatures")
	SwapUserRejections  = expvar.NewInt("swapx_user_rejections")
	SwapSigningFailures = expvar.NewInt("swapx_signing_failures")
	SwapSubmitted       = expvar.NewInt("swapx_orders_submitted")
	SwapSubmitErrors    = expvar.NewInt("swapx_submit_errors")
)

// relay 模拟器
var (
	RelayOrdersAccepted = expvar.NewInt("relay_orders_accepted")
	RelayOrdersRejected = expvar.NewInt("relay_orders_rejected")
)
