package payment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrConfigNotFound 定价配置不存在
	ErrConfigNotFound = errors.New("pricing config not found")

	// ErrConfigRequired 创建会话必须携带定价配置 ID
	ErrConfigRequired = errors.New("pricing config id is required")

	// ErrUnsupportedCurrency 结算货币之外的币种一律拒绝
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrRecordNotFound 支付记录不存在
	ErrRecordNotFound = errors.New("payment record not found")

	// ErrAmountRequired 优惠支付金额必须为正数
	ErrAmountRequired = errors.New("unit amount must be positive")
)

// AmountMismatchError 请求金额与权威定价不一致
type AmountMismatchError struct {
	Expected decimal.Decimal // 定价配置的权威总价
	Received decimal.Decimal // 请求方声明的总价
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount mismatch: expected %s, received %s",
		e.Expected.StringFixed(2), e.Received.StringFixed(2))
}

// IsAmountMismatch 判断错误是否为金额不一致
func IsAmountMismatch(err error) bool {
	var mismatch *AmountMismatchError
	return errors.As(err, &mismatch)
}
