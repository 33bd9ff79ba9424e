// Package money 金额换算工具
//
// 网关线上接口以最小货币单位（分）传输金额，
// 数据库以两位小数的定点数（欧元）存储金额，
// 所有换算统一经过本包，避免浮点误差
package money

import (
	"github.com/shopspring/decimal"
)

// dec100 分与元之间的换算系数
var dec100 = decimal.NewFromInt(100)

// FromCents 将最小货币单位转换为两位小数的定点金额
// 例如 4500 -> 45.00
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(dec100)
}

// ToCents 将定点金额转换为最小货币单位
// 例如 45.00 -> 4500
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(dec100).IntPart()
}

// Equal 比较两个金额是否完全相等，不做任何容差处理
func Equal(a, b decimal.Decimal) bool {
	return a.Cmp(b) == 0
}

// Round2 四舍五入保留两位小数
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
