// Package app 提供应用程序相关的辅助函数
package app

import (
	"time"

	"confreg/pkg/config"
)

// IsLocal 判断当前是否运行在本地环境
func IsLocal() bool {
	return config.Get("app.env") == "local"
}

// IsProduction 判断当前是否运行在生产环境
func IsProduction() bool {
	return config.Get("app.env") == "production"
}

// IsTesting 判断当前是否运行在测试环境
func IsTesting() bool {
	return config.Get("app.env") == "testing"
}

// TimenowInTimezone 获取当前时间（支持时区设置）
// 从配置文件读取 app.timezone 配置项来确定时区
func TimenowInTimezone() time.Time {
	timezone, _ := time.LoadLocation(config.GetString("app.timezone"))
	return time.Now().In(timezone)
}

// TimeInTimezone 将任意时间换算到配置的时区，
// 网关回传的 Unix 时间戳统一经由此方法落库
func TimeInTimezone(t time.Time) time.Time {
	timezone, _ := time.LoadLocation(config.GetString("app.timezone"))
	return t.In(timezone)
}
