// Package config 加载 config 目录下的所有配置信息
package config

// Initialize 此方法没有逻辑
// 只是为了让 main.go 中能调用此包中所有文件的 init 方法
func Initialize() {
}
