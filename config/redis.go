package config

import (
	"confreg/pkg/config"
)

func init() {
	config.Add("redis", func() map[string]interface{} {
		return map[string]interface{}{
			"host":     config.Env("REDIS_HOST", "127.0.0.1"),
			"port":     config.Env("REDIS_PORT", "6379"),
			"username": config.Env("REDIS_USERNAME", ""),
			"password": config.Env("REDIS_PASSWORD", ""),

			// 业务类存储（限流器等）
			"database": config.Env("REDIS_MAIN_DB", 0),

			// webhook 原始报文留存库
			"archive_database": config.Env("REDIS_ARCHIVE_DB", 1),
			"archive_prefix":   config.Env("REDIS_ARCHIVE_PREFIX", "confreg:webhook"),
			// 留存条数上限，超出后修剪最旧的报文
			"archive_max_entries": config.Env("REDIS_ARCHIVE_MAX_ENTRIES", 10000),
		}
	})
}
