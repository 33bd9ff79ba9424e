package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader webhook 请求携带签名的 HTTP 头
const SignatureHeader = "Gateway-Signature"

var (
	// ErrSecretNotConfigured 未配置 webhook 共享密钥
	ErrSecretNotConfigured = errors.New("webhook secret is not configured")

	// ErrSignatureInvalid 签名校验失败，报文不可信
	ErrSignatureInvalid = errors.New("webhook signature verification failed")
)

// VerifyWebhook 校验 webhook 报文签名
//
// 签名头格式：t=<unix 秒>,v1=<hex(hmac-sha256(secret, "<t>.<payload>"))>
// 时间戳超出容忍窗口的报文同样视为签名无效，防止重放
func (c *Client) VerifyWebhook(payload []byte, header string) error {
	return VerifySignature(payload, header, c.webhookSecret, c.tolerance)
}

// VerifySignature 签名校验原语，独立出来方便测试和离线工具使用
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	if strings.TrimSpace(secret) == "" {
		return ErrSecretNotConfigured
	}
	if header == "" {
		return fmt.Errorf("%w: missing signature header", ErrSignatureInvalid)
	}

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	// 时间戳窗口检查
	if tolerance > 0 {
		now := time.Now().Unix()
		if timestamp < now-int64(tolerance.Seconds()) || timestamp > now+int64(tolerance.Seconds()) {
			return fmt.Errorf("%w: timestamp outside of tolerance", ErrSignatureInvalid)
		}
	}

	expected := ComputeSignature(payload, secret, timestamp)
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}

	return ErrSignatureInvalid
}

// ComputeSignature 计算报文签名，测试和重放工具也会用到
func ComputeSignature(payload []byte, secret string, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureFor 生成完整的签名头，仅用于测试与本地联调
func SignatureFor(payload []byte, secret string, timestamp int64) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, ComputeSignature(payload, secret, timestamp))
}

// parseSignatureHeader 解析签名头，允许出现多个 v1 段（密钥轮换期间）
func parseSignatureHeader(header string) (int64, []string, error) {
	var (
		timestamp  int64 = -1
		signatures []string
	)

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("invalid timestamp: %s", kv[1])
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp < 0 || len(signatures) == 0 {
		return 0, nil, errors.New("malformed signature header")
	}
	return timestamp, signatures, nil
}
