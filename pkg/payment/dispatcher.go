package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync/atomic"

	"confreg/pkg/gateway"
	"confreg/pkg/logger"
)

// Archiver 原始 webhook 报文归档，热路径之外的审计留痕
type Archiver interface {
	Store(ctx context.Context, eventID string, payload []byte)
}

// DispatchMetrics webhook 分发计数器
type DispatchMetrics struct {
	received          atomic.Int64
	signatureRejected atomic.Int64
	parseFailed       atomic.Int64
	unrecognized      atomic.Int64
	handlerErrors     atomic.Int64
	byKind            map[gateway.EventKind]*atomic.Int64
}

// NewDispatchMetrics 创建分发计数器
func NewDispatchMetrics() *DispatchMetrics {
	byKind := make(map[gateway.EventKind]*atomic.Int64)
	for _, kind := range []gateway.EventKind{
		gateway.EventSessionCompleted,
		gateway.EventChargeSucceeded,
		gateway.EventChargeFailed,
		gateway.EventSessionExpired,
	} {
		byKind[kind] = &atomic.Int64{}
	}
	return &DispatchMetrics{byKind: byKind}
}

// Snapshot 导出当前计数
func (m *DispatchMetrics) Snapshot() map[string]int64 {
	snapshot := map[string]int64{
		"received":           m.received.Load(),
		"signature_rejected": m.signatureRejected.Load(),
		"parse_failed":       m.parseFailed.Load(),
		"unrecognized":       m.unrecognized.Load(),
		"handler_errors":     m.handlerErrors.Load(),
	}
	for kind, counter := range m.byKind {
		snapshot[string(kind)] = counter.Load()
	}
	return snapshot
}

// archiveKey 归档键：取报文自带的事件 ID，取不到退化为内容摘要
func archiveKey(payload []byte) string {
	var envelope struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.ID != "" {
		return envelope.ID
	}
	sum := sha256.Sum256(payload)
	return "raw_" + hex.EncodeToString(sum[:8])
}

// Dispatcher webhook 入口
//
// 验签 → 归档 → 解析 → 按事件类别分发。除验签失败外一律向网关
// 返回成功，处理器内部的失败只记日志，避免触发网关重试风暴。
type Dispatcher struct {
	gateway    *gateway.Client
	reconciler *Reconciler
	archiver   Archiver
	metrics    *DispatchMetrics
}

// NewDispatcher 创建分发器，archiver 可为 nil（不归档）
func NewDispatcher(gw *gateway.Client, reconciler *Reconciler, archiver Archiver) *Dispatcher {
	return &Dispatcher{
		gateway:    gw,
		reconciler: reconciler,
		archiver:   archiver,
		metrics:    NewDispatchMetrics(),
	}
}

// Metrics 分发计数器
func (d *Dispatcher) Metrics() *DispatchMetrics {
	return d.metrics
}

// Dispatch 处理一次 webhook 投递
//
// 返回错误当且仅当签名校验不通过，调用方据此回 4xx；
// 其余路径一律返回 nil，由网关侧视为投递成功。
func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte, signatureHeader string) error {
	d.metrics.received.Add(1)

	if err := d.gateway.VerifyWebhook(payload, signatureHeader); err != nil {
		d.metrics.signatureRejected.Add(1)
		logger.WarnString("webhook", "验签", err.Error())
		return err
	}

	// 验签通过即归档，坏报文正是审计留痕要抓的对象
	if d.archiver != nil {
		d.archiver.Store(ctx, archiveKey(payload), payload)
	}

	event, err := gateway.ParseEvent(payload)
	if err != nil {
		d.metrics.parseFailed.Add(1)
		logger.ErrorString("webhook", "解析", err.Error())
		return nil
	}

	if counter, ok := d.metrics.byKind[event.Kind]; ok {
		counter.Add(1)
	}

	switch event.Kind {
	case gateway.EventSessionCompleted:
		err = d.reconciler.HandleSessionCompleted(ctx, event.Session)
	case gateway.EventChargeSucceeded:
		err = d.reconciler.HandleChargeSucceeded(ctx, event.Charge)
	case gateway.EventChargeFailed:
		err = d.reconciler.HandleChargeFailed(ctx, event.Charge)
	case gateway.EventSessionExpired:
		err = d.reconciler.HandleSessionExpired(ctx, event.Session)
	case gateway.EventUnrecognized:
		d.metrics.unrecognized.Add(1)
		logger.InfoString("webhook", "分发", "忽略未识别事件类型 "+event.RawType)
		return nil
	}

	if err != nil {
		// 单个事件的处理失败不能拖垮其它事件的投递
		d.metrics.handlerErrors.Add(1)
		logger.ErrorString("webhook", "分发", "事件 "+event.ID+" 处理失败: "+err.Error())
	}
	return nil
}
