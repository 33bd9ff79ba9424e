package gateway

import (
	"encoding/json"
	"fmt"
)

// EventKind webhook 事件类别，闭合枚举
type EventKind string

const (
	EventSessionCompleted EventKind = "session_completed"
	EventChargeSucceeded  EventKind = "charge_succeeded"
	EventChargeFailed     EventKind = "charge_failed"
	EventSessionExpired   EventKind = "session_expired"

	// EventUnrecognized 网关新增的、本服务尚未支持的事件类型
	EventUnrecognized EventKind = "unrecognized"
)

// kindByRawType 网关侧事件类型到内部事件类别的映射
var kindByRawType = map[string]EventKind{
	"checkout.session.completed": EventSessionCompleted,
	"charge.succeeded":           EventChargeSucceeded,
	"charge.failed":              EventChargeFailed,
	"checkout.session.expired":   EventSessionExpired,
}

// Event 解析后的 webhook 事件
//
// Session 与 Charge 按事件类别二选一：会话类事件填 Session，
// 扣款类事件填 Charge。未识别事件两者皆空，仅保留 RawType。
type Event struct {
	ID      string
	Kind    EventKind
	RawType string
	Created int64
	Session *CheckoutSession
	Charge  *Charge
}

// rawEvent webhook 报文的外层结构
type rawEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEvent 解析 webhook 报文为类型化事件
//
// 仅在报文本身无法解析时返回错误；未识别的事件类型不是错误，
// 返回 Kind 为 EventUnrecognized 的事件由上层决定如何处理。
func ParseEvent(payload []byte) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("解析 webhook 报文失败: %w", err)
	}
	if raw.Type == "" {
		return nil, fmt.Errorf("webhook 报文缺少事件类型")
	}

	event := &Event{
		ID:      raw.ID,
		Kind:    EventUnrecognized,
		RawType: raw.Type,
		Created: raw.Created,
	}

	kind, ok := kindByRawType[raw.Type]
	if !ok {
		return event, nil
	}
	event.Kind = kind

	switch kind {
	case EventSessionCompleted, EventSessionExpired:
		session := &CheckoutSession{}
		if err := json.Unmarshal(raw.Data.Object, session); err != nil {
			return nil, fmt.Errorf("解析会话对象失败: %w", err)
		}
		event.Session = session
	case EventChargeSucceeded, EventChargeFailed:
		charge := &Charge{}
		if err := json.Unmarshal(raw.Data.Object, charge); err != nil {
			return nil, fmt.Errorf("解析扣款对象失败: %w", err)
		}
		event.Charge = charge
	}

	return event, nil
}
