package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// refID 把后端返回的引用统一为裸 id
// 支持三种形式：123、"123"、{"id": 123, ...}
func refID(raw json.RawMessage) (int64, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, false, nil
	}

	switch trimmed[0] {
	case '{':
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return 0, false, err
		}
		if obj.ID == nil {
			return 0, false, fmt.Errorf("nested reference has no id: %s", trimmed)
		}
		return refID(obj.ID)
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, false, err
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("invalid id %q", s)
		}
		return id, true, nil
	default:
		var id int64
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return 0, false, err
		}
		return id, true, nil
	}
}

// firstRef 依次尝试多个字段，返回第一个存在的引用
func firstRef(candidates ...json.RawMessage) (int64, error) {
	for _, raw := range candidates {
		id, ok, err := refID(raw)
		if err != nil {
			return 0, err
		}
		if ok {
			return id, nil
		}
	}
	return 0, fmt.Errorf("missing reference")
}
