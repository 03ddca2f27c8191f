package models

import (
	"fmt"
	"math/big"
	"strings"
)

// BigInt 大整数包装类型
// 链上的wei金额超出float64精度，JSON序列化时使用十进制字符串
type BigInt struct {
	big.Int
}

// NewBigInt 从big.Int创建BigInt
func NewBigInt(v *big.Int) *BigInt {
	b := &BigInt{}
	if v != nil {
		b.Set(v)
	}
	return b
}

// NewBigIntFromString 从十进制或十六进制字符串创建BigInt
func NewBigIntFromString(s string) (*BigInt, error) {
	b := &BigInt{}
	s = strings.TrimSpace(s)
	if s == "" {
		return b, nil
	}

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}

	if _, ok := b.SetString(s, base); !ok {
		return nil, fmt.Errorf("无法解析数值: %s", s)
	}
	return b, nil
}

// MarshalJSON 序列化为十进制字符串
func (b *BigInt) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte(`"0"`), nil
	}
	return []byte(`"` + b.String() + `"`), nil
}

// UnmarshalJSON 从十进制字符串反序列化
func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		b.SetInt64(0)
		return nil
	}

	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("无法解析数值: %s", s)
	}
	return nil
}
