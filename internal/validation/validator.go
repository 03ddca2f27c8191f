package validation

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var hashRegex = regexp.MustCompile("^0x[0-9a-fA-F]{64}$")

// IsValidAddress 验证账户地址
// 地址必须是格式正确的十六进制地址，且不能是全零地址
// 调用方在校验失败时应跳过并记录，而不是中止
func IsValidAddress(addr string) bool {
	if addr == "" {
		return false
	}

	if !strings.HasPrefix(addr, "0x") {
		return false
	}

	if !common.IsHexAddress(addr) {
		return false
	}

	// 全零地址视为无效，经过校验的地址永远不是全零地址
	if common.HexToAddress(addr) == (common.Address{}) {
		return false
	}

	return true
}

// IsValidHash 验证交易/区块哈希格式
func IsValidHash(hash string) bool {
	if len(hash) != 66 { // 0x + 64 hex chars
		return false
	}
	return hashRegex.MatchString(hash)
}

// Normalize 将地址规范化为混合大小写校验和形式
// 输入必须已通过IsValidAddress校验
func Normalize(addr string) string {
	return common.HexToAddress(addr).Hex()
}
