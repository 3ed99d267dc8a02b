// Package signal derives the bounded circuit inputs consumed by the
// proof layer from an opaque sensitive input string. Derivation is
// total: every input, including the empty string, yields in-range
// values, either by structured parse or by hash fallback.
package signal

import (
	"math"
	"strconv"
	"strings"

	"QuantumProof-Ops/internal/fingerprint"
)

// CircuitInputs 是证明电路的两个有界整数输入。
type CircuitInputs struct {
	CreditScore    int
	DebtToIncomeBp int
}

const (
	creditScoreMin = 300
	creditScoreMax = 850
	dtiBpMin       = 0
	dtiBpMax       = 10000
)

// Derive 把敏感输入与场景标签映射成电路输入。
// 优先尝试结构化解析 loan::<credit>::<dti>::<income>::<purpose>；
// 解析失败时走基于哈希的确定性回退，保证任何字符串都不会失败。
func Derive(input, scenario string) CircuitInputs {
	if parsed, ok := parseLoanProfile(input); ok {
		return CircuitInputs{
			CreditScore:    clamp(parsed.CreditScore, creditScoreMin, creditScoreMax),
			DebtToIncomeBp: clamp(parsed.DebtToIncomeBp, dtiBpMin, dtiBpMax),
		}
	}

	// 回退：从输入与场景的哈希前缀派生，天然落在合法区间内。
	credit := creditScoreMin + int(hexPrefixValue(fingerprint.SHA3Hex(input), 8)%551)
	dtiBp := int(hexPrefixValue(fingerprint.SHA3Hex(scenario), 6) % 10001)
	return CircuitInputs{CreditScore: credit, DebtToIncomeBp: dtiBp}
}

// parseLoanProfile 解析 loan:: 前缀的贷款画像字符串。
// purpose 字段允许缺失或为空，它不参与电路输入。
func parseLoanProfile(input string) (CircuitInputs, bool) {
	if !strings.HasPrefix(input, "loan::") {
		return CircuitInputs{}, false
	}

	parts := strings.Split(input, "::")
	if len(parts) < 4 {
		return CircuitInputs{}, false
	}

	credit, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return CircuitInputs{}, false
	}
	dti, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return CircuitInputs{}, false
	}
	if _, err := strconv.ParseFloat(parts[3], 64); err != nil {
		return CircuitInputs{}, false
	}

	// dti 百分比保留两位小数，换算成基点整数。
	dtiBp := int(math.Round(dti * 100))
	return CircuitInputs{
		CreditScore:    int(credit),
		DebtToIncomeBp: dtiBp,
	}, true
}

// hexPrefixValue 把十六进制摘要的前 n 位解释成无符号整数。
func hexPrefixValue(digest string, n int) uint64 {
	if n > len(digest) {
		n = len(digest)
	}
	value, err := strconv.ParseUint(digest[:n], 16, 64)
	if err != nil {
		return 0
	}
	return value
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
