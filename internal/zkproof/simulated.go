package zkproof

import (
	"encoding/json"

	"QuantumProof-Ops/internal/fingerprint"
)

// SimulatedCircuitVersion 是模拟路径的电路版本标签。
const SimulatedCircuitVersion = "fhe-ckks-v1"

// statement 是模拟证明的规范化声明对象。
// 字段按 JSON 名称的字典序声明，序列化结果因此是确定的，
// 相同 (指纹, 场景) 永远得到相同的证明哈希。
type statement struct {
	CircuitVersion string          `json:"circuit_version"`
	Claim          string          `json:"claim"`
	PublicInputs   statementInputs `json:"public_inputs"`
	Type           string          `json:"type"`
	ZKSystem       string          `json:"zk_system"`
}

type statementInputs struct {
	InputFingerprint string `json:"input_fingerprint"`
	Scenario         string `json:"scenario"`
}

// simulatedProofHash 计算规范化声明的域分隔哈希。
func simulatedProofHash(inputFingerprint, scenario string) string {
	canonical, err := json.Marshal(statement{
		CircuitVersion: SimulatedCircuitVersion,
		Claim:          "computation_correctness",
		PublicInputs: statementInputs{
			InputFingerprint: inputFingerprint,
			Scenario:         scenario,
		},
		Type:     "zero-knowledge-proof",
		ZKSystem: "simulated-zkSNARK",
	})
	if err != nil {
		// statement 全部为字符串字段，序列化不可能失败。
		panic(err)
	}
	return fingerprint.SHA3Hex("zkproof::" + string(canonical))
}

// simulate 构造模拟证明。verified 定义为对同一声明独立计算两次哈希
// 并比较相等 —— 构造上恒为 true，只用于演示，不构成任何安全保证。
func simulate(inputFingerprint, scenario string) (proofHash string, verified bool) {
	proofHash = simulatedProofHash(inputFingerprint, scenario)
	verified = proofHash == simulatedProofHash(inputFingerprint, scenario)
	return proofHash, verified
}
