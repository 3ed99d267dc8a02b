package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	xerrors "QuantumProof-Ops/internal/errors"
	"QuantumProof-Ops/internal/pipeline"
)

// WriteJSON 将运行记录序列化为带缩进的 JSON 文件，返回写入路径。
// 文件名固定为 <run_id>.json。
func WriteJSON(result *pipeline.RunResult, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", xerrors.Wrap(xerrors.CodeExportFailure, err, "create output directory")
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeExportFailure, err, "marshal run result")
	}

	path := filepath.Join(outputDir, result.RunID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", xerrors.Wrap(xerrors.CodeExportFailure, err, "write json report")
	}
	return path, nil
}

// WriteMarkdown 渲染人类可读的运行报告，返回写入路径。
// 报告只包含指纹与哈希，绝不包含原始敏感输入。
func WriteMarkdown(result *pipeline.RunResult, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", xerrors.Wrap(xerrors.CodeExportFailure, err, "create output directory")
	}

	path := filepath.Join(outputDir, result.RunID+".md")
	if err := os.WriteFile(path, []byte(renderMarkdown(result)), 0o644); err != nil {
		return "", xerrors.Wrap(xerrors.CodeExportFailure, err, "write markdown report")
	}
	return path, nil
}

func renderMarkdown(result *pipeline.RunResult) string {
	verification := "FAILED"
	if result.Proof.VerificationResult {
		verification = "VERIFIED"
	}

	var primitives strings.Builder
	for _, p := range result.Proof.CryptoPrimitivesUsed {
		fmt.Fprintf(&primitives, "  - %s\n", p)
	}

	params, err := json.MarshalIndent(result.Proof.FHEParameters, "", "  ")
	if err != nil {
		params = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("# QuantumProof Ops - FHE Computation Report\n\n")

	b.WriteString("## Run Metadata\n")
	fmt.Fprintf(&b, "- **Run ID**: `%s`\n", result.RunID)
	fmt.Fprintf(&b, "- **Timestamp**: `%s`\n", result.TimestampUTC)
	fmt.Fprintf(&b, "- **Scenario**: `%s`\n", result.Scenario)
	fmt.Fprintf(&b, "- **Verification**: `%s`\n\n", verification)

	b.WriteString("## Cryptographic Primitives\n")
	b.WriteString(primitives.String())
	b.WriteString("\n## FHE / ZK Parameters\n```json\n")
	b.Write(params)
	b.WriteString("\n```\n\n")

	b.WriteString("## Results\n")
	fmt.Fprintf(&b, "- **Risk Score**: `%v%%`\n", result.ComputeResult["risk_reduction_percent"])
	fmt.Fprintf(&b, "- **FHE Overhead**: `%v%%`\n", result.ComputeResult["performance_overhead_percent"])
	fmt.Fprintf(&b, "- **FHE Enabled**: `%v`\n\n", result.ComputeResult["fhe_enabled"])

	b.WriteString("## Performance\n")
	fmt.Fprintf(&b, "- **Total**: `%dms`\n", result.Benchmark.RuntimeMS)
	fmt.Fprintf(&b, "- **Encryption**: `%dms`\n", result.Benchmark.EncryptionTimeMS)
	fmt.Fprintf(&b, "- **Computation**: `%dms`\n", result.Benchmark.ComputationTimeMS)
	fmt.Fprintf(&b, "- **Proof Gen**: `%dms`\n\n", result.Benchmark.ProofTimeMS)

	b.WriteString("## Audit Trail\n")
	fmt.Fprintf(&b, "- **Proof Hash**: `%s`\n", result.Proof.ProofHash)
	fmt.Fprintf(&b, "- **Input Fingerprint**: `%s`\n", result.Proof.InputFingerprint)
	fmt.Fprintf(&b, "- **Circuit Version**: `%s`\n", result.Proof.CircuitVersion)

	if result.ChainAnchor != nil {
		b.WriteString("\n## Chain Anchor\n")
		fmt.Fprintf(&b, "- **Chain**: `%s`\n", result.ChainAnchor.Chain)
		fmt.Fprintf(&b, "- **Chain ID**: `%s`\n", result.ChainAnchor.ChainID)
		fmt.Fprintf(&b, "- **Block Number**: `%d`\n", result.ChainAnchor.BlockNumber)
	}

	return b.String()
}
