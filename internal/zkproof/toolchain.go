package zkproof

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"QuantumProof-Ops/internal/fingerprint"
	"QuantumProof-Ops/internal/signal"
)

// verifyMarker 是外部验证子命令成功时输出的标记。
// 标记缺失意味着 verification_result=false，而不是调用错误。
const verifyMarker = "OK!"

// ToolchainConfig 描述外部证明工具链的位置与限制。
type ToolchainConfig struct {
	// Tool 是通过 PATH 解析的可执行文件名。
	Tool string
	// CircuitPath / ProvingKeyPath / VerifyingKeyPath 指向三个预生成产物。
	CircuitPath      string
	ProvingKeyPath   string
	VerifyingKeyPath string
	// Timeout 约束每一次外部进程调用。超时与任何非零退出同等处理：
	// 本次调用视为真实模式不可用。
	Timeout time.Duration
}

// Toolchain 封装对外部 Groth16 工具链的进程级调用。
type Toolchain struct {
	cfg ToolchainConfig
}

// NewToolchain 构造工具链适配器。
func NewToolchain(cfg ToolchainConfig) *Toolchain {
	if cfg.Tool == "" {
		cfg.Tool = "zkloan"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Toolchain{cfg: cfg}
}

// Ready 判断真实证明模式当前是否可用：可执行文件在 PATH 上，
// 且三个产物文件全部存在。结果不缓存，每次调用重新检查，
// 工具链可以在进程存活期间出现或消失。
func (t *Toolchain) Ready() bool {
	if _, err := exec.LookPath(t.cfg.Tool); err != nil {
		return false
	}
	for _, path := range []string{t.cfg.CircuitPath, t.cfg.ProvingKeyPath, t.cfg.VerifyingKeyPath} {
		if path == "" {
			return false
		}
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// Prove 执行一轮完整的 witness → prove → verify 外部调用。
// 所有中间文件放在本次调用独占的临时目录里，任何退出路径都会清理。
func (t *Toolchain) Prove(ctx context.Context, inputs signal.CircuitInputs) (proofHash string, verified bool, detail string, err error) {
	tempDir, err := os.MkdirTemp("", "qp-zk-")
	if err != nil {
		return "", false, "", fmt.Errorf("创建临时目录失败: %w", err)
	}
	defer os.RemoveAll(tempDir)

	inputPath := filepath.Join(tempDir, "input.json")
	witnessPath := filepath.Join(tempDir, "witness.wtns")
	proofPath := filepath.Join(tempDir, "proof.json")
	publicPath := filepath.Join(tempDir, "public.json")

	// 电路的输入模式固定：两个十进制字符串整数。
	payload, err := json.Marshal(map[string]string{
		"creditScore":    strconv.Itoa(inputs.CreditScore),
		"debtToIncomeBp": strconv.Itoa(inputs.DebtToIncomeBp),
	})
	if err != nil {
		return "", false, "", fmt.Errorf("序列化电路输入失败: %w", err)
	}
	if err := os.WriteFile(inputPath, payload, 0o600); err != nil {
		return "", false, "", fmt.Errorf("写入电路输入失败: %w", err)
	}

	if _, err := t.run(ctx,
		"compute-witness",
		"-circuit", t.cfg.CircuitPath,
		"-input", inputPath,
		"-witness", witnessPath,
	); err != nil {
		return "", false, "", err
	}

	if _, err := t.run(ctx,
		"prove",
		"-circuit", t.cfg.CircuitPath,
		"-pk", t.cfg.ProvingKeyPath,
		"-witness", witnessPath,
		"-proof", proofPath,
		"-public", publicPath,
	); err != nil {
		return "", false, "", err
	}

	verifyOut, err := t.run(ctx,
		"verify",
		"-vk", t.cfg.VerifyingKeyPath,
		"-public", publicPath,
		"-proof", proofPath,
	)
	if err != nil {
		return "", false, "", err
	}
	verified = strings.Contains(verifyOut, verifyMarker)

	proofPayload, err := os.ReadFile(proofPath)
	if err != nil {
		return "", false, "", fmt.Errorf("读取证明文件失败: %w", err)
	}
	publicPayload, err := os.ReadFile(publicPath)
	if err != nil {
		return "", false, "", fmt.Errorf("读取公开信号失败: %w", err)
	}

	proofHash = fingerprint.SHA3Hex("groth16::" + string(proofPayload) + "::" + string(publicPayload))
	detail = "public=" + strings.TrimSpace(string(publicPayload))
	return proofHash, verified, detail, nil
}

// run 以有界超时执行一个子命令，返回标准输出。
func (t *Toolchain) run(ctx context.Context, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	command := exec.CommandContext(runCtx, t.cfg.Tool, args...)

	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("执行 %s %s 失败: %v, stderr=%s",
			t.cfg.Tool, args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
