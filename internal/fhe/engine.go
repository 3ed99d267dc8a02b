package fhe

import (
	"fmt"
	"time"

	"github.com/tuneinsight/lattigo/v4/ckks"
	"github.com/tuneinsight/lattigo/v4/rlwe"
)

// 固定的换算常数：300 分映射到 0%，850 分映射到 100%。
// 决策层依赖这条映射，修改它会破坏预审批阈值的含义。
const (
	scoreFloor  = 300.0
	scoreSpan   = 550.0
	percentSpan = 100.0
)

// Engine 封装 CKKS 上下文。参数集固定为 PN13QP218
// （多项式阶 8192，128-bit 安全等级），不随配置变化。
type Engine struct {
	params    ckks.Parameters
	encoder   ckks.Encoder
	encryptor rlwe.Encryptor
	decryptor rlwe.Decryptor
	evaluator ckks.Evaluator
}

// NewEngine 构造一套新的 CKKS 上下文（密钥对、编码器、求值器）。
// 每次调用生成新密钥：正确性不依赖密钥复用，只有加密耗时统计会受影响。
func NewEngine() (*Engine, error) {
	params, err := ckks.NewParametersFromLiteral(ckks.PN13QP218)
	if err != nil {
		return nil, fmt.Errorf("初始化 CKKS 参数失败: %w", err)
	}

	kgen := ckks.NewKeyGenerator(params)
	sk := kgen.GenSecretKey()
	rlk := kgen.GenRelinearizationKey(sk, 1)

	return &Engine{
		params:    params,
		encoder:   ckks.NewEncoder(params),
		encryptor: ckks.NewEncryptor(params, sk),
		decryptor: ckks.NewDecryptor(params, sk),
		evaluator: ckks.NewEvaluator(params, rlwe.EvaluationKey{Rlk: rlk}),
	}, nil
}

// EncryptAndCompute 在密文上执行 (value - 300) × (100/550)，
// 解密后截断到 [0, 100]。明文值只在本进程内存在。
func (e *Engine) EncryptAndCompute(value float64) (float64, time.Duration, error) {
	start := time.Now()

	pt := e.encoder.EncodeNew([]float64{value}, e.params.MaxLevel(), e.params.DefaultScale(), e.params.LogSlots())
	ct := e.encryptor.EncryptNew(pt)

	shifted := e.evaluator.AddConstNew(ct, -scoreFloor)
	scaled := e.evaluator.MultByConstNew(shifted, percentSpan/scoreSpan)
	elapsed := time.Since(start)

	decoded := e.encoder.Decode(e.decryptor.DecryptNew(scaled), e.params.LogSlots())
	if len(decoded) == 0 {
		return 0, elapsed, fmt.Errorf("CKKS 解码结果为空")
	}

	result := real(decoded[0])
	if result < 0 {
		result = 0
	}
	if result > percentSpan {
		result = percentSpan
	}
	return result, elapsed, nil
}

// Parameters 返回后端参数报告，随证明产物一起导出。
func (e *Engine) Parameters() map[string]any {
	return map[string]any{
		"enabled":             true,
		"scheme":              "CKKS",
		"poly_modulus_degree": 1 << e.params.LogN(),
		"security_level":      "128-bit",
		"library":             "Lattigo v4 (CKKS)",
	}
}
