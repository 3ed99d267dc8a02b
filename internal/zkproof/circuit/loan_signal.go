// Package circuit defines the fixed two-input Groth16 circuit targeted
// by the prover toolchain: secret creditScore and debtToIncomeBp with
// range constraints, bound to a public MiMC commitment.
package circuit

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark/frontend"
	stdmimc "github.com/consensys/gnark/std/hash/mimc"
)

// Version 是真实证明路径的电路版本标签。
const Version = "loan-signal-groth16-v1"

// 电路输入的合法区间，与信号推导层的截断边界一致。
const (
	CreditScoreMin    = 300
	CreditScoreMax    = 850
	DebtToIncomeBpMax = 10000
)

// LoanSignal 证明：存在一组区间内的贷款画像输入，
// 其 MiMC 承诺等于公开的 Commitment。输入本身保持私密。
type LoanSignal struct {
	CreditScore    frontend.Variable `gnark:"creditScore"`
	DebtToIncomeBp frontend.Variable `gnark:"debtToIncomeBp"`
	Commitment     frontend.Variable `gnark:"commitment,public"`
}

// Define 声明电路约束。
func (c *LoanSignal) Define(api frontend.API) error {
	// 区间约束。上界检查同时限定了位宽，负值在域上无法通过。
	api.AssertIsLessOrEqual(CreditScoreMin, c.CreditScore)
	api.AssertIsLessOrEqual(c.CreditScore, CreditScoreMax)
	api.AssertIsLessOrEqual(c.DebtToIncomeBp, DebtToIncomeBpMax)

	h, err := stdmimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.CreditScore, c.DebtToIncomeBp)
	api.AssertIsEqual(c.Commitment, h.Sum())
	return nil
}

// Commitment 在电路外计算与 Define 中一致的 MiMC 承诺。
// 元素按规范字节序写入，与电路内哈希逐比特一致。
func Commitment(creditScore, debtToIncomeBp int) *big.Int {
	var a, b fr.Element
	a.SetInt64(int64(creditScore))
	b.SetInt64(int64(debtToIncomeBp))

	h := mimc.NewMiMC()
	aBytes := a.Bytes()
	bBytes := b.Bytes()
	h.Write(aBytes[:])
	h.Write(bBytes[:])
	return new(big.Int).SetBytes(h.Sum(nil))
}
