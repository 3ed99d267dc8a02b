package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strconv"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"QuantumProof-Ops/internal/zkproof/circuit"
)

// zkloan 是贷款信号电路的 Groth16 工具链：
//
//	zkloan setup           -out <dir>
//	zkloan compute-witness -circuit <r1cs> -input <json> -witness <out>
//	zkloan prove           -circuit <r1cs> -pk <pk> -witness <wtns> -proof <out> -public <out>
//	zkloan verify          -vk <vk> -public <json> -proof <json>
//
// verify 成功时向标准输出打印 OK!，调用方以该标记判定验证结果。
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "setup":
		err = runSetup(os.Args[2:])
	case "compute-witness":
		err = runComputeWitness(os.Args[2:])
	case "prove":
		err = runProve(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "zkloan %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: zkloan <setup|compute-witness|prove|verify> [flags]")
}

type circuitInput struct {
	CreditScore    string `json:"creditScore"`
	DebtToIncomeBp string `json:"debtToIncomeBp"`
}

type proofEnvelope struct {
	Scheme string `json:"scheme"`
	Curve  string `json:"curve"`
	Proof  string `json:"proof"`
}

type publicSignals struct {
	Commitment string `json:"commitment"`
}

func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	out := fs.String("out", filepath.Join("zk", "artifacts"), "产物输出目录")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit.LoanSignal{})
	if err != nil {
		return fmt.Errorf("编译电路失败: %w", err)
	}

	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return fmt.Errorf("生成证明密钥失败: %w", err)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}
	if err := writeArtifact(filepath.Join(*out, "loan_signal.r1cs"), cs); err != nil {
		return err
	}
	if err := writeArtifact(filepath.Join(*out, "loan_signal.pk"), pk); err != nil {
		return err
	}
	if err := writeArtifact(filepath.Join(*out, "loan_signal.vk"), vk); err != nil {
		return err
	}

	fmt.Printf("artifacts written to %s (circuit %s)\n", *out, circuit.Version)
	return nil
}

func runComputeWitness(args []string) error {
	fs := flag.NewFlagSet("compute-witness", flag.ExitOnError)
	circuitPath := fs.String("circuit", "", "电路文件路径")
	inputPath := fs.String("input", "", "输入 JSON 路径")
	witnessPath := fs.String("witness", "", "witness 输出路径")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inputPath == "" || *witnessPath == "" {
		return fmt.Errorf("-input 与 -witness 不能为空")
	}
	if *circuitPath != "" {
		if _, err := os.Stat(*circuitPath); err != nil {
			return fmt.Errorf("电路文件不可用: %w", err)
		}
	}

	payload, err := os.ReadFile(*inputPath)
	if err != nil {
		return fmt.Errorf("读取输入失败: %w", err)
	}
	var input circuitInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("解析输入失败: %w", err)
	}
	credit, err := strconv.Atoi(input.CreditScore)
	if err != nil {
		return fmt.Errorf("creditScore 不是整数: %w", err)
	}
	dtiBp, err := strconv.Atoi(input.DebtToIncomeBp)
	if err != nil {
		return fmt.Errorf("debtToIncomeBp 不是整数: %w", err)
	}

	assignment := &circuit.LoanSignal{
		CreditScore:    credit,
		DebtToIncomeBp: dtiBp,
		Commitment:     circuit.Commitment(credit, dtiBp),
	}
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return fmt.Errorf("构造 witness 失败: %w", err)
	}
	return writeArtifact(*witnessPath, w)
}

func runProve(args []string) error {
	fs := flag.NewFlagSet("prove", flag.ExitOnError)
	circuitPath := fs.String("circuit", "", "电路文件路径")
	pkPath := fs.String("pk", "", "证明密钥路径")
	witnessPath := fs.String("witness", "", "witness 路径")
	proofPath := fs.String("proof", "", "证明输出路径")
	publicPath := fs.String("public", "", "公开信号输出路径")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *circuitPath == "" || *pkPath == "" || *witnessPath == "" || *proofPath == "" || *publicPath == "" {
		return fmt.Errorf("prove 需要 -circuit -pk -witness -proof -public")
	}

	cs := groth16.NewCS(ecc.BN254)
	if err := readArtifact(*circuitPath, cs); err != nil {
		return fmt.Errorf("加载电路失败: %w", err)
	}
	pk := groth16.NewProvingKey(ecc.BN254)
	if err := readArtifact(*pkPath, pk); err != nil {
		return fmt.Errorf("加载证明密钥失败: %w", err)
	}
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return fmt.Errorf("初始化 witness 失败: %w", err)
	}
	if err := readArtifact(*witnessPath, w); err != nil {
		return fmt.Errorf("加载 witness 失败: %w", err)
	}

	proof, err := groth16.Prove(cs, pk, w)
	if err != nil {
		return fmt.Errorf("生成证明失败: %w", err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return fmt.Errorf("序列化证明失败: %w", err)
	}
	envelope, err := json.Marshal(proofEnvelope{
		Scheme: "groth16",
		Curve:  "bn254",
		Proof:  base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(*proofPath, envelope, 0o600); err != nil {
		return fmt.Errorf("写入证明失败: %w", err)
	}

	public, err := w.Public()
	if err != nil {
		return fmt.Errorf("提取公开信号失败: %w", err)
	}
	vector, ok := public.Vector().(fr.Vector)
	if !ok || len(vector) != 1 {
		return fmt.Errorf("公开信号形状异常")
	}
	signals, err := json.Marshal(publicSignals{Commitment: vector[0].String()})
	if err != nil {
		return err
	}
	if err := os.WriteFile(*publicPath, signals, 0o600); err != nil {
		return fmt.Errorf("写入公开信号失败: %w", err)
	}
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	vkPath := fs.String("vk", "", "验证密钥路径")
	publicPath := fs.String("public", "", "公开信号路径")
	proofPath := fs.String("proof", "", "证明路径")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *vkPath == "" || *publicPath == "" || *proofPath == "" {
		return fmt.Errorf("verify 需要 -vk -public -proof")
	}

	vk := groth16.NewVerifyingKey(ecc.BN254)
	if err := readArtifact(*vkPath, vk); err != nil {
		return fmt.Errorf("加载验证密钥失败: %w", err)
	}

	payload, err := os.ReadFile(*proofPath)
	if err != nil {
		return fmt.Errorf("读取证明失败: %w", err)
	}
	var envelope proofEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("解析证明失败: %w", err)
	}
	rawProof, err := base64.StdEncoding.DecodeString(envelope.Proof)
	if err != nil {
		return fmt.Errorf("解码证明失败: %w", err)
	}
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(rawProof)); err != nil {
		return fmt.Errorf("反序列化证明失败: %w", err)
	}

	signalsPayload, err := os.ReadFile(*publicPath)
	if err != nil {
		return fmt.Errorf("读取公开信号失败: %w", err)
	}
	var signals publicSignals
	if err := json.Unmarshal(signalsPayload, &signals); err != nil {
		return fmt.Errorf("解析公开信号失败: %w", err)
	}
	commitment, ok := new(big.Int).SetString(signals.Commitment, 10)
	if !ok {
		return fmt.Errorf("公开承诺不是十进制整数")
	}

	publicWitness, err := frontend.NewWitness(
		&circuit.LoanSignal{Commitment: commitment},
		ecc.BN254.ScalarField(),
		frontend.PublicOnly(),
	)
	if err != nil {
		return fmt.Errorf("构造公开 witness 失败: %w", err)
	}

	if err := groth16.Verify(proof, vk, publicWitness); err != nil {
		return fmt.Errorf("验证失败: %w", err)
	}
	fmt.Println("OK!")
	return nil
}

func writeArtifact(path string, artifact interface{ WriteTo(w io.Writer) (int64, error) }) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建文件 %s 失败: %w", path, err)
	}
	defer file.Close()
	if _, err := artifact.WriteTo(file); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return nil
}

func readArtifact(path string, artifact interface{ ReadFrom(r io.Reader) (int64, error) }) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开文件 %s 失败: %w", path, err)
	}
	defer file.Close()
	if _, err := artifact.ReadFrom(file); err != nil {
		return fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	return nil
}
