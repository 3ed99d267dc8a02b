package fingerprint

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// inputPrefix 是输入指纹的域分隔前缀，确保指纹不会与其他哈希用途混淆。
const inputPrefix = "fingerprint::"

// SHA3Hex 返回 payload 的 SHA3-256 摘要（小写十六进制）。
// 系统内所有稳定哈希都走这一个入口，跨进程、跨平台结果一致。
func SHA3Hex(payload string) string {
	digest := sha3.Sum256([]byte(payload))
	return hex.EncodeToString(digest[:])
}

// Commit 计算敏感输入的指纹承诺。相同输入永远得到相同指纹；
// 指纹本身不可逆，可以安全地出现在日志、归档与导出文件里。
func Commit(sensitive string) string {
	return SHA3Hex(inputPrefix + sensitive)
}
