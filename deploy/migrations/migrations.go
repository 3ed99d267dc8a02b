package migrations

import "embed"

// Files 暴露运行归档库的全部 SQL 迁移文件。
//
//go:embed *.sql
var Files embed.FS
