package employee

import "time"

// Employee は社員エンティティです。
// EmployeeID は採番された業務用の識別子 (EMP001 形式)、ID はストレージ上のサロゲートキーです。
type Employee struct {
	ID         string
	EmployeeID string
	FullName   string
	Email      string
	Department string
	CreatedAt  time.Time
}

// Summary は全件取得用の社員の要約です。
type Summary struct {
	ID         string
	EmployeeID string
	FullName   string
	Email      string
	Department string
}
