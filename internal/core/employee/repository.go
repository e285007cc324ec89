package employee

import "context"

// Repository は社員永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, employee *Employee) (*Employee, error)
	Delete(ctx context.Context, employeeID string) error
	FindByEmployeeID(ctx context.Context, employeeID string) (*Employee, error)
	FindByEmail(ctx context.Context, email string) (*Employee, error)
	// FindByEmployeeIDs は存在する社員のみを返します。見つからない ID はエラーになりません。
	FindByEmployeeIDs(ctx context.Context, employeeIDs []string) ([]*Employee, error)
	List(ctx context.Context, filter ListEmployeesFilter) ([]*Employee, int64, error)
	ListAll(ctx context.Context) ([]*Summary, error)
	Count(ctx context.Context) (int64, error)
	// MaxSequence は EMP<数字> 形式の社員 ID の最大連番を返します。該当が無い場合は 0 です。
	MaxSequence(ctx context.Context) (int64, error)
}

// ListEmployeesFilter は一覧取得用フィルタです。
type ListEmployeesFilter struct {
	Search     string
	Department string
	Limit      int
	Offset     int
}
