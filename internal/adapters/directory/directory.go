// Package directory は社員台帳を勤怠台帳から参照するためのアダプタです。
// 複数社員の参照はリクエスト単位の dataloader でまとめて 1 クエリにします。
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/ogurasousui/hrms-lite/internal/core/attendance"
	"github.com/ogurasousui/hrms-lite/internal/core/employee"
)

type ctxKey string

const loadersKey = ctxKey("dataloaders")

const batchWait = time.Millisecond

// Loaders はリクエスト単位で共有する dataloader の集合です。
type Loaders struct {
	employeeLoader *dataloader.Loader[string, *employee.Employee]
}

// Directory は attendance.EmployeeDirectory の実装です。
type Directory struct {
	repo employee.Repository
}

var _ attendance.EmployeeDirectory = (*Directory)(nil)

// New は Directory を生成します。
func New(repo employee.Repository) *Directory {
	return &Directory{repo: repo}
}

// NewLoaders はリクエスト単位の dataloader を生成します。
func (d *Directory) NewLoaders() *Loaders {
	reader := &employeeReader{repo: d.repo}
	return &Loaders{
		employeeLoader: dataloader.NewBatchedLoader(reader.getEmployees, dataloader.WithWait[string, *employee.Employee](batchWait)),
	}
}

// WithLoaders は dataloader を格納した context を返します。
func (d *Directory) WithLoaders(ctx context.Context) context.Context {
	return context.WithValue(ctx, loadersKey, d.NewLoaders())
}

// For は context に格納された dataloader を返します。未格納であれば新しく生成します。
func (d *Directory) For(ctx context.Context) *Loaders {
	if loaders, ok := ctx.Value(loadersKey).(*Loaders); ok && loaders != nil {
		return loaders
	}
	return d.NewLoaders()
}

// GetEmployee は社員を 1 件参照します。トランザクション内から呼ばれるためリポジトリを直接利用します。
func (d *Directory) GetEmployee(ctx context.Context, employeeID string) (*attendance.EmployeeRef, error) {
	emp, err := d.repo.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return nil, attendance.ErrEmployeeNotFound
		}
		return nil, err
	}
	return &attendance.EmployeeRef{EmployeeID: emp.EmployeeID, FullName: emp.FullName}, nil
}

// LookupEmployees は社員をまとめて参照します。存在しない社員は結果に含めません。
func (d *Directory) LookupEmployees(ctx context.Context, employeeIDs []string) (map[string]attendance.EmployeeRef, error) {
	result := make(map[string]attendance.EmployeeRef, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return result, nil
	}

	employees, errs := d.For(ctx).employeeLoader.LoadMany(ctx, employeeIDs)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	for _, emp := range employees {
		if emp == nil {
			continue
		}
		result[emp.EmployeeID] = attendance.EmployeeRef{EmployeeID: emp.EmployeeID, FullName: emp.FullName}
	}
	return result, nil
}

// CountEmployees は登録済み社員数を返します。
func (d *Directory) CountEmployees(ctx context.Context) (int64, error) {
	return d.repo.Count(ctx)
}

type employeeReader struct {
	repo employee.Repository
}

func (r *employeeReader) getEmployees(ctx context.Context, ids []string) []*dataloader.Result[*employee.Employee] {
	found, err := r.repo.FindByEmployeeIDs(ctx, ids)
	if err != nil {
		return handleError[*employee.Employee](len(ids), err)
	}

	byID := make(map[string]*employee.Employee, len(found))
	for _, emp := range found {
		byID[emp.EmployeeID] = emp
	}

	// 削除済み社員は Data が nil の結果として返す
	results := make([]*dataloader.Result[*employee.Employee], 0, len(ids))
	for _, id := range ids {
		results = append(results, &dataloader.Result[*employee.Employee]{Data: byID[id]})
	}
	return results
}

// handleError は要求件数分の同一エラー結果を生成します。
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}
