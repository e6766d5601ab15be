package leave

import "context"

// Store is the record store behind the lifecycle. Writes happen inside WithTx;
// an error returned from fn rolls back every change made through tx.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetRequest(ctx context.Context, id string) (Request, error)
	ListRequests(ctx context.Context, filter Filter) (RequestListResult, error)
	GetEmployee(ctx context.Context, id string) (Employee, error)
	// ListEmployees includes deactivated employees.
	ListEmployees(ctx context.Context) ([]Employee, error)
	FindEmployeeByEmail(ctx context.Context, email string) (Employee, error)
	// FindEmployeeByPhone only matches active employees.
	FindEmployeeByPhone(ctx context.Context, normalizedPhone string) (Employee, error)
	CreateEmployee(ctx context.Context, employee *Employee) error
	Ping(ctx context.Context) error
}

// Tx reads taken through ForUpdate methods hold their rows until the
// transaction ends.
type Tx interface {
	CreateRequest(ctx context.Context, req *Request) error
	RequestForUpdate(ctx context.Context, id string) (Request, error)
	UpdateRequest(ctx context.Context, req Request) error
	ApprovedRequestsForUpdate(ctx context.Context) ([]Request, error)
	EmployeeForUpdate(ctx context.Context, id string) (Employee, error)
	DueForRefreshForUpdate(ctx context.Context, asOf string) ([]Employee, error)
	UpdateEmployeeBalance(ctx context.Context, employee Employee) error
	// UpdateEmployee writes the profile, ledgers, refresh date and
	// deactivation mark. A clashing email gives ErrDuplicateEmployee.
	UpdateEmployee(ctx context.Context, employee Employee) error
}
