package interfaces

import "context"

// TxRunner scopes a function to one storage transaction: every repository
// call made with the context passed to fn joins the same commit-or-abort
// region. Implemented by pkg/database.MongoDB over session transactions.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error)
}
