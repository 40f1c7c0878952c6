// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package interfaces holds the small cross-feature contracts services are
// wired against, so feature packages depend on each other through
// interfaces instead of concrete types.
package interfaces

import "context"

// TxManager runs a function inside a database transaction. The concrete
// implementation injects the transaction and an event buffer into the
// context and dispatches the buffered events to commit hooks after COMMIT.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}
