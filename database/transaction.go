package database

import (
	"context"
	"fmt"

	"github.com/jackwatters45/blog-api/logger"
	"go.mongodb.org/mongo-driver/mongo"
)

// Mutation is one write inside a unit of work. It must use sc as its
// context so the write joins the transaction.
type Mutation func(sc mongo.SessionContext) error

// RunInTransaction applies mutations in order inside a single transaction.
// Either every write commits or the transaction is aborted and the first
// error is returned. Nothing is retried: a failed unit of work is final for
// the request.
func (s *Store) RunInTransaction(ctx context.Context, mutations ...Mutation) error {
	session, err := s.Client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(context.Background())

	return mongo.WithSession(ctx, session, func(sc mongo.SessionContext) error {
		if err := session.StartTransaction(); err != nil {
			return fmt.Errorf("start transaction: %w", err)
		}
		for _, m := range mutations {
			if err := m(sc); err != nil {
				if abortErr := session.AbortTransaction(context.Background()); abortErr != nil {
					logger.Warn.Printf("abort transaction: %v", abortErr)
				}
				return err
			}
		}
		if err := session.CommitTransaction(context.Background()); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}
