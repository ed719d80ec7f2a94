//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"anon-chat/domain"
	"anon-chat/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Notifier delivers a notification to one user through the transport adapter.
// An error means this recipient could not be reached; callers never abort a batch on it.
type Notifier interface {
	Notify(ctx context.Context, n event.Notification) error
}

// Selector picks a partner among waiting candidates. Candidates is never empty
// and never contains the requester.
type Selector interface {
	Select(candidates []domain.UserID) domain.UserID
}
