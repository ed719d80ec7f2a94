//go:generate go run go.uber.org/mock/mockgen -source=audit.go -destination=../mocks/mock_audit_repository.go -package=mocks
package repositories

import (
	"anon-chat/domain"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const auditPrefix = "audit:"

type IAuditRepository interface {
	Store(entry AuditEntry) error
	List(limit int) ([]AuditEntry, error)
}

// AuditEntry is one admin action.
type AuditEntry struct {
	ID     uuid.UUID
	Admin  domain.UserID
	Action string
	Target string
	Detail string
	At     time.Time
}

type AuditRepository struct {
	db           *badger.DB
	log          *slog.Logger
	defaultLimit int
}

func NewAuditRepository(db *badger.DB, log *slog.Logger, defaultLimit int) AuditRepository {
	return AuditRepository{db: db, log: log, defaultLimit: defaultLimit}
}

// Store persists an entry under "audit:{timestamp_padded}:{uuid}" so a key scan is chronological
// and two actions in the same nanosecond never collide.
func (a AuditRepository) Store(entry AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	key := fmt.Sprintf("%s%019d:%s", auditPrefix, entry.At.UnixNano(), entry.ID)
	bytes, err := marshalEntry(entry)
	if err != nil {
		return err
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// List returns the most recent entries first. A non positive limit falls back to the default one.
func (a AuditRepository) List(limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = a.defaultLimit
	}
	var values [][]byte
	err := a.db.View(func(txn *badger.Txn) error {
		prefix := []byte(auditPrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration starts from the greatest key below the seek key
		seekKey := append([]byte(auditPrefix), []byte("9999999999999999999;")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(values) == limit {
				a.log.Debug(fmt.Sprintf("Maximum of %d audit entries reached", limit))
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entries := make([]AuditEntry, 0, len(values))
	for _, v := range values {
		entry, err := UnmarshalEntry(v)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Entries are stored as a protobuf Struct. Ids are kept as strings to avoid float rounding.
func marshalEntry(entry AuditEntry) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"id":     entry.ID.String(),
		"admin":  strconv.FormatInt(int64(entry.Admin), 10),
		"action": entry.Action,
		"target": entry.Target,
		"detail": entry.Detail,
		"at":     strconv.FormatInt(entry.At.UnixNano(), 10),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// UnmarshalEntry decodes a stored value, the debug inspector uses it too.
func UnmarshalEntry(b []byte) (AuditEntry, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return AuditEntry{}, err
	}
	fields := s.GetFields()
	id, err := uuid.Parse(fields["id"].GetStringValue())
	if err != nil {
		return AuditEntry{}, err
	}
	admin, err := strconv.ParseInt(fields["admin"].GetStringValue(), 10, 64)
	if err != nil {
		return AuditEntry{}, err
	}
	at, err := strconv.ParseInt(fields["at"].GetStringValue(), 10, 64)
	if err != nil {
		return AuditEntry{}, err
	}
	return AuditEntry{
		ID:     id,
		Admin:  domain.UserID(admin),
		Action: fields["action"].GetStringValue(),
		Target: fields["target"].GetStringValue(),
		Detail: fields["detail"].GetStringValue(),
		At:     time.Unix(0, at).UTC(),
	}, nil
}
