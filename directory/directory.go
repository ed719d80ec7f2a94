// Package directory caches the display identities the platform sends with every event
// and indexes them so admins can look users up by name.
package directory

import (
	"anon-chat/domain"
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/blugelabs/bluge"
	"github.com/samber/lo"
)

const (
	fieldName     = "name"
	fieldUsername = "username"
)

type Directory struct {
	log        *slog.Logger
	identities map[domain.UserID]domain.Identity
	writer     *bluge.Writer
}

// New opens an in-memory index; identities are not kept across restarts.
func New(log *slog.Logger) (*Directory, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, err
	}
	return &Directory{
		log:        log,
		identities: make(map[domain.UserID]domain.Identity),
		writer:     writer,
	}, nil
}

// Seen records the latest identity and reports whether the user was unknown.
// The index is only touched when a searchable attribute changed.
func (d *Directory) Seen(identity domain.Identity) bool {
	previous, known := d.identities[identity.ID]
	d.identities[identity.ID] = identity
	if known && sameNames(previous, identity) {
		return false
	}
	if err := d.writer.Update(toDocument(identity).ID(), toDocument(identity)); err != nil {
		d.log.Warn("Unable to index user", "user", identity.ID, "error", err)
	}
	return !known
}

// Identity never fails: an unknown user gets an identity carrying only its id.
func (d *Directory) Identity(user domain.UserID) domain.Identity {
	if identity, ok := d.identities[user]; ok {
		return identity
	}
	return domain.Identity{ID: user}
}

func (d *Directory) Lookup(user domain.UserID) (domain.Identity, bool) {
	identity, ok := d.identities[user]
	return identity, ok
}

func (d *Directory) Users() []domain.UserID {
	users := lo.Keys(d.identities)
	slices.Sort(users)
	return users
}

func (d *Directory) Len() int {
	return len(d.identities)
}

// Find matches a numeric id exactly, otherwise runs a full-text and prefix search
// on names and usernames.
func (d *Directory) Find(ctx context.Context, query string, limit int) ([]domain.Identity, error) {
	query = strings.TrimPrefix(strings.TrimSpace(query), "@")
	if query == "" {
		return nil, nil
	}
	if id, err := strconv.ParseInt(query, 10, 64); err == nil {
		if identity, ok := d.identities[domain.UserID(id)]; ok {
			return []domain.Identity{identity}, nil
		}
	}

	reader, err := d.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	lower := strings.ToLower(query)
	q := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(query).SetField(fieldName)).
		AddShould(bluge.NewPrefixQuery(lower).SetField(fieldName)).
		AddShould(bluge.NewPrefixQuery(lower).SetField(fieldUsername)).
		SetMinShould(1)

	matches, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var found []domain.Identity
	match, err := matches.Next()
	for err == nil && match != nil {
		var id domain.UserID
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				n, parseErr := strconv.ParseInt(string(value), 10, 64)
				if parseErr == nil {
					id = domain.UserID(n)
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		if identity, ok := d.identities[id]; ok {
			found = append(found, identity)
		}
		match, err = matches.Next()
	}
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (d *Directory) Close() error {
	return d.writer.Close()
}

func toDocument(identity domain.Identity) *bluge.Document {
	doc := bluge.NewDocument(strconv.FormatInt(int64(identity.ID), 10))
	doc.AddField(bluge.NewTextField(fieldName, strings.TrimSpace(identity.FirstName+" "+identity.LastName)))
	doc.AddField(bluge.NewKeywordField(fieldUsername, strings.ToLower(identity.Username)))
	return doc
}

func sameNames(a, b domain.Identity) bool {
	return a.FirstName == b.FirstName && a.LastName == b.LastName && a.Username == b.Username
}
