package persist

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/logging"
	"github.com/roach88/atomspace/internal/space"
	"github.com/roach88/atomspace/internal/types"
)

// Stats summarises the stored atoms.
type Stats struct {
	Atoms    int            `json:"atoms"`
	Nodes    int            `json:"nodes"`
	Links    int            `json:"links"`
	Asserted int            `json:"asserted"`
	ByType   map[string]int `json:"by_type"`
}

// LoadSpace interns every stored atom into w, children before parents,
// and returns how many were loaded. Type names resolve through reg; an
// unknown type name is an error.
func (s *Store) LoadSpace(ctx context.Context, w space.Writer, reg types.Resolver) (int, error) {
	children, err := s.readOutgoing(ctx)
	if err != nil {
		return 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, name, arity, asserted
		FROM atoms
		ORDER BY height ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return 0, errors.Wrap(err, "query atoms")
	}
	defer rows.Close()

	handles := make(map[string]atom.Handle)
	for rows.Next() {
		var (
			id, typeName string
			name         sql.NullString
			arity        int
			asserted     bool
		)
		if err := rows.Scan(&id, &typeName, &name, &arity, &asserted); err != nil {
			return 0, errors.Wrap(err, "scan atom")
		}
		t, ok := reg.Lookup(typeName)
		if !ok {
			return 0, errors.WithHint(
				errors.Newf("stored atom %s has unknown type %s", id, typeName),
				"load the type definitions the database was written with")
		}

		var h atom.Handle
		if types.IsNodeType(reg, t) {
			h, err = w.AddNode(t, name.String)
		} else {
			ids := children[id]
			if len(ids) != arity {
				return 0, errors.Newf("stored link %s has %d of %d outgoing rows", id, len(ids), arity)
			}
			out := make([]atom.Handle, len(ids))
			for i, cid := range ids {
				ch, ok := handles[cid]
				if !ok {
					return 0, errors.Newf("stored link %s references missing atom %s", id, cid)
				}
				out[i] = ch
			}
			h, err = w.AddLink(t, out...)
		}
		if err != nil {
			return 0, errors.Wrapf(err, "load atom %s", id)
		}
		if asserted {
			if err := w.Assert(h); err != nil {
				return 0, err
			}
		}
		handles[id] = h
	}
	if err := rows.Err(); err != nil {
		return 0, errors.Wrap(err, "iterate atoms")
	}

	s.logger.Info("space loaded",
		zap.String(logging.FieldPath, s.path),
		zap.Int(logging.FieldCount, len(handles)))
	return len(handles), nil
}

func (s *Store) readOutgoing(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT link_id, child_id FROM outgoing ORDER BY link_id, pos
	`)
	if err != nil {
		return nil, errors.Wrap(err, "query outgoing")
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var link, child string
		if err := rows.Scan(&link, &child); err != nil {
			return nil, errors.Wrap(err, "scan outgoing")
		}
		out[link] = append(out[link], child)
	}
	return out, errors.Wrap(rows.Err(), "iterate outgoing")
}

// Stats counts the stored atoms.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByType: make(map[string]int)}
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, name IS NULL, COUNT(*), SUM(asserted)
		FROM atoms
		GROUP BY type, name IS NULL
		ORDER BY type
	`)
	if err != nil {
		return Stats{}, errors.Wrap(err, "query stats")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			typeName string
			isLink   bool
			n, nA    int
		)
		if err := rows.Scan(&typeName, &isLink, &n, &nA); err != nil {
			return Stats{}, errors.Wrap(err, "scan stats")
		}
		st.ByType[typeName] += n
		st.Atoms += n
		st.Asserted += nA
		if isLink {
			st.Links += n
		} else {
			st.Nodes += n
		}
	}
	return st, errors.Wrap(rows.Err(), "iterate stats")
}
