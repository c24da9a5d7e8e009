package persist

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/logging"
	"github.com/roach88/atomspace/internal/space"
)

// StoreAtom writes h and everything under it. Atoms already stored are left
// alone, except that an asserted atom stays asserted.
func (s *Store) StoreAtom(ctx context.Context, r space.Reader, h atom.Handle) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		w := newAtomWriter(tx, r)
		_, err := w.write(ctx, h)
		return err
	})
}

// StoreSpace writes every atom of r in one transaction.
func (s *Store) StoreSpace(ctx context.Context, r space.Reader) error {
	handles := r.Handles()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		w := newAtomWriter(tx, r)
		for _, h := range handles {
			if _, err := w.write(ctx, h); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("space stored",
		zap.String(logging.FieldPath, s.path),
		zap.Int(logging.FieldCount, len(handles)))
	return nil
}

// Clear deletes every stored atom.
func (s *Store) Clear(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM outgoing`); err != nil {
			return errors.Wrap(err, "clear outgoing")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM atoms`); err != nil {
			return errors.Wrap(err, "clear atoms")
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// atomWriter writes atoms children first, remembering heights so shared
// sub-trees are written once per transaction.
type atomWriter struct {
	tx     *sql.Tx
	r      space.Reader
	height map[atom.Handle]int
}

func newAtomWriter(tx *sql.Tx, r space.Reader) *atomWriter {
	return &atomWriter{tx: tx, r: r, height: make(map[atom.Handle]int)}
}

func (w *atomWriter) write(ctx context.Context, h atom.Handle) (int, error) {
	if ht, done := w.height[h]; done {
		return ht, nil
	}
	a, ok := w.r.Get(h)
	if !ok {
		return 0, errors.Newf("store atom: %s is not in the space", h)
	}

	height := 0
	for _, c := range a.Out {
		ch, err := w.write(ctx, c)
		if err != nil {
			return 0, err
		}
		height = max(height, ch+1)
	}

	var name any
	if !a.IsLink() {
		name = a.Name
	}
	_, err := w.tx.ExecContext(ctx, `
		INSERT INTO atoms (id, type, name, arity, height, asserted)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET asserted = MAX(asserted, excluded.asserted)
	`, a.ID, w.r.Oracle().TypeName(a.Type), name, a.Arity(), height, w.r.Asserted(h))
	if err != nil {
		return 0, errors.Wrapf(err, "store atom %s", h)
	}

	for pos, c := range a.Out {
		ca, _ := w.r.Get(c)
		_, err := w.tx.ExecContext(ctx, `
			INSERT INTO outgoing (link_id, pos, child_id)
			VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, a.ID, pos, ca.ID)
		if err != nil {
			return 0, errors.Wrapf(err, "store outgoing %d of %s", pos, h)
		}
	}

	w.height[h] = height
	return height, nil
}
