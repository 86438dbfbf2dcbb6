package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the drop-in alternative to FileStore for deployments
// that already run Postgres. Each project is stored as one JSONB document
// keyed by id, written in full per mutation, which keeps the two backends
// behaviorally identical. Per-id mutation serialization stays in-process;
// the store still assumes a single writer process.
type PostgresStore struct {
	db      *pgxpool.Pool
	idlocks *idLocks
}

func NewPostgresStore(ctx context.Context, db *pgxpool.Pool) (*PostgresStore, error) {
	const ddl = `
create table if not exists projects (
  id         text primary key,
  created_at timestamptz not null,
  doc        jsonb not null
);`
	if _, err := db.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("%w: ensure schema: %v", ErrPersistenceFailed, err)
	}
	return &PostgresStore{db: db, idlocks: newIDLocks()}, nil
}

func (s *PostgresStore) put(ctx context.Context, p *Project) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistenceFailed, err)
	}
	const q = `
insert into projects (id, created_at, doc)
values ($1, $2, $3)
on conflict (id) do update set doc = excluded.doc;`
	if _, err := s.db.Exec(ctx, q, p.ID, p.CreatedAt, doc); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return nil
}

func (s *PostgresStore) fetch(ctx context.Context, id string) (*Project, error) {
	const q = `select doc from projects where id = $1;`
	var doc []byte
	if err := s.db.QueryRow(ctx, q, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	var p Project
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrPersistenceFailed, err)
	}
	if p.Versions == nil {
		p.Versions = []HtmlVersion{}
	}
	if p.Assets == nil {
		p.Assets = []Asset{}
	}
	return &p, nil
}

func (s *PostgresStore) Create(ctx context.Context, domain string) (*Project, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: domain required", ErrValidation)
	}
	p := &Project{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Domain:    domain,
		Versions:  []HtmlVersion{},
		Assets:    []Asset{},
	}
	if err := s.put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Project, error) {
	return s.fetch(ctx, id)
}

func (s *PostgresStore) Update(ctx context.Context, id string, patch Patch) (*Project, error) {
	return s.Mutate(ctx, id, func(p *Project) error {
		patch.apply(p)
		return nil
	})
}

func (s *PostgresStore) Mutate(ctx context.Context, id string, fn func(*Project) error) (*Project, error) {
	l := s.idlocks.lock(id)
	defer l.Unlock()

	p, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := s.put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	l := s.idlocks.lock(id)
	defer l.Unlock()

	const q = `delete from projects where id = $1;`
	ct, err := s.db.Exec(ctx, q, id)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if ct.RowsAffected() == 0 {
		return false, nil
	}
	s.idlocks.forget(id)
	return true, nil
}

func (s *PostgresStore) List(ctx context.Context, page, pageSize int, order SortOrder) ([]Project, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	dir := "desc"
	if order == SortCreatedAsc {
		dir = "asc"
	}
	q := fmt.Sprintf(`select doc from projects order by created_at %s limit $1 offset $2;`, dir)

	rows, err := s.db.Query(ctx, q, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	defer rows.Close()

	items := make([]Project, 0, pageSize)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
		}
		var p Project
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, 0, fmt.Errorf("%w: decode: %v", ErrPersistenceFailed, err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	var total int
	if err := s.db.QueryRow(ctx, `select count(*) from projects;`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return items, total, nil
}

var _ Store = (*PostgresStore)(nil)
var _ Store = (*FileStore)(nil)
