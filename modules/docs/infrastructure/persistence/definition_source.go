package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/sourcecode"
)

// RoutineDefinitionSource resolves stored-routine definitions from the
// system catalog. Accepts bare or schema-qualified names.
type RoutineDefinitionSource struct {
	db Querier
}

func NewRoutineDefinitionSource(db Querier) sourcecode.DefinitionSource {
	return &RoutineDefinitionSource{db: db}
}

func (s *RoutineDefinitionSource) Definition(ctx context.Context, objectName string) (string, error) {
	q := querierFrom(ctx, s.db)

	schema := ""
	name := strings.TrimSpace(objectName)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		schema, name = name[:i], name[i+1:]
	}

	var def string
	err := q.QueryRow(ctx, `
		SELECT pg_get_functiondef(p.oid)
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE p.proname = $1
		  AND ($2 = '' OR n.nspname = $2)
		ORDER BY n.nspname
		LIMIT 1`,
		name, schema,
	).Scan(&def)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", sourcecode.ErrObjectNotFound, objectName)
	}
	if err != nil {
		return "", err
	}
	return def, nil
}
