package sqlite

import "strings"

// updateBuilder collects "column = ?" fragments and their bound values for
// a dynamic UPDATE statement. Only the fields a caller actually set are
// written; a caller that sets nothing gets an empty builder, which repo
// methods treat as a no-op.
type updateBuilder struct {
	columns []string
	args    []any
}

func (b *updateBuilder) set(column string, value any) {
	b.columns = append(b.columns, column+" = ?")
	b.args = append(b.args, value)
}

func (b *updateBuilder) empty() bool {
	return len(b.columns) == 0
}

// build renders the full "UPDATE table SET col = ?, col2 = ? WHERE id = ?"
// statement and appends id to the bound args.
func (b *updateBuilder) build(table, idColumn string, id any) (string, []any) {
	query := "UPDATE " + table + " SET " + strings.Join(b.columns, ", ") + " WHERE " + idColumn + " = ?"
	args := append(append([]any{}, b.args...), id)
	return query, args
}
