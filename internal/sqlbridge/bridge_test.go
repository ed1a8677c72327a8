package sqlbridge

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/sqlframe/sqlframe/internal/errors"
)

func TestModeString(t *testing.T) {
	assert.Equal(t, "exec", Exec.String())
	assert.Equal(t, "fetch_one", FetchOne.String())
	assert.Equal(t, "fetch_all", FetchAll.String())
	assert.Equal(t, "fetch_scalar", FetchScalar.String())
	assert.Equal(t, "copy", Copy.String())
}

func TestScriptedExecutorMatchesFragments(t *testing.T) {
	ex := NewScriptedExecutor(Script{
		Contains: []string{"COUNT(*)"},
		Columns:  []string{"count"},
		Rows:     [][]interface{}{{int64(3)}},
	})

	rows, err := ex.Execute(context.Background(), `SELECT COUNT(*) FROM "t"`, FetchScalar)
	require.NoError(t, err)
	defer rows.Close()

	assert.Equal(t, []string{"count"}, rows.Columns())
	row, err := rows.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(3), row[0])

	_, err = rows.Next()
	assert.ErrorIs(t, err, io.EOF)

	require.Len(t, ex.Executed, 1)
	assert.Contains(t, ex.Executed[0], "COUNT(*)")
}

func TestScriptedExecutorUnmatchedFails(t *testing.T) {
	ex := NewScriptedExecutor()

	_, err := ex.Execute(context.Background(), "SELECT 1", FetchScalar)
	require.Error(t, err)
	assert.True(t, ferrors.IsQueryError(err))
	assert.Contains(t, err.Error(), "SELECT 1")
}

func TestScriptedExecutorScriptError(t *testing.T) {
	boom := errors.New("relation does not exist")
	ex := NewScriptedExecutor(Script{
		Contains: []string{"missing"},
		Err:      boom,
	})

	_, err := ex.Execute(context.Background(), `SELECT * FROM "missing"`, FetchAll)
	require.Error(t, err)
	assert.True(t, ferrors.IsQueryError(err))
	assert.ErrorIs(t, err, boom)
}

func TestScriptedExecutorFallback(t *testing.T) {
	ex := NewScriptedExecutor()
	ex.Fallback = &Script{Columns: []string{"x"}, Rows: [][]interface{}{{int64(1)}}}

	rows, err := ex.Execute(context.Background(), "SELECT anything", FetchAll)
	require.NoError(t, err)

	row, err := rows.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(1), row[0])
}

func TestEmptyRows(t *testing.T) {
	var r emptyRows

	assert.Nil(t, r.Columns())
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, r.Close())
}
