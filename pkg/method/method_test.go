package method

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/alexisbeaulieu97/appbase/pkg/errors"
)

func TestDeclsAreDistinctEvenWithSameShape(t *testing.T) {
	t.Parallel()

	a := NewDecl[int, string]("format")
	b := NewDecl[int, string]("format")

	require.Equal(t, "format", a.Name())
	require.NotEqual(t, a.Key(), b.Key())
}

func TestCallWithoutHandlerFails(t *testing.T) {
	t.Parallel()

	m := New(NewDecl[int, string]("format"))
	require.False(t, m.HasHandler())

	_, err := m.Call(context.Background(), 1)
	var noHandler *apperrors.NoHandlerError
	require.ErrorAs(t, err, &noHandler)
	require.Equal(t, "format", noHandler.Method)
}

func TestRegisterLastWriterWins(t *testing.T) {
	t.Parallel()

	m := New(NewDecl[int, string]("format"))

	replaced := m.Register(func(_ context.Context, n int) (string, error) {
		return strconv.Itoa(n), nil
	})
	require.False(t, replaced)

	replaced = m.Register(func(_ context.Context, n int) (string, error) {
		return "#" + strconv.Itoa(n), nil
	})
	require.True(t, replaced)

	out, err := m.Call(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "#7", out)

	m.Unregister()
	require.False(t, m.HasHandler())
}
