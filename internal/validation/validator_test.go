package validation

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/alexisbeaulieu97/appbase/pkg/errors"
)

type sample struct {
	Name       string `validate:"required,plugin_name"`
	Version    string `validate:"omitempty,semver"`
	Constraint string `validate:"omitempty,semver_constraint"`
	Format     string `validate:"omitempty,oneof=json console"`
}

func TestStructAcceptsValidValues(t *testing.T) {
	t.Parallel()

	err := Struct(sample{Name: "net.http_v2", Version: "1.2.3", Constraint: "^1.0", Format: "json"})
	require.NoError(t, err)
}

func TestStructRejectsInvalidName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"Net", "1net", "net plugin", ""} {
		err := Struct(sample{Name: name})

		var validationErr *apperrors.ValidationError
		require.ErrorAs(t, err, &validationErr, name)
		require.Equal(t, "sample.Name", validationErr.Field)
	}
}

func TestStructRejectsInvalidVersion(t *testing.T) {
	t.Parallel()

	err := Struct(sample{Name: "net", Version: "v1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a semantic version")
}

func TestStructRejectsInvalidConstraint(t *testing.T) {
	t.Parallel()

	err := Struct(sample{Name: "net", Constraint: "banana"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a version constraint")
}

func TestStructReportsOneOfChoices(t *testing.T) {
	t.Parallel()

	err := Struct(sample{Name: "net", Format: "xml"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "json, console")
}

func TestGetValidatorIsShared(t *testing.T) {
	t.Parallel()

	require.Same(t, GetValidator(), GetValidator())
}
