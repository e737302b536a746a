package mappings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/repository"
)

func TestParseAssignments(t *testing.T) {
	got, err := ParseAssignments([]string{"EDITOR=2", " AUTHOR = 3 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"EDITOR": 2, "AUTHOR": 3}, got)
}

func TestParseAssignments_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing equals", args: []string{"EDITOR"}},
		{name: "empty name", args: []string{"=2"}},
		{name: "non numeric id", args: []string{"EDITOR=two"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAssignments(tt.args)
			require.Error(t, err)
		})
	}

	_, err := ParseAssignments([]string{"EDITOR=2", "EDITOR =3"})
	require.ErrorIs(t, err, repository.ErrDuplicateMapping)
}
