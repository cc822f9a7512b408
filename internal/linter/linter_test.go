package linter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLint_Clean(t *testing.T) {
	diags := Lint([]byte("define host{\n    host_name   web1\n    address     10.0.0.1\n}\n" +
		"define service{\n    name generic\n    register 0\n}\n"))
	assert.Empty(t, diags)
	assert.False(t, HasErrors(diags))
}

func TestLint_Findings(t *testing.T) {
	src := "define host{\n" + // 1
		"    host_name a\n" + // 2
		"    host_name b\n" + // 3
		"    lonely\n" + // 4
		"    _id fixed\n" + // 5
		"}\n" + // 6
		"define command{\n" + // 7
		"    name tmpl\n" + // 8
		"    register 0\n" + // 9
		"}\n" + // 10
		"define widget{\n" + // 11
		"    size 3\n" + // 12
		"}\n" + // 13
		"define contact{\n" + // 14
		"    contact_name x\n" // 15

	diags := Lint([]byte(src))
	var got []string
	for _, d := range diags {
		got = append(got, d.String())
	}
	require.Equal(t, []string{
		`line 4: error: line skipped, no value separator in "lonely"`,
		`line 1: warning: key "host_name" repeated, last value wins`,
		`line 1: warning: reserved key "_id" is dropped`,
		`line 7: warning: no directory lists template type "command"`,
		`line 11: warning: no directory lists object type "widget"`,
		`line 14: error: define contact is never closed`,
	}, got)
	assert.True(t, HasErrors(diags))
}
