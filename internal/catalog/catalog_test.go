package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		template bool
	}{
		{"host", "host", false},
		{"hostTemplates", "host", true},
		{"hostGroup", "hostgroup", false},
		{"serviceEscalation", "serviceescalation", false},
		{"contactTemplates", "contact", true},
		{"timePeriod", "timeperiod", false},
		{"serviceExtInfo", "serviceextinfo", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Classify(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.name, c.Name)
			assert.Equal(t, tt.typ, c.Type)
			assert.Equal(t, tt.template, c.Template)
		})
	}
}

func TestIsRecognized(t *testing.T) {
	assert.True(t, IsRecognized("command"))
	assert.False(t, IsRecognized("Command"))
	assert.False(t, IsRecognized("commandTemplates"))
	assert.False(t, IsRecognized("."))
	assert.False(t, IsRecognized(""))

	_, ok := Classify("nope")
	assert.False(t, ok)
}

func TestListing(t *testing.T) {
	l := Listing()
	require.Len(t, l, len(names)+2)
	assert.Equal(t, []string{".", ".."}, l[:2])
	assert.Equal(t, "host", l[2])
	assert.Equal(t, "serviceExtInfo", l[len(l)-1])

	l[2] = "mutated"
	assert.Equal(t, "host", Listing()[2])
}

func TestTemplateDirsPairWithPlainDirs(t *testing.T) {
	for _, n := range Names() {
		base, ok := strings.CutSuffix(n, TemplateSuffix)
		if !ok {
			continue
		}
		plain, ok := Classify(base)
		require.True(t, ok, "%s has no plain counterpart", n)
		tmpl, _ := Classify(n)
		assert.Equal(t, plain.Type, tmpl.Type)
		assert.False(t, plain.Template)
	}
}

func TestDirFor(t *testing.T) {
	d, ok := DirFor("service", true)
	require.True(t, ok)
	assert.Equal(t, "serviceTemplates", d)

	d, ok = DirFor("hostgroup", false)
	require.True(t, ok)
	assert.Equal(t, "hostGroup", d)

	_, ok = DirFor("command", true)
	assert.False(t, ok)
}
