package codec

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/agentic-research/monfs/api"
	"github.com/agentic-research/monfs/internal/objdef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseBlocks(src []byte) []objdef.Block {
	var out []objdef.Block
	for b := range objdef.Blocks(src) {
		out = append(out, b)
	}
	return out
}

func TestEncode(t *testing.T) {
	rec := Encode(objdef.Block{
		Type: "host",
		Fields: []objdef.Field{
			{Key: "use", Value: "generic-host"},
			{Key: "host_name", Value: "web1"},
			{Key: "use", Value: "linux-server"},
			{Key: api.MetaKey, Value: "ignored"},
		},
	})

	assert.Equal(t, "host", rec.Meta.Type)
	assert.True(t, rec.Meta.Enabled)
	assert.Empty(t, rec.ID)
	assert.Equal(t, []string{"use", "host_name"}, rec.Keys())
	assert.Equal(t, map[string]string{"use": "linux-server", "host_name": "web1"}, rec.FieldMap())
}

func TestDecode_Example(t *testing.T) {
	rec := api.NewRecord("host")
	rec.Set("host_name", "test1")

	want := "define host{\n    host_name                                          test1\n}\n"
	assert.Equal(t, want, string(Decode(rec)))
	assert.Equal(t, int64(len(want)), Size(rec))
}

func TestDecode_SortedAndPadded(t *testing.T) {
	rec := api.NewRecord("service")
	rec.Set("service_description", "HTTP")
	rec.Set("check_command", "check_http")
	rec.Set("host_name", "web1")

	lines := strings.Split(strings.TrimSuffix(string(Decode(rec)), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "define service{", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "    check_command "))
	assert.True(t, strings.HasPrefix(lines[2], "    host_name "))
	assert.True(t, strings.HasPrefix(lines[3], "    service_description "))
	assert.Equal(t, "}", lines[4])
	for _, l := range lines[1:4] {
		assert.Equal(t, byte(' '), l[len(indent)+FieldWidth], l)
		assert.NotEqual(t, byte(' '), l[len(indent)+FieldWidth+1], l)
	}
}

func TestDecode_LongKeyNotTruncated(t *testing.T) {
	key := strings.Repeat("k", FieldWidth+7)
	rec := api.NewRecord("command")
	rec.Set(key, "v")

	out := string(Decode(rec))
	assert.Contains(t, out, "    "+key+" v\n")
	assert.Equal(t, int64(len(out)), Size(rec))
}

func TestDecode_NoFields(t *testing.T) {
	rec := api.NewRecord("timeperiod")
	assert.Equal(t, "define timeperiod{\n}\n", string(Decode(rec)))
	assert.Equal(t, int64(len("define timeperiod{\n}\n")), Size(rec))
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := "abcdefghijklmnopqrstuvwxyz_0123456789"
	word := func(n int) string {
		var sb strings.Builder
		for i := 0; i < n; i++ {
			sb.WriteByte(alphabet[rng.Intn(len(alphabet))])
		}
		return sb.String()
	}

	for i := 0; i < 200; i++ {
		rec := api.NewRecord("t" + word(1+rng.Intn(8)))
		for j := rng.Intn(12); j > 0; j-- {
			value := word(1 + rng.Intn(20))
			switch rng.Intn(6) {
			case 0, 1:
				value += " " + word(1+rng.Intn(5)) + "  !$ARG1$"
			case 2:
				value = ""
			}
			rec.Set("k"+word(1+rng.Intn(70)), value)
		}
		if rng.Intn(4) == 0 {
			rec.Set(api.RegisterKey, api.TemplateRegister)
		}

		text := Decode(rec)
		blocks := parseBlocks(text)
		require.Len(t, blocks, 1, "iteration %d", i)
		require.Empty(t, blocks[0].Malformed)
		got := Encode(blocks[0])

		assert.Equal(t, rec.Meta.Type, got.Meta.Type, "iteration %d", i)
		assert.Equal(t, rec.FieldMap(), got.FieldMap(), "iteration %d", i)
		assert.Equal(t, rec.IsTemplate(), got.IsTemplate())
		assert.Equal(t, string(text), string(Decode(got)), "decode must be stable")
	}
}

func TestRoundTrip_EmptyValue(t *testing.T) {
	rec := api.NewRecord("host")
	rec.Set("host_name", "web1")
	rec.Set("notes", "")

	blocks := parseBlocks(Decode(rec))
	require.Len(t, blocks, 1)
	assert.Empty(t, blocks[0].Malformed)
	got := Encode(blocks[0])
	assert.Equal(t, map[string]string{"host_name": "web1", "notes": ""}, got.FieldMap())
}

func ExampleDecode() {
	rec := api.NewRecord("command")
	rec.Set("command_name", "check_ping")
	fmt.Print(string(Decode(rec)))
	// Output:
	// define command{
	//     command_name                                       check_ping
	// }
}
