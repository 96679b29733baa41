package pgstore

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistempim/pimserver/internal/pkg/docstore"
)

func TestEncodeValueTimestampsOrderByteWise(t *testing.T) {
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	// Trailing-zero trimming would make the whole-second and the
	// two-digit-fraction stamps sort after the three-digit one.
	instants := []time.Time{
		base,
		base.Add(120 * time.Millisecond),
		base.Add(123 * time.Millisecond),
		base.Add(time.Second),
	}

	encoded := make([]string, len(instants))
	for i, ts := range instants {
		s, ok := encodeValue(ts).(string)
		require.True(t, ok, "timestamps must encode as strings")
		encoded[i] = s
	}

	assert.True(t, sort.StringsAreSorted(encoded),
		"byte order of encoded timestamps must match chronological order: %v", encoded)

	for i, s := range encoded {
		parsed, ok := docstore.AsTime(s)
		require.True(t, ok, "encoded timestamp %q must parse back", s)
		assert.True(t, parsed.Equal(instants[i]))
	}
}

func TestEncodeValueWalksNestedFields(t *testing.T) {
	ts := time.Date(2026, 8, 29, 12, 0, 0, 120000000, time.UTC)

	out := encodeValue(map[string]interface{}{
		"timestamp": ts,
		"history":   []interface{}{ts, "plain"},
		"nested":    map[string]interface{}{"at": ts},
	})

	fields, ok := out.(map[string]interface{})
	require.True(t, ok)

	want := "2026-08-29T12:00:00.120000000Z"
	assert.Equal(t, want, fields["timestamp"])
	assert.Equal(t, []interface{}{want, "plain"}, fields["history"])
	assert.Equal(t, map[string]interface{}{"at": want}, fields["nested"])
}

func TestBuildQueryRangeFiltersCompareByteWise(t *testing.T) {
	since := time.Date(2026, 8, 29, 12, 0, 0, 120000000, time.UTC)

	sql, args, err := buildQuery("chats/a_b/messages",
		[]docstore.Where{{Field: "timestamp", Op: docstore.OpGreaterEqual, Value: since}},
		&docstore.Order{Field: "timestamp"}, 0)
	require.NoError(t, err)

	assert.Contains(t, sql, `data->>'timestamp' COLLATE "C" >=`)
	assert.Contains(t, sql, `ORDER BY data->>'timestamp' COLLATE "C" ASC`)
	require.Len(t, args, 2)
	assert.Equal(t, "2026-08-29T12:00:00.120000000Z", args[1])
}

func TestBuildQueryPrefixWindowUsesByteCollation(t *testing.T) {
	sql, args, err := buildQuery("users",
		[]docstore.Where{
			{Field: "nome", Op: docstore.OpGreaterEqual, Value: "Ana"},
			{Field: "nome", Op: docstore.OpLessEqual, Value: "Ana" + docstore.PrefixSentinel},
		},
		&docstore.Order{Field: "nome"}, 5)
	require.NoError(t, err)

	// Both window bounds must compare under "C" so the sentinel stays the
	// highest value instead of being collation-ignorable.
	assert.Equal(t, 2, strings.Count(sql, `data->>'nome' COLLATE "C"`))
	assert.Contains(t, sql, "LIMIT 5")
	require.Len(t, args, 3)
	assert.Equal(t, "Ana", args[1])
	assert.Equal(t, "Ana"+docstore.PrefixSentinel, args[2])
}

func TestBuildQueryDescendingOrder(t *testing.T) {
	sql, args, err := buildQuery("notificacoes",
		[]docstore.Where{{Field: "uidDestinatario", Op: docstore.OpEqual, Value: "u1"}},
		&docstore.Order{Field: "data", Desc: true}, 0)
	require.NoError(t, err)

	assert.Contains(t, sql, `data->'uidDestinatario' = `)
	assert.Contains(t, sql, `ORDER BY data->>'data' COLLATE "C" DESC`)
	assert.Equal(t, []interface{}{"notificacoes", `"u1"`}, args)
}
