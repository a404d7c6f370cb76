package driver

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(keys []string, values []interface{}) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

func TestRecordString(t *testing.T) {
	rec := record([]string{"name", "empty"}, []interface{}{"Alice", nil})
	assert.Equal(t, "Alice", RecordString(rec, "name"))
	assert.Equal(t, "", RecordString(rec, "empty"))
	assert.Equal(t, "", RecordString(rec, "missing"))
}

func TestRecordInt(t *testing.T) {
	rec := record([]string{"a", "b", "c"}, []interface{}{int64(3), 4, 5.0})
	assert.EqualValues(t, 3, RecordInt(rec, "a"))
	assert.EqualValues(t, 4, RecordInt(rec, "b"))
	assert.EqualValues(t, 5, RecordInt(rec, "c"))
}

func TestRecordTimePtr(t *testing.T) {
	when := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := record(
		[]string{"str", "native", "empty", "absent"},
		[]interface{}{"2024-06-01T12:00:00Z", when, "", nil})

	fromString := RecordTimePtr(rec, "str")
	require.NotNil(t, fromString)
	assert.True(t, fromString.Equal(when))

	fromNative := RecordTimePtr(rec, "native")
	require.NotNil(t, fromNative)
	assert.True(t, fromNative.Equal(when))

	assert.Nil(t, RecordTimePtr(rec, "empty"), `"" decodes as no timestamp`)
	assert.Nil(t, RecordTimePtr(rec, "absent"))
}

func TestRecordStringList(t *testing.T) {
	rec := record([]string{"typed", "untyped", "none"},
		[]interface{}{[]string{"a"}, []interface{}{"b", "c"}, nil})
	assert.Equal(t, []string{"a"}, RecordStringList(rec, "typed"))
	assert.Equal(t, []string{"b", "c"}, RecordStringList(rec, "untyped"))
	assert.Nil(t, RecordStringList(rec, "none"))
}

func TestTimeParams(t *testing.T) {
	when := time.Date(2024, 6, 1, 14, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "2024-06-01T12:30:00Z", TimeParam(when), "persisted in UTC")

	assert.Equal(t, "", TimePtrParam(nil), "nil persists as the live marker")
	utc := when.UTC()
	assert.Equal(t, "2024-06-01T12:30:00Z", TimePtrParam(&utc))
}
