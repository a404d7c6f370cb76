package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// MockCall records one ExecuteQuery invocation.
type MockCall struct {
	Query  string
	Params map[string]interface{}
}

// MockDriver is a scriptable GraphDriver for tests. When ResultFunc is set it
// decides the result per call; otherwise MockResult/Err apply to every call.
type MockDriver struct {
	Calls      []MockCall
	MockResult neo4j.EagerResult
	Err        error
	ResultFunc func(query string, params map[string]interface{}) (neo4j.EagerResult, error)
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.Calls = append(m.Calls, MockCall{Query: query, Params: params})
	if m.ResultFunc != nil {
		return m.ResultFunc(query, params)
	}
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	return m.MockResult, nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error { return nil }

func (m *MockDriver) Close(ctx context.Context) error { return nil }

// LastCall returns the most recent invocation, or a zero call when none.
func (m *MockDriver) LastCall() MockCall {
	if len(m.Calls) == 0 {
		return MockCall{}
	}
	return m.Calls[len(m.Calls)-1]
}

// Result builds an EagerResult from uniform keyed rows, mirroring what the
// eager transformer hands back.
func Result(keys []string, rows ...[]interface{}) neo4j.EagerResult {
	records := make([]*neo4j.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, &neo4j.Record{Keys: keys, Values: row})
	}
	return neo4j.EagerResult{Keys: keys, Records: records}
}
