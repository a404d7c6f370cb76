package driver

import (
	"context"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// FalkorDriver speaks bolt to FalkorDB (or any bolt-compatible engine such as
// Memgraph or Neo4j).
type FalkorDriver struct {
	Driver neo4j.DriverWithContext
}

func NewFalkorDriver(uri, username, password string) (*FalkorDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	log.Println("Connected to graph engine")
	return &FalkorDriver{Driver: driver}, nil
}

func (d *FalkorDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *FalkorDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (d *FalkorDriver) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Entity(uuid);",
		"CREATE INDEX ON :Episodic(uuid);",

		"CREATE INDEX ON :Entity(group_id);",
		"CREATE INDEX ON :Episodic(group_id);",
	}

	for _, q := range queries {
		_, err := d.ExecuteQuery(ctx, q, nil)
		if err != nil {
			// Index might already exist.
			log.Printf("Warning: failed to create index '%s': %v", q, err)
		}
	}

	return nil
}
