package morselq_test

import (
	"context"
	"fmt"

	morselq "github.com/morselq/morselq"
	"github.com/morselq/morselq/client"
	"github.com/morselq/morselq/config"
)

func Example() {
	// Build an engine over the built-in sample relations and wrap it in a
	// cursor-style connection.
	engine := morselq.New(morselq.WithConfig(config.Default()))
	conn := client.NewConnection(engine)

	// Each cursor executes exactly one statement.
	cur := conn.Cursor()
	checkIfError(cur.Execute(context.Background(), `SELECT name FROM $planets WHERE id <= ? ORDER BY id`, int64(3)))

	// Drain the result into a single columnar batch and print it.
	table, err := cur.Arrow()
	checkIfError(err)

	names := table.Column(table.Schema[0].Identity)
	for _, name := range names {
		fmt.Println(name)
	}

	// Output:
	// Mercury
	// Venus
	// Earth
}

func checkIfError(err error) {
	if err != nil {
		panic(err)
	}
}
