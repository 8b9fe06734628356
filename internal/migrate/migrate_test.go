package migrate

import "testing"

func TestEmbeddedMigrationsOrdered(t *testing.T) {
	ups, err := embedded(upSuffix)
	if err != nil {
		t.Fatalf("embedded: %v", err)
	}
	if len(ups) < 2 {
		t.Fatalf("expected at least 2 up migrations, got %d", len(ups))
	}
	for i := 1; i < len(ups); i++ {
		if ups[i-1] >= ups[i] {
			t.Fatalf("migrations out of order: %s >= %s", ups[i-1], ups[i])
		}
	}
	// Every up migration must carry a matching down file.
	downs, err := embedded(downSuffix)
	if err != nil {
		t.Fatalf("embedded: %v", err)
	}
	if len(downs) != len(ups) {
		t.Fatalf("ups=%d downs=%d", len(ups), len(downs))
	}
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(`create table a (id text); insert into a values ('x;y'); `)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
}
