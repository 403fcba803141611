package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"datasetmd/internal/catalog"
	"datasetmd/internal/infra/persistence/postgres/testutil"
	"datasetmd/pkg/metadata"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func record(id string) catalog.Record {
	return catalog.Record{ID: id, Dataset: &metadata.Dataset{Base: &metadata.Base{Identifier: id, Title: "Title " + id}}}
}

func TestNewStoreCreatesTableAndLoadsRows(t *testing.T) {
	db, conn := testutil.NewStubDB()
	payload, err := catalog.Encode(record("seeded"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	conn.Tables["records"] = []map[string]any{{"id": "seeded", "payload": payload}, {"id": "empty", "payload": []byte{}}}
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore(context.Background(), "postgres://example")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS RECORDS") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected records DDL, got execs: %v", conn.Execs)
	}
	rec, err := store.Get(context.Background(), "seeded")
	if err != nil || rec.Title() != "Title seeded" {
		t.Fatalf("expected seeded record: %v %+v", err, rec)
	}
	if list, _ := store.List(context.Background()); len(list) != 1 {
		t.Fatalf("empty payload rows should be skipped, got %d records", len(list))
	}
}

func TestPutAndDeletePersistRows(t *testing.T) {
	store, conn := openStub(t)
	ctx := context.Background()
	if _, err := store.Put(ctx, record("a")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, record("a")); err != nil {
		t.Fatalf("re-put: %v", err)
	}
	rows := conn.Tables["records"]
	if len(rows) != 1 || rows[0]["id"] != "a" {
		t.Fatalf("expected one upserted row, got %v", rows)
	}
	decoded, err := catalog.Decode(rows[0]["payload"].([]byte))
	if err != nil || decoded.Title() != "Title a" {
		t.Fatalf("payload not decodable: %v %+v", err, decoded)
	}
	if conn.Commits != 2 {
		t.Fatalf("expected 2 commits, got %d", conn.Commits)
	}
	if ok, err := store.Delete(ctx, "a"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if len(conn.Tables["records"]) != 0 {
		t.Fatalf("row not deleted: %v", conn.Tables["records"])
	}
	if ok, err := store.Delete(ctx, "a"); err != nil || ok {
		t.Fatalf("missing delete should be false: %v %v", ok, err)
	}
	if _, err := store.Get(ctx, "a"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestPutFailuresLeaveMirrorUntouched(t *testing.T) {
	cases := map[string]func(*testutil.StubConn){
		"begin":  func(c *testutil.StubConn) { c.FailBegin = true },
		"exec":   func(c *testutil.StubConn) { c.FailTables = map[string]bool{"records": true} },
		"commit": func(c *testutil.StubConn) { c.FailCommit = true },
	}
	for name, inject := range cases {
		t.Run(name, func(t *testing.T) {
			store, conn := openStub(t)
			inject(conn)
			if _, err := store.Put(context.Background(), record("x")); err == nil {
				t.Fatalf("expected %s failure", name)
			}
			if store.Has("x") {
				t.Fatalf("mirror updated despite %s failure", name)
			}
		})
	}
}

func TestNewStoreErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("dial") })
	if _, err := NewStore(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
	restore()

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore = OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	if _, err := NewStore(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "ping") {
		t.Fatalf("expected ping error, got %v", err)
	}
	restore()

	db, conn = testutil.NewStubDB()
	conn.FailExec = true
	restore = OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	if _, err := NewStore(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "ensure records table") {
		t.Fatalf("expected ddl error, got %v", err)
	}
	restore()

	db, conn = testutil.NewStubDB()
	conn.Tables["records"] = []map[string]any{{"id": "bad", "payload": []byte("{")}}
	restore = OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "record bad") {
		t.Fatalf("expected decode error, got %v", err)
	}
}
