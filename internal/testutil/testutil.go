// Package testutil holds fixtures shared by package tests: an isolated
// in-memory database and a publisher that records instead of sending.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenSQLite opens a private in-memory database and migrates models into it.
func OpenSQLite(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Node returns a snowflake node for tests.
func Node(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

// Message is one call recorded by Publisher.
type Message struct {
	RoutingKey string
	Payload    any
	Headers    map[string]string
}

// Publisher records published events. Setting Err makes Publish fail.
type Publisher struct {
	mu       sync.Mutex
	Err      error
	messages []Message
}

func (p *Publisher) Publish(_ context.Context, routingKey string, payload any, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.messages = append(p.messages, Message{RoutingKey: routingKey, Payload: payload, Headers: headers})
	return nil
}

// Messages returns the recorded calls in order.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

// ByKey returns the recorded calls for one routing key.
func (p *Publisher) ByKey(routingKey string) []Message {
	var out []Message
	for _, m := range p.Messages() {
		if m.RoutingKey == routingKey {
			out = append(out, m)
		}
	}
	return out
}
