package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/vmihailenco/msgpack/v5"

	"factored/internal/catalog"
	"factored/internal/counter"
	"factored/internal/orchestrator"
	"factored/internal/store/memstore"
)

func newTestConsumer() (*Consumer, *memstore.Store) {
	catalogs := &catalog.Catalogs{
		Fields: []catalog.FieldEntry{{Src: "s", Dst: "status", MessageTypes: []int{61}}},
	}
	producer := counter.New(catalogs, nil, nil)
	gw := memstore.New()
	orch := orchestrator.New(catalogs, nil, producer, gw, nil, nil)
	orch.SetClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) })
	return New(Config{Topic: "facts"}, orch), gw
}

func TestHandleRecordDecodesAndProcesses(t *testing.T) {
	c, gw := newTestConsumer()

	raw, err := msgpack.Marshal(wireMessage{T: 61, D: map[string]any{"status": "active"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	c.handleRecord(context.Background(), &kgo.Record{Value: raw})

	summary, err := gw.ProbeSchema(context.Background())
	if err != nil {
		t.Fatalf("probe schema: %v", err)
	}
	if _, ok := summary.Fields["status"]; !ok {
		t.Errorf("expected status field to be persisted, got %v", summary.Fields)
	}
}

func TestHandleRecordSkipsMalformedPayload(t *testing.T) {
	c, gw := newTestConsumer()

	c.handleRecord(context.Background(), &kgo.Record{Value: []byte("not msgpack")})

	summary, err := gw.ProbeSchema(context.Background())
	if err != nil {
		t.Fatalf("probe schema: %v", err)
	}
	if len(summary.Fields) != 0 {
		t.Errorf("expected no fields persisted for malformed record, got %v", summary.Fields)
	}
}
