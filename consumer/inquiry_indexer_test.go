package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ziwuxx-intake/models"
)

type fakeReader struct {
	msgs      chan kafka.Message
	closed    chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	committed []int64
}

func newFakeReader() *fakeReader {
	return &fakeReader{msgs: make(chan kafka.Message, 10), closed: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-r.closed:
		return kafka.Message{}, io.EOF
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closeOnce.Do(func() { close(r.closed) })
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type fakeES struct {
	mu       sync.Mutex
	docs     map[string]models.Inquiry
	failures int
	calls    int
}

func (e *fakeES) IndexDocument(_ context.Context, index, id string, document interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failures > 0 {
		e.failures--
		return errors.New("es unavailable")
	}
	if e.docs == nil {
		e.docs = map[string]models.Inquiry{}
	}
	e.docs[index+"/"+id] = document.(models.Inquiry)
	return nil
}

func (e *fakeES) Close() error { return nil }

func (e *fakeES) snapshot() (map[string]models.Inquiry, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]models.Inquiry, len(e.docs))
	for k, v := range e.docs {
		out[k] = v
	}
	return out, e.calls
}

func eventMessage(t *testing.T, offset int64, event string, inquiry models.Inquiry) kafka.Message {
	t.Helper()
	value, err := json.Marshal(models.InquiryEvent{ID: "evt", Event: event, Data: inquiry})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: value}
}

func TestInquiryIndexer_IndexesSubmittedEvents(t *testing.T) {
	reader := newFakeReader()
	es := &fakeES{}
	indexer := newInquiryIndexer(reader, "inquiries", es, zap.NewNop())

	reader.msgs <- eventMessage(t, 1, models.EventInquirySubmitted, models.Inquiry{ID: 7, Phone: "13800138000"})
	reader.msgs <- eventMessage(t, 2, "something_else", models.Inquiry{ID: 8})
	reader.msgs <- kafka.Message{Offset: 3, Value: []byte("not json")}

	indexer.Start(context.Background())
	require.Eventually(t, func() bool { return len(reader.commits()) == 3 }, 2*time.Second, 10*time.Millisecond)
	indexer.Stop()

	docs, _ := es.snapshot()
	require.Len(t, docs, 1)
	assert.Equal(t, "13800138000", docs["inquiries/7"].Phone)
	assert.Equal(t, []int64{1, 2, 3}, reader.commits())
}

func TestInquiryIndexer_RetriesIndexing(t *testing.T) {
	reader := newFakeReader()
	es := &fakeES{failures: 2}
	indexer := newInquiryIndexer(reader, "inquiries", es, zap.NewNop())
	indexer.backoff = time.Millisecond

	reader.msgs <- eventMessage(t, 1, models.EventInquirySubmitted, models.Inquiry{ID: 1})

	indexer.Start(context.Background())
	require.Eventually(t, func() bool { return len(reader.commits()) == 1 }, 2*time.Second, 10*time.Millisecond)
	indexer.Stop()

	docs, calls := es.snapshot()
	assert.Len(t, docs, 1)
	assert.Equal(t, 3, calls)
}

func TestInquiryIndexer_StopsOnContextCancel(t *testing.T) {
	reader := newFakeReader()
	indexer := newInquiryIndexer(reader, "inquiries", &fakeES{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	indexer.Start(ctx)
	cancel()

	select {
	case <-indexer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("indexer did not stop after cancel")
	}
	indexer.Stop()
}
