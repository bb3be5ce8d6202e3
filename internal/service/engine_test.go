package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/cache"
	"docvault/internal/events"
	"docvault/internal/logger"
	"docvault/internal/model"
)

type engine struct {
	svc     DocumentService
	store   *memStore
	docs    *memDocs
	history *memHistory
	clock   *fakeClock
	metrics *Metrics
	events  *recordingPublisher
	logs    *bytes.Buffer
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.VersionCreated
	err    error
}

func (p *recordingPublisher) PublishVersionCreated(_ context.Context, ev events.VersionCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	e := &engine{
		store:   newMemStore(),
		docs:    newMemDocs(),
		history: newMemHistory(),
		clock:   &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		metrics: metrics,
		events:  &recordingPublisher{},
		logs:    &bytes.Buffer{},
	}
	e.svc = NewDocumentService(e.store, e.docs, e.history, Options{
		Events:             e.events,
		Metrics:            metrics,
		Logger:             logger.New(e.logs, time.UTC),
		HistoryGracePeriod: 30 * time.Second,
		Now:                e.clock.Now,
	})
	return e
}

func (e *engine) upload(t *testing.T, content string) string {
	t.Helper()
	res, err := e.svc.Upload(context.Background(), UploadInput{FileName: "notes.txt", Content: []byte(content)})
	require.NoError(t, err)
	return res.DocumentID
}

func TestEngine_Scenario(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	up, err := e.svc.Upload(ctx, UploadInput{FileName: "notes.txt", Content: []byte("hello")})
	require.NoError(t, err)
	assert.Equal(t, 1, up.EditNumber)

	hist, err := e.svc.GetHistory(ctx, up.DocumentID)
	require.NoError(t, err)
	require.Equal(t, 1, hist.TotalEdits)
	assert.Equal(t, 1, hist.History[0].EditNumber)
	assert.Equal(t, model.InitialChangeDescription, hist.History[0].ChangeDescription)

	ed, err := e.svc.Edit(ctx, EditInput{DocumentID: up.DocumentID, Content: []byte("hello world"), EditedBy: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 2, ed.EditNumber)
	assert.Equal(t, "alice", ed.EditedBy)

	latest, err := e.svc.GetLatest(ctx, up.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), latest.Content)
	assert.Equal(t, 2, latest.CurrentEditNumber)
	assert.Equal(t, "notes.txt", latest.Title)

	hist, err = e.svc.GetHistory(ctx, up.DocumentID)
	require.NoError(t, err)
	require.Equal(t, 2, hist.TotalEdits)
	assert.Equal(t, 1, hist.History[0].EditNumber)
	assert.Equal(t, 2, hist.History[1].EditNumber)
	assert.Equal(t, model.DefaultChangeDescription, hist.History[1].ChangeDescription)

	v1, err := e.svc.GetVersion(ctx, up.DocumentID, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), v1.Content)

	doc := e.docs.get(up.DocumentID)
	original, _, err := e.store.Get(ctx, doc.OriginalBlobKey)
	require.NoError(t, err)
	defer original.Close()

	assert.Equal(t, 2, e.events.count())
	assert.Equal(t, float64(2), testutil.ToFloat64(e.metrics.versionsCreated))
}

func TestEngine_RoundTripEmptyContent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	id := e.upload(t, "")
	latest, err := e.svc.GetLatest(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, latest.Content)

	_, err = e.svc.Edit(ctx, EditInput{DocumentID: id, Content: []byte{0, 1, 2, 255}})
	require.NoError(t, err)

	latest, err = e.svc.GetLatest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 255}, latest.Content)
}

func TestEngine_EditKeepsUploadedContentType(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	up, err := e.svc.Upload(ctx, UploadInput{FileName: "scan.pdf", Content: []byte("%PDF-1.7"), ContentType: "application/pdf"})
	require.NoError(t, err)
	_, err = e.svc.Edit(ctx, EditInput{DocumentID: up.DocumentID, Content: []byte("%PDF-1.7 v2")})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", e.store.contentType(e.docs.get(up.DocumentID).CurrentBlobKey))

	plain := e.upload(t, "v1")
	_, err = e.svc.Edit(ctx, EditInput{DocumentID: plain, Content: []byte("v2")})
	require.NoError(t, err)
	assert.Equal(t, defaultContentType, e.store.contentType(e.docs.get(plain).CurrentBlobKey))
}

func TestEngine_EditNumbersAreConsecutive(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	id := e.upload(t, "v1")

	for want := 2; want <= 6; want++ {
		res, err := e.svc.Edit(ctx, EditInput{DocumentID: id, Content: []byte(fmt.Sprintf("v%d", want))})
		require.NoError(t, err)
		assert.Equal(t, want, res.EditNumber)
	}

	hist, err := e.svc.GetHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, hist.History, 6)
	for i, r := range hist.History {
		assert.Equal(t, i+1, r.EditNumber)
	}
}

func TestEngine_EditMissingDocumentWritesNothing(t *testing.T) {
	e := newEngine(t)

	_, err := e.svc.Edit(context.Background(), EditInput{DocumentID: "nope", Content: []byte("x")})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, e.store.count())
	hist, _ := e.history.ListByDocument(context.Background(), "nope")
	assert.Empty(t, hist)
}

func TestEngine_LoserCannotOverwriteWinner(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	id := e.upload(t, "v1")
	_, err := e.svc.Edit(ctx, EditInput{DocumentID: id, Content: []byte("v2")})
	require.NoError(t, err)

	// Both edits read currentEditNumber=2; bob's commits while alice is between
	// her blob write and her conditional update.
	var bobErr error
	e.docs.beforeUpdate = func() {
		_, bobErr = e.svc.Edit(ctx, EditInput{DocumentID: id, Content: []byte("bob"), EditedBy: "bob"})
	}
	_, aliceErr := e.svc.Edit(ctx, EditInput{DocumentID: id, Content: []byte("alice"), EditedBy: "alice"})

	require.NoError(t, bobErr)
	assert.ErrorIs(t, aliceErr, ErrConcurrentModification)
	assert.Equal(t, KindConcurrentModification, KindOf(aliceErr))

	latest, err := e.svc.GetLatest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.CurrentEditNumber)
	assert.Equal(t, []byte("bob"), latest.Content)

	hist, err := e.svc.GetHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, hist.History, 3)
	assert.Equal(t, "bob", hist.History[2].EditedBy)

	// original, v1, v2, bob's v3 and alice's orphaned attempt
	assert.Equal(t, 5, e.store.count())

	// retry with fresh state gets the next number
	res, err := EditWithRetry(ctx, e.svc, EditInput{DocumentID: id, Content: []byte("alice"), EditedBy: "alice"}, RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 4, res.EditNumber)
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.editConflicts))
}

func TestEngine_ConcurrentEditsSettleContiguously(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	id := e.upload(t, "base")

	const n = 12
	var wg sync.WaitGroup
	results := make(chan int, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := EditWithRetry(ctx, e.svc, EditInput{
				DocumentID: id,
				Content:    []byte(fmt.Sprintf("edit-%d", i)),
				EditedBy:   fmt.Sprintf("user-%d", i),
			}, RetryPolicy{MaxAttempts: 200, InitialInterval: time.Millisecond})
			if err != nil {
				errs <- err
				return
			}
			results <- res.EditNumber
		}(i)
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("edit failed: %v", err)
	}

	seen := map[int]bool{}
	for num := range results {
		assert.False(t, seen[num], "edit number %d reused", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)

	doc := e.docs.get(id)
	assert.Equal(t, 1+n, doc.CurrentEditNumber)

	hist, err := e.svc.GetHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, hist.History, 1+n)
	for i, r := range hist.History {
		assert.Equal(t, i+1, r.EditNumber)
	}
	assert.Equal(t, doc.CurrentBlobKey, hist.History[n].BlobKey)
}

func TestEngine_CrashBetweenPointerAndHistory(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	id := e.upload(t, "v1")

	e.history.setAppendErr(errors.New("connection reset"))
	_, err := e.svc.Edit(ctx, EditInput{DocumentID: id, Content: []byte("v2"), EditedBy: "carol"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInconsistentState)
	var engErr *Error
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, 2, engErr.EditNumber)
	e.history.setAppendErr(nil)

	// the document is still correct and readable
	latest, err := e.svc.GetLatest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.CurrentEditNumber)
	assert.Equal(t, []byte("v2"), latest.Content)

	// while the grace period runs, the gap looks like an in-flight edit
	_, err = e.svc.Edit(ctx, EditInput{DocumentID: id, Content: []byte("v3")})
	assert.ErrorIs(t, err, ErrConcurrentModification)
	_, err = e.svc.Repair(ctx, id)
	assert.ErrorIs(t, err, ErrConcurrentModification)
	hist, err := e.svc.GetHistory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, hist.TotalEdits)

	e.clock.Advance(time.Minute)

	_, err = e.svc.Edit(ctx, EditInput{DocumentID: id, Content: []byte("v3")})
	assert.ErrorIs(t, err, ErrInconsistentState)
	_, err = e.svc.GetHistory(ctx, id)
	assert.ErrorIs(t, err, ErrInconsistentState)
	_, err = e.svc.GetVersion(ctx, id, 2)
	assert.ErrorIs(t, err, ErrInconsistentState)

	rep, err := e.svc.Repair(ctx, id)
	require.NoError(t, err)
	assert.True(t, rep.Repaired)
	require.NotNil(t, rep.Record)
	assert.Equal(t, model.RecoveredEditor, rep.Record.EditedBy)
	assert.Equal(t, model.RecoveredChangeDescription, rep.Record.ChangeDescription)
	assert.Equal(t, latest.LastModified, rep.Record.EditedAt)

	hist, err = e.svc.GetHistory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, hist.TotalEdits)

	res, err := e.svc.Edit(ctx, EditInput{DocumentID: id, Content: []byte("v3")})
	require.NoError(t, err)
	assert.Equal(t, 3, res.EditNumber)

	again, err := e.svc.Repair(ctx, id)
	require.NoError(t, err)
	assert.False(t, again.Repaired)

	assert.Equal(t, float64(2), testutil.ToFloat64(e.metrics.inconsistentState.WithLabelValues("edit")))
	assert.Contains(t, e.logs.String(), "inconsistent_state")
	assert.Contains(t, e.logs.String(), "history_record_synthesized")
}

func TestEngine_RepairReconstructsUpload(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	e.history.setAppendErr(errors.New("throttled"))
	_, err := e.svc.Upload(ctx, UploadInput{FileName: "a.txt", Content: []byte("a")})
	require.ErrorIs(t, err, ErrInconsistentState)
	var engErr *Error
	require.True(t, errors.As(err, &engErr))
	id := engErr.DocumentID
	require.NotEmpty(t, id)
	e.history.setAppendErr(nil)

	e.clock.Advance(time.Minute)

	rep, err := e.svc.Repair(ctx, id)
	require.NoError(t, err)
	require.True(t, rep.Repaired)
	assert.Equal(t, model.UploadEditor, rep.Record.EditedBy)
	assert.Equal(t, model.InitialChangeDescription, rep.Record.ChangeDescription)
	assert.Equal(t, e.docs.get(id).CreatedAt, rep.Record.EditedAt)
}

func TestEngine_MissingBlobIsInconsistent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	id := e.upload(t, "v1")

	doc := e.docs.get(id)
	e.store.delete(doc.CurrentBlobKey)

	_, err := e.svc.GetLatest(ctx, id)
	assert.ErrorIs(t, err, ErrInconsistentState)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = e.svc.GetVersion(ctx, id, 1)
	assert.ErrorIs(t, err, ErrInconsistentState)
}

func TestEngine_HistoryGapIsInconsistent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	id := e.upload(t, "v1")
	for i := 0; i < 3; i++ {
		_, err := e.svc.Edit(ctx, EditInput{DocumentID: id, Content: []byte("x")})
		require.NoError(t, err)
	}

	e.history.remove(id, 2)

	_, err := e.svc.GetHistory(ctx, id)
	assert.ErrorIs(t, err, ErrInconsistentState)

	_, err = e.svc.Repair(ctx, id)
	assert.ErrorIs(t, err, ErrInconsistentState)

	_, err = e.svc.GetVersion(ctx, id, 2)
	assert.ErrorIs(t, err, ErrInconsistentState)

	_, err = e.svc.GetVersion(ctx, id, 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_GetHistoryUnknownDocument(t *testing.T) {
	e := newEngine(t)

	_, err := e.svc.GetHistory(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_EventFailureDoesNotFailEdit(t *testing.T) {
	e := newEngine(t)
	e.events.err = errors.New("broker down")

	id := e.upload(t, "v1")
	_, err := e.svc.Edit(context.Background(), EditInput{DocumentID: id, Content: []byte("v2")})

	require.NoError(t, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(e.metrics.eventPublishFailures))
	assert.Contains(t, e.logs.String(), "version_event_publish_failed")
}

func TestEngine_RedisCacheServesLatest(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store, docs, history := newMemStore(), newMemDocs(), newMemHistory()
	svc := NewDocumentService(store, docs, history, Options{
		Cache:              cache.NewRedis(client, time.Minute, 0),
		HistoryGracePeriod: time.Second,
	})
	ctx := context.Background()

	up, err := svc.Upload(ctx, UploadInput{FileName: "c.txt", Content: []byte("cached")})
	require.NoError(t, err)

	first, err := svc.GetLatest(ctx, up.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, []byte("cached"), first.Content)

	// the blob now comes from redis even though the store lost it
	store.delete(docs.get(up.DocumentID).CurrentBlobKey)
	second, err := svc.GetLatest(ctx, up.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, []byte("cached"), second.Content)

	// a failing cache falls back to the store
	mr.Close()
	_, err = svc.GetLatest(ctx, up.DocumentID)
	assert.ErrorIs(t, err, ErrInconsistentState)
}
