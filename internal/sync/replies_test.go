package sync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"dinescout_backend/platform/apperr"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestReplyStore(t *testing.T, ttl time.Duration) (*ReplyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewReplyStore(client, ttl), mr
}

func TestReplyStoreRoundTrip(t *testing.T) {
	store, _ := newTestReplyStore(t, time.Minute)
	ctx := context.Background()

	reply, err := json.Marshal(OK("user enabled"))
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}
	if err := store.Put(ctx, "cmd-1", reply); err != nil {
		t.Fatalf("put reply: %v", err)
	}

	got, err := store.Get(ctx, "cmd-1")
	if err != nil {
		t.Fatalf("get reply: %v", err)
	}
	if string(got) != string(reply) {
		t.Fatalf("expected stored reply back, got %s", got)
	}
}

func TestReplyStoreGetResult(t *testing.T) {
	store, _ := newTestReplyStore(t, time.Minute)
	ctx := context.Background()

	reply, _ := json.Marshal(Fail(CodeUserAlreadyEnabled, "user is already enabled"))
	if err := store.Put(ctx, "cmd-1", reply); err != nil {
		t.Fatalf("put reply: %v", err)
	}

	result, err := store.GetResult(ctx, "cmd-1")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if result.IsSuccess || result.ErrorCode != CodeUserAlreadyEnabled {
		t.Fatalf("expected decoded failure envelope, got %+v", result)
	}
}

func TestReplyStoreMissingReply(t *testing.T) {
	store, _ := newTestReplyStore(t, time.Minute)

	_, err := store.Get(context.Background(), "cmd-never-written")
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound for unwritten reply, got %v", err)
	}
}

func TestReplyStoreExpiry(t *testing.T) {
	store, mr := newTestReplyStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Put(ctx, "cmd-1", []byte(`{"isSuccess":true}`)); err != nil {
		t.Fatalf("put reply: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "cmd-1")
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected expired reply to read as NotFound, got %v", err)
	}
}

func TestReplyStoreClose(t *testing.T) {
	store, _ := newTestReplyStore(t, time.Minute)

	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := store.Put(context.Background(), "cmd-1", []byte(`{}`)); err == nil {
		t.Fatal("expected writes to fail after close")
	}
}

func TestReplyStoreDefaultTTL(t *testing.T) {
	store, mr := newTestReplyStore(t, 0)
	ctx := context.Background()

	if err := store.Put(ctx, "cmd-1", []byte(`{}`)); err != nil {
		t.Fatalf("put reply: %v", err)
	}
	if ttl := mr.TTL(replyKeyPrefix + "cmd-1"); ttl != 5*time.Minute {
		t.Fatalf("expected default 5m TTL, got %v", ttl)
	}
}
